package storage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisPutGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestRedis(t)

	body := bytes.Repeat([]byte(`{"job":"Captain","minutes":125},`), 50)
	before := time.Now().Add(-time.Second)
	if err := cache.Put(ctx, "/v2/player/roletime?ckey=urist", body, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if ttl := mr.TTL(redisKeyPrefix + "/v2/player/roletime?ckey=urist"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	entry, err := cache.Get(ctx, "/v2/player/roletime?ckey=urist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a cache hit")
	}
	if !bytes.Equal(entry.Body, body) {
		t.Errorf("body mismatch: got %d bytes, want %d", len(entry.Body), len(body))
	}
	if entry.FetchedAt.Before(before) || entry.FetchedAt.After(time.Now()) {
		t.Errorf("FetchedAt = %v, want about now", entry.FetchedAt)
	}
}

func TestRedisMiss(t *testing.T) {
	cache, _ := newTestRedis(t)

	entry, err := cache.Get(context.Background(), "/v2/player?ckey=nobody")
	if err != nil || entry != nil {
		t.Errorf("Get(miss) = %v, %v; want nil, nil", entry, err)
	}
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestRedis(t)

	if err := cache.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(time.Minute)

	if entry, err := cache.Get(ctx, "k"); entry != nil || err != nil {
		t.Errorf("Get after expiry = %v, %v; want nil, nil", entry, err)
	}

	// expiry is left to Redis
	if n, err := cache.Prune(ctx, time.Now()); n != 0 || err != nil {
		t.Errorf("Prune = %d, %v", n, err)
	}
}

func TestRedisTruncatedValue(t *testing.T) {
	cache, mr := newTestRedis(t)

	if err := mr.Set(redisKeyPrefix+"k", "short"); err != nil {
		t.Fatal(err)
	}
	if entry, err := cache.Get(context.Background(), "k"); err == nil {
		t.Errorf("Get = %v, want an error for a value shorter than the time prefix", entry)
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	// nothing listens on port 1
	addr := "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, addr, "", 0); err == nil {
		t.Error("expected connection error")
	}
}
