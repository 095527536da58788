package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	body := bytes.Repeat([]byte(`{"job":"Captain","minutes":125},`), 50)
	before := time.Now().Add(-time.Second)
	if err := store.Put(ctx, "/v2/player/roletime?ckey=urist", body, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, err := store.Get(ctx, "/v2/player/roletime?ckey=urist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a cache hit")
	}
	if !bytes.Equal(entry.Body, body) {
		t.Errorf("body mismatch: got %d bytes, want %d", len(entry.Body), len(body))
	}
	if entry.FetchedAt.Before(before) {
		t.Errorf("FetchedAt = %v, want after %v", entry.FetchedAt, before)
	}

	miss, err := store.Get(ctx, "/v2/player?ckey=nobody")
	if err != nil || miss != nil {
		t.Errorf("Get(miss) = %v, %v; want nil, nil", miss, err)
	}
}

func TestStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Put(ctx, "k", []byte("old"), time.Hour)
	store.Put(ctx, "k", []byte("new"), time.Hour)

	entry, err := store.Get(ctx, "k")
	if err != nil || entry == nil {
		t.Fatalf("Get: %v, %v", entry, err)
	}
	if string(entry.Body) != "new" {
		t.Errorf("body = %q, want new", entry.Body)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestStoreExpiryAndPrune(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "expired", []byte("x"), -time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "fresh", []byte("y"), time.Hour); err != nil {
		t.Fatal(err)
	}

	if entry, _ := store.Get(ctx, "expired"); entry != nil {
		t.Error("expired entry returned")
	}

	n, err := store.Prune(ctx, time.Now())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestNopCache(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()
	if err := c.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if entry, err := c.Get(ctx, "k"); entry != nil || err != nil {
		t.Errorf("Get = %v, %v", entry, err)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	for _, body := range [][]byte{[]byte("a"), []byte(`{"byond_key":"Urist"}`), bytes.Repeat([]byte("abc"), 10000)} {
		data, err := compress(body)
		if err != nil {
			t.Fatal(err)
		}
		got, err := decompress(data)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, body) {
			t.Errorf("round trip changed %d-byte body", len(body))
		}
	}
}
