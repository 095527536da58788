package collector

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/storage"
)

type fakeFetcher struct {
	mu      sync.Mutex
	servers []domain.ServerStatus
	err     error
	calls   int
}

func (f *fakeFetcher) GetServers(ctx context.Context) ([]domain.ServerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.servers, f.err
}

func waitEvent(t *testing.T, p *ServerPoller) domain.Event {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a poll event")
		return domain.Event{}
	}
}

func TestPollerInitialPoll(t *testing.T) {
	fetcher := &fakeFetcher{servers: []domain.ServerStatus{{"server_name": "Main"}}}
	p := NewServerPoller(fetcher, time.Hour)

	if snap := p.Snapshot(); !snap.IsLoading || snap.Servers != nil {
		t.Fatalf("initial snapshot = %+v, want loading", snap)
	}

	p.Start(context.Background())
	defer p.Stop()

	ev := waitEvent(t, p)
	if ev.Type != domain.EventServerUpdate {
		t.Errorf("event type = %q", ev.Type)
	}

	snap := p.Snapshot()
	if snap.IsLoading || snap.Err != nil || len(snap.Servers) != 1 || snap.UpdatedAt.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPollerPollsOnInterval(t *testing.T) {
	fetcher := &fakeFetcher{servers: []domain.ServerStatus{}}
	p := NewServerPoller(fetcher, 20*time.Millisecond)
	p.Start(context.Background())

	for i := 0; i < 3; i++ {
		waitEvent(t, p)
	}
	p.Stop()

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if fetcher.calls < 3 {
		t.Errorf("calls = %d, want at least 3", fetcher.calls)
	}
}

func TestPollerErrorKeepsServers(t *testing.T) {
	p := NewServerPoller(&fakeFetcher{}, time.Hour)

	p.apply(1, []domain.ServerStatus{{"server_name": "Main"}}, nil)
	<-p.Events()

	boom := errors.New("boom")
	p.apply(2, nil, boom)
	ev := <-p.Events()
	if ev.Type != domain.EventServerError {
		t.Errorf("event type = %q", ev.Type)
	}

	snap := p.Snapshot()
	if !errors.Is(snap.Err, boom) {
		t.Errorf("Err = %v", snap.Err)
	}
	if len(snap.Servers) != 1 {
		t.Errorf("servers = %v, want the last good list", snap.Servers)
	}

	p.apply(3, []domain.ServerStatus{{"server_name": "A"}, {"server_name": "B"}}, nil)
	snap = p.Snapshot()
	if snap.Err != nil || len(snap.Servers) != 2 {
		t.Errorf("after recovery: %+v", snap)
	}
}

func TestPollerReplacesWholesale(t *testing.T) {
	p := NewServerPoller(&fakeFetcher{}, time.Hour)

	p.apply(1, []domain.ServerStatus{{"server_name": "A", "players": 3.0}}, nil)
	p.apply(2, []domain.ServerStatus{{"server_name": "B"}}, nil)

	snap := p.Snapshot()
	if len(snap.Servers) != 1 || snap.Servers[0].Name() != "B" {
		t.Errorf("servers = %v", snap.Servers)
	}
	if _, ok := snap.Servers[0]["players"]; ok {
		t.Error("fields from the previous snapshot leaked into the new one")
	}
}

func TestPollerDiscardsStaleResults(t *testing.T) {
	p := NewServerPoller(&fakeFetcher{}, time.Hour)

	p.apply(2, []domain.ServerStatus{{"server_name": "newer"}}, nil)
	p.apply(1, []domain.ServerStatus{{"server_name": "older"}}, nil)

	if got := p.Snapshot().Servers[0].Name(); got != "newer" {
		t.Errorf("server = %q, a stale poll overwrote a newer one", got)
	}
	if len(p.Events()) != 1 {
		t.Errorf("events = %d, want 1", len(p.Events()))
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p := NewServerPoller(&fakeFetcher{}, time.Hour)
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}

func TestPruneLoop(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	store.Put(ctx, "old", []byte("x"), -time.Second)

	done := make(chan struct{})
	go func() {
		PruneLoop(ctx, store, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := store.Count(context.Background())
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expired entry was never pruned")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done
}
