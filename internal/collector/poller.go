package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/storage"
)

// StatusFetcher fetches the live status of all servers
type StatusFetcher interface {
	GetServers(ctx context.Context) ([]domain.ServerStatus, error)
}

// Snapshot is the poller's current view of the servers
type Snapshot struct {
	Servers   []domain.ServerStatus
	Err       error
	IsLoading bool
	UpdatedAt time.Time
}

// ServerPoller periodically fetches server status. It keeps polling
// whether or not anybody is watching, and never polls early.
type ServerPoller struct {
	fetcher  StatusFetcher
	interval time.Duration
	events   chan domain.Event

	mu       sync.RWMutex
	snapshot Snapshot
	issued   uint64 // sequence of the most recently started poll
	applied  uint64 // sequence of the most recently applied poll

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup // track goroutine completion for graceful shutdown
}

// NewServerPoller creates a poller that fetches every interval
func NewServerPoller(fetcher StatusFetcher, interval time.Duration) *ServerPoller {
	return &ServerPoller{
		fetcher:  fetcher,
		interval: interval,
		events:   make(chan domain.Event, 100),
		snapshot: Snapshot{IsLoading: true},
		done:     make(chan struct{}),
	}
}

// Events returns the event channel for broadcasting
func (p *ServerPoller) Events() <-chan domain.Event {
	return p.events
}

// Snapshot returns the latest state
func (p *ServerPoller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Start polls immediately and then on every tick until Stop or ctx is done
func (p *ServerPoller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.pollLoop(ctx)
}

// Stop stops future polls and waits for in-flight ones to settle
func (p *ServerPoller) Stop() {
	p.stopOnce.Do(func() {
		log.Println("ServerPoller: stopping...")
		close(p.done)
		p.wg.Wait()
		log.Println("ServerPoller: shutdown complete")
	})
}

// pollLoop starts a poll on every tick
func (p *ServerPoller) pollLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial poll
	p.startPoll(ctx)

	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.startPoll(ctx)
		}
	}
}

// startPoll runs one poll in its own goroutine. A slow poll is not
// cancelled when the next one starts.
func (p *ServerPoller) startPoll(ctx context.Context) {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		pollCtx, cancel := context.WithTimeout(ctx, p.interval)
		defer cancel()

		servers, err := p.fetcher.GetServers(pollCtx)
		p.apply(seq, servers, err)
	}()
}

// apply records the result of poll seq unless a newer poll already landed
func (p *ServerPoller) apply(seq uint64, servers []domain.ServerStatus, err error) {
	p.mu.Lock()
	if seq <= p.applied {
		p.mu.Unlock()
		log.Printf("Discarding stale server poll #%d (already applied #%d)", seq, p.applied)
		return
	}
	p.applied = seq

	now := time.Now().UTC()
	p.snapshot.IsLoading = false
	p.snapshot.UpdatedAt = now

	var event domain.Event
	if err != nil {
		// Keep the last good server list
		p.snapshot.Err = err
		event = domain.Event{
			Type:      domain.EventServerError,
			Timestamp: now,
			Data:      domain.ServerErrorEvent{Message: err.Error()},
		}
	} else {
		p.snapshot.Servers = servers
		p.snapshot.Err = nil
		event = domain.Event{
			Type:      domain.EventServerUpdate,
			Timestamp: now,
			Data:      domain.ServerUpdateEvent{Servers: servers},
		}
	}
	p.mu.Unlock()

	if err != nil {
		log.Printf("Error polling servers: %v", err)
	}
	p.emitEvent(event)
}

// emitEvent sends an event to the event channel
func (p *ServerPoller) emitEvent(event domain.Event) {
	select {
	case p.events <- event:
	default:
		// Channel full, drop event
	}
}

// PruneLoop periodically removes expired cache entries until ctx is done
func PruneLoop(ctx context.Context, cache storage.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count, err := cache.Prune(ctx, time.Now()); err != nil {
				log.Printf("Error pruning response cache: %v", err)
			} else if count > 0 {
				log.Printf("Pruned %d expired cached responses", count)
			}
		}
	}
}
