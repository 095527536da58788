package api

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ernie/stationstats/internal/collector"
	"github.com/ernie/stationstats/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512

	// events queued per status page before it is dropped as too slow
	subscriberBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the status feed is public
	},
}

// subscriber is one status page listening on /ws
type subscriber struct {
	id     string
	conn   *websocket.Conn
	events chan []byte
}

// statusFeed fans server events out to every connected status page
type statusFeed struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func newStatusFeed() *statusFeed {
	return &statusFeed{subscribers: make(map[*subscriber]struct{})}
}

func (f *statusFeed) join(s *subscriber) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers[s] = struct{}{}
	return len(f.subscribers)
}

// leave removes s and closes its queue; it is safe to call more than once
func (f *statusFeed) leave(s *subscriber) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[s]; ok {
		delete(f.subscribers, s)
		close(s.events)
	}
	return len(f.subscribers)
}

// publish queues event for every subscriber. A subscriber whose queue is
// full is removed; its writer then sends a close frame and hangs up.
func (f *statusFeed) publish(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event.Type, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subscribers {
		select {
		case s.events <- data:
		default:
			log.Printf("WebSocket client %s is not keeping up, dropping it", s.id)
			delete(f.subscribers, s)
			close(s.events)
		}
	}
}

// Subscribers returns the number of connected status pages
func (f *statusFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// handleWebSocket upgrades the request and streams server events to it
func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	s := &subscriber{
		id:     uuid.NewString(),
		conn:   conn,
		events: make(chan []byte, subscriberBuffer),
	}

	// the current snapshot goes first; the next poll may be 30s out
	if snap := r.servers.Snapshot(); !snap.IsLoading {
		if data, err := json.Marshal(snapshotEvent(snap)); err == nil {
			s.events <- data
		}
	}

	total := r.feed.join(s)
	log.Printf("WebSocket client %s connected from %s (%d total)", s.id, remoteIP(req), total)

	go s.write()
	go func() {
		s.read()
		log.Printf("WebSocket client %s disconnected (%d total)", s.id, r.feed.leave(s))
	}()
}

// read discards anything the page sends and returns once the connection
// is gone or stops answering pings
func (s *subscriber) read() {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("WebSocket client %s: %v", s.id, err)
			}
			return
		}
	}
}

// write sends one event per frame and pings between events
func (s *subscriber) write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.events:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remoteIP prefers the proxy's X-Real-IP over the socket address
func remoteIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// snapshotEvent describes a snapshot the way the poller announces it
func snapshotEvent(snap collector.Snapshot) domain.Event {
	if snap.Err != nil {
		return domain.Event{
			Type:      domain.EventServerError,
			Timestamp: snap.UpdatedAt,
			Data:      domain.ServerErrorEvent{Message: snap.Err.Error()},
		}
	}
	return domain.Event{
		Type:      domain.EventServerUpdate,
		Timestamp: snap.UpdatedAt,
		Data:      domain.ServerUpdateEvent{Servers: snap.Servers},
	}
}
