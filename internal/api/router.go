package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/ernie/stationstats/internal/collector"
	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/stats"
)

// PlayerFetcher loads a merged player record. It returns nil, nil for
// players the API does not know.
type PlayerFetcher interface {
	GetPlayer(ctx context.Context, ckey string) (*domain.Player, error)
}

// ServerSource provides the latest server status and its change events
type ServerSource interface {
	Snapshot() collector.Snapshot
	Events() <-chan domain.Event
}

// EventPublisher forwards poll events outside the process
type EventPublisher interface {
	Publish(event domain.Event) error
}

// Router holds the HTTP routes and dependencies
type Router struct {
	mux        *http.ServeMux
	players    PlayerFetcher
	servers    ServerSource
	classifier *stats.Classifier
	publisher  EventPublisher
	feed       *statusFeed
	pages      *pageRenderer
	assetsHost string
	now        func() time.Time
}

// NewRouter creates a new HTTP router. publisher may be nil.
func NewRouter(players PlayerFetcher, servers ServerSource, classifier *stats.Classifier, publisher EventPublisher, assetsHost string) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		players:    players,
		servers:    servers,
		classifier: classifier,
		publisher:  publisher,
		feed:       newStatusFeed(),
		pages:      newPageRenderer(),
		assetsHost: assetsHost,
		now:        time.Now,
	}

	// Pages
	r.mux.HandleFunc("GET /{$}", r.handleStatusPage)
	r.mux.HandleFunc("GET /players/{ckey}", r.handlePlayerPage)

	// API routes
	r.mux.HandleFunc("GET /api/servers", r.handleGetServers)
	r.mux.HandleFunc("GET /api/players/{ckey}", r.handleGetPlayer)
	r.mux.HandleFunc("GET /api/players/{ckey}/roletime", r.handleGetRoletime)
	r.mux.HandleFunc("GET /api/players/{ckey}/activity", r.handleGetActivity)

	// WebSocket endpoint
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Handler returns the router with gzip compression. The WebSocket
// endpoint bypasses compression so the connection can be hijacked.
func (r *Router) Handler() http.Handler {
	gz := gzhttp.GzipHandler(r)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/ws" {
			r.ServeHTTP(w, req)
			return
		}
		gz.ServeHTTP(w, req)
	})
}

// StartEventForwarding forwards poll events to connected status pages and
// the event publisher until the event channel closes
func (r *Router) StartEventForwarding() {
	go func() {
		for event := range r.servers.Events() {
			r.feed.publish(event)
			if r.publisher != nil {
				if err := r.publisher.Publish(event); err != nil {
					log.Printf("Error publishing %s event: %v", event.Type, err)
				}
			}
		}
	}()
}
