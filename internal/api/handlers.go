package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/stats"
	"github.com/ernie/stationstats/internal/upstream"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// serversResponse is the polled server list as the status page sees it
type serversResponse struct {
	Servers   []domain.ServerStatus `json:"servers"`
	Error     *string               `json:"error"`
	IsLoading bool                  `json:"is_loading"`
	UpdatedAt *time.Time            `json:"updated_at"`
}

// activityResponse is the activity chart series
type activityResponse struct {
	Days        []stats.Day `json:"days"`
	TotalRounds int         `json:"total_rounds"`
}

// categoryControl is one checkbox of the role-time filter
type categoryControl struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// roletimeResponse is the role-time filter state after a transition
type roletimeResponse struct {
	Show         string            `json:"show"`
	Categories   []categoryControl `json:"categories"`
	Committed    bool              `json:"committed"`
	MaxBars      int               `json:"max_bars"`
	Input        string            `json:"input"`
	InputInvalid bool              `json:"input_invalid"`
	Width        int               `json:"width"`
	Filtered     int               `json:"filtered"`
	Bars         []stats.Bar       `json:"bars"`
}

func serversFromSnapshot(source ServerSource) serversResponse {
	snap := source.Snapshot()
	resp := serversResponse{
		Servers:   snap.Servers,
		IsLoading: snap.IsLoading,
	}
	if resp.Servers == nil {
		resp.Servers = []domain.ServerStatus{}
	}
	if snap.Err != nil {
		msg := snap.Err.Error()
		resp.Error = &msg
	}
	if !snap.UpdatedAt.IsZero() {
		updated := snap.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func categoryControls(o stats.Options) []categoryControl {
	controls := make([]categoryControl, 0, len(stats.Categories()))
	for _, cat := range stats.Categories() {
		controls = append(controls, categoryControl{
			Name:    cat.Name(),
			Label:   cat.Label(),
			Checked: o.Has(cat),
		})
	}
	return controls
}

// loadPlayer resolves the ckey path value and fetches the player. It
// returns the status to report when the player cannot be shown.
func (r *Router) loadPlayer(req *http.Request) (*domain.Player, int, error) {
	ckey := upstream.CanonicalCkey(req.PathValue("ckey"))
	if ckey == "" {
		return nil, http.StatusBadRequest, upstream.ErrInvalidCkey
	}

	player, err := r.players.GetPlayer(req.Context(), ckey)
	switch {
	case errors.Is(err, upstream.ErrInvalidCkey):
		return nil, http.StatusBadRequest, err
	case err != nil:
		log.Printf("Error loading player %s: %v", ckey, err)
		return nil, http.StatusBadGateway, upstream.ErrUpstream
	case player == nil:
		return nil, http.StatusNotFound, errPlayerNotFound
	}
	return player, http.StatusOK, nil
}

// handleGetServers returns the latest polled server list
func (r *Router) handleGetServers(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, serversFromSnapshot(r.servers))
}

// handleGetPlayer returns the merged player record
func (r *Router) handleGetPlayer(w http.ResponseWriter, req *http.Request) {
	player, status, err := r.loadPlayer(req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// handleGetRoletime applies one view-state transition and returns the result
func (r *Router) handleGetRoletime(w http.ResponseWriter, req *http.Request) {
	player, status, err := r.loadPlayer(req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	chart, committed, err := r.roletimeChart(player, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars := chart.Visible()
	if bars == nil {
		bars = []stats.Bar{}
	}
	writeJSON(w, http.StatusOK, roletimeResponse{
		Show:         chart.Options().String(),
		Categories:   categoryControls(chart.Options()),
		Committed:    committed,
		MaxBars:      chart.MaxBars(),
		Input:        chart.Input(),
		InputInvalid: chart.InputInvalid(),
		Width:        chart.Width(),
		Filtered:     len(chart.Filtered()),
		Bars:         bars,
	})
}

// handleGetActivity returns the player's last 180 days of rounds
func (r *Router) handleGetActivity(w http.ResponseWriter, req *http.Request) {
	player, status, err := r.loadPlayer(req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	days := stats.ActivitySeries(player.Activity, r.now())
	writeJSON(w, http.StatusOK, activityResponse{
		Days:        days,
		TotalRounds: stats.TotalRounds(days),
	})
}

// handleHealth returns a simple health check response
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
