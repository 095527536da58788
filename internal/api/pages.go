package api

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ernie/stationstats/internal/chart"
	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/stats"
	"github.com/ernie/stationstats/internal/upstream"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// invalid max-bars input is dimmed, not rejected
	invalidInputOpacity = 0.7

	defaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
)

var gamestates = map[int]string{
	0: "Starting",
	1: "Lobby",
	2: "Setting up",
	3: "Playing",
	4: "Round over",
}

type pageRenderer struct {
	pages map[string]*template.Template
}

func newPageRenderer() *pageRenderer {
	p := &pageRenderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{"status.html", "player.html", "error.html"} {
		p.pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return p
}

// render executes a page into a buffer first so template errors never
// produce half a page
func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := p.pages[name].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

type serverRow struct {
	Name    string
	Round   int
	Players int
	Map     string
	State   string
	Online  bool
}

type statusPage struct {
	Title     string
	Servers   []serverRow
	Error     string
	IsLoading bool
	UpdatedAt string
}

type toggleLink struct {
	Name    string
	Label   string
	Checked bool
	Href    string
}

type playerPage struct {
	Title        string
	Player       *domain.Player
	Ckey         string
	Activity     *chart.Snippet
	TotalRounds  int
	Roletime     *chart.Snippet
	Toggles      []toggleLink
	Input        string
	InputInvalid bool
	InputOpacity float64
	Hidden       map[string]string
	BaseHref     string
	EChartsJS    string
}

type errorPage struct {
	Title   string
	Status  int
	Message string
}

func newServerRow(s domain.ServerStatus) serverRow {
	state, ok := gamestates[s.Int("gamestate")]
	if !ok {
		state = s.String("gamestate")
	}
	return serverRow{
		Name:    s.Name(),
		Round:   s.Int("round_id"),
		Players: s.Int("players"),
		Map:     s.String("map_name"),
		State:   state,
		Online:  s.Online(),
	}
}

// handleStatusPage renders the server list; the page keeps itself
// current over /ws
func (r *Router) handleStatusPage(w http.ResponseWriter, req *http.Request) {
	resp := serversFromSnapshot(r.servers)
	page := statusPage{
		Title:     "Servers",
		IsLoading: resp.IsLoading,
	}
	for _, s := range resp.Servers {
		page.Servers = append(page.Servers, newServerRow(s))
	}
	if resp.Error != nil {
		page.Error = *resp.Error
	}
	if resp.UpdatedAt != nil {
		page.UpdatedAt = resp.UpdatedAt.Format("15:04:05 MST")
	}
	r.pages.render(w, http.StatusOK, "status.html", page)
}

// handlePlayerPage renders a player with both charts, applying the
// view-state action carried in the query string
func (r *Router) handlePlayerPage(w http.ResponseWriter, req *http.Request) {
	player, status, err := r.loadPlayer(req)
	if err != nil {
		r.renderError(w, status, err.Error())
		return
	}

	rc, _, err := r.roletimeChart(player, req)
	if err != nil {
		r.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	// links are built from the ckey the player was loaded by
	ckey := upstream.CanonicalCkey(req.PathValue("ckey"))
	page := playerPage{
		Title:     player.ByondKey,
		Player:    player,
		Ckey:      ckey,
		BaseHref:  "/players/" + url.PathEscape(ckey),
		EChartsJS: echartsScript(r.assetsHost),
	}

	if len(player.Activity) > 0 {
		days := stats.ActivitySeries(player.Activity, r.now())
		snippet := chart.ActivitySnippet(days, rc.Width(), r.assetsHost)
		page.Activity = &snippet
		page.TotalRounds = stats.TotalRounds(days)
	}

	if len(player.Roletime) > 0 {
		snippet := chart.RoletimeSnippet(rc.Visible(), rc.Width(), r.assetsHost)
		page.Roletime = &snippet
		page.Input = rc.Input()
		page.InputInvalid = rc.InputInvalid()
		page.InputOpacity = 1
		if rc.InputInvalid() {
			page.InputOpacity = invalidInputOpacity
		}

		state := viewQuery(rc)
		for _, cat := range stats.Categories() {
			q := viewQuery(rc)
			q.Set(actionToggle, cat.Name())
			q.Set(actionChecked, strconv.FormatBool(!rc.Options().Has(cat)))
			page.Toggles = append(page.Toggles, toggleLink{
				Name:    cat.Name(),
				Label:   cat.Label(),
				Checked: rc.Options().Has(cat),
				Href:    page.BaseHref + "?" + q.Encode(),
			})
		}

		// the input form carries the current state; its own field is the action
		page.Hidden = map[string]string{
			paramShow:    state.Get(paramShow),
			paramMaxBars: state.Get(paramMaxBars),
			paramInput:   state.Get(paramInput),
			paramWidth:   state.Get(paramWidth),
		}
	}

	r.pages.render(w, http.StatusOK, "player.html", page)
}

func echartsScript(assetsHost string) string {
	if assetsHost == "" {
		assetsHost = defaultAssetsHost
	}
	if !strings.HasSuffix(assetsHost, "/") {
		assetsHost += "/"
	}
	return assetsHost + "echarts.min.js"
}

func (r *Router) renderError(w http.ResponseWriter, status int, message string) {
	title := http.StatusText(status)
	if status == http.StatusNotFound {
		title = "Player not found"
	}
	if message != "" {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	r.pages.render(w, status, "error.html", errorPage{
		Title:   title,
		Status:  status,
		Message: message,
	})
}
