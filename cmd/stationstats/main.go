// stationstats - game server status and player statistics dashboard
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ernie/stationstats/internal/api"
	"github.com/ernie/stationstats/internal/auth"
	"github.com/ernie/stationstats/internal/collector"
	"github.com/ernie/stationstats/internal/config"
	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/events"
	"github.com/ernie/stationstats/internal/stats"
	"github.com/ernie/stationstats/internal/storage"
	"github.com/ernie/stationstats/internal/upstream"
)

var version = "dev"

const defaultConfigPath = "/etc/stationstats/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "servers":
		cmdServers(os.Args[2:])
	case "player":
		cmdPlayer(os.Args[2:])
	case "activity":
		cmdActivity(os.Args[2:])
	case "version":
		fmt.Printf("stationstats %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: stationstats <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                               Start the dashboard server")
	fmt.Println("  servers                             Show live server status")
	fmt.Println("  player <ckey> [--show LIST] [--top N]")
	fmt.Println("                                      Show a player's role time")
	fmt.Println("  activity <ckey>                     Show a player's rounds over the last 180 days")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/stationstats/config.yml)")
	fmt.Println("  --url <url>        Base URL of the stationstats server (default: derived from config)")
	fmt.Println("  --json             Print JSON even on a terminal")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  stationstats serve --config /etc/stationstats/config.yml")
	fmt.Println("  stationstats player somekey --show jobs,antagonists --top 10")
	fmt.Println("  stationstats servers --json")
}

// openCache opens the configured response cache backend
func openCache(ctx context.Context, cfg config.CacheConfig) (storage.Cache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		cache, err := storage.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		log.Printf("Caching API responses in Redis at %s", cfg.RedisAddr)
		return cache, nil
	case config.CacheNone:
		log.Printf("API response caching disabled")
		return storage.Nop{}, nil
	default:
		store, err := storage.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Printf("Caching API responses in %s", cfg.Path)
		return store, nil
	}
}

// cmdServe starts the dashboard server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			log.Fatalf("No config file found at %s. Use --config to specify a config file.", defaultConfigPath)
		}
	}

	// Load configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Stationstats %s starting...", version)
	log.Printf("Using stats API at %s", cfg.API.BaseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize response cache
	cache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize response cache: %v", err)
	}
	defer cache.Close()

	// Create API client
	tokens := auth.NewTokenSource(cfg.API.Token, cfg.API.JWTSecret, cfg.API.JWTIssuer)
	if !tokens.Enabled() {
		log.Printf("No API token or JWT secret configured, requests are unauthenticated")
	}
	opts := []upstream.Option{
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		upstream.WithCache(cache, cfg.API.Revalidate),
		upstream.WithTokenSource(tokens),
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, upstream.WithUserAgent(cfg.API.UserAgent))
	}
	client := upstream.NewClient(cfg.API.BaseURL, opts...)

	// Start the server poller
	poller := collector.NewServerPoller(client, cfg.Server.PollInterval)
	poller.Start(ctx)
	log.Printf("Server poller started, polling every %v", cfg.Server.PollInterval)

	go collector.PruneLoop(ctx, cache, cfg.Cache.PruneInterval)

	// Optional NATS publisher
	var publisher api.EventPublisher
	if cfg.Events.NATSURL != "" {
		p, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer p.Close()
		publisher = p
		log.Printf("Publishing server events to %s on %s", cfg.Events.Subject, cfg.Events.NATSURL)
	}

	// Create HTTP router
	roles := domain.DefaultRoleSets().Override(
		cfg.Roles.NonRoles,
		cfg.Roles.TraitRoles,
		cfg.Roles.SpawnerRoles,
		cfg.Roles.GhostRoles,
		cfg.Roles.AntagonistRoles,
	)
	router := api.NewRouter(client, poller, stats.NewClassifier(roles), publisher, cfg.Server.AssetsHost)
	router.StartEventForwarding()

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("Dashboard available at http://%s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	// Sequential shutdown
	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Stopping server poller...")
	poller.Stop()

	cancel()
	log.Println("Shutdown complete")
}

// CLI helper variables
var baseURL = "http://localhost:8080"

// cliFlags registers the flags shared by every client command
func cliFlags(name string) (*flag.FlagSet, *string, *string, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	serverURL := fs.String("url", "", "base URL of the stationstats server")
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	return fs, configPath, serverURL, asJSON
}

// loadCLIConfigFromFlags derives the server URL from config, with --url taking precedence
func loadCLIConfigFromFlags(configPath, serverURL string) {
	if serverURL != "" {
		baseURL = serverURL
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", configPath, err)
		return
	}
	baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
}

// wantJSON reports whether output should be JSON: forced, or stdout is not a terminal
func wantJSON(force bool) bool {
	return force || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// ckeyArg returns the single positional ckey argument
func ckeyArg(fs *flag.FlagSet, usage string) string {
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	ckey := upstream.CanonicalCkey(fs.Arg(0))
	if ckey == "" {
		fail(upstream.ErrInvalidCkey)
	}
	return ckey
}

type serversResult struct {
	Servers   []domain.ServerStatus `json:"servers"`
	Error     *string               `json:"error"`
	IsLoading bool                  `json:"is_loading"`
	UpdatedAt *time.Time            `json:"updated_at"`
}

func cmdServers(args []string) {
	fs, configPath, urlFlag, asJSON := cliFlags("servers")
	fs.Parse(args)
	loadCLIConfigFromFlags(*configPath, *urlFlag)

	var result serversResult
	if err := getJSON("/api/servers", &result); err != nil {
		fail(err)
	}

	if wantJSON(*asJSON) {
		printJSON(result)
		return
	}

	if result.IsLoading {
		fmt.Println("Servers are still loading, try again shortly")
		return
	}
	if result.Error != nil {
		fmt.Fprintf(os.Stderr, "Warning: last poll failed: %s\n", *result.Error)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVER\tROUND\tPLAYERS\tMAP\tSTATUS")
	fmt.Fprintln(w, "------\t-----\t-------\t---\t------")
	for _, srv := range result.Servers {
		status := "ONLINE"
		if !srv.Online() {
			status = "OFFLINE"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", srv.Name(), srv.Int("round_id"), srv.Int("players"), orDash(srv.String("map_name")), status)
	}
	w.Flush()
}

type roletimeResult struct {
	Show         string      `json:"show"`
	MaxBars      int         `json:"max_bars"`
	Input        string      `json:"input"`
	InputInvalid bool        `json:"input_invalid"`
	Filtered     int         `json:"filtered"`
	Bars         []stats.Bar `json:"bars"`
}

func cmdPlayer(args []string) {
	fs, configPath, urlFlag, asJSON := cliFlags("player")
	show := fs.String("show", stats.DefaultOptions.String(), "comma-separated role categories to include")
	top := fs.Int("top", stats.DefaultMaxBars, "number of roles to show")
	fs.Parse(args)
	loadCLIConfigFromFlags(*configPath, *urlFlag)
	ckey := ckeyArg(fs, "stationstats player <ckey> [--show LIST] [--top N]")

	var player domain.Player
	if err := getJSON("/api/players/"+ckey, &player); err != nil {
		fail(err)
	}

	q := urlValues("show", *show, "input", strconv.Itoa(*top))
	var rt roletimeResult
	if err := getJSON("/api/players/"+ckey+"/roletime?"+q, &rt); err != nil {
		fail(err)
	}

	if wantJSON(*asJSON) {
		printJSON(map[string]interface{}{
			"player":   player,
			"roletime": rt,
		})
		return
	}

	fmt.Printf("%s (rounds %d-%d, last seen %s)\n", player.ByondKey, player.FirstSeenRound, player.LastSeenRound, orDash(player.LastSeen))
	if len(player.Roletime) == 0 {
		fmt.Println("No roles found.")
		return
	}
	if rt.InputInvalid {
		fmt.Fprintf(os.Stderr, "Warning: --top %d is out of range (1-%d), showing %d\n", *top, rt.Filtered, rt.MaxBars)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tHOURS\tMINUTES")
	fmt.Fprintln(w, "---\t-----\t-------")
	for _, b := range rt.Bars {
		fmt.Fprintf(w, "%s\t%.1f\t%d\n", b.Job, b.Hours, b.Minutes)
	}
	w.Flush()
	fmt.Printf("Showing %d of %d roles (%s)\n", len(rt.Bars), rt.Filtered, rt.Show)
}

type activityResult struct {
	Days        []stats.Day `json:"days"`
	TotalRounds int         `json:"total_rounds"`
}

func cmdActivity(args []string) {
	fs, configPath, urlFlag, asJSON := cliFlags("activity")
	fs.Parse(args)
	loadCLIConfigFromFlags(*configPath, *urlFlag)
	ckey := ckeyArg(fs, "stationstats activity <ckey>")

	var result activityResult
	if err := getJSON("/api/players/"+ckey+"/activity", &result); err != nil {
		fail(err)
	}

	if wantJSON(*asJSON) {
		printJSON(result)
		return
	}

	if result.TotalRounds == 0 {
		fmt.Println("No activity in the last 180 days.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tROUNDS")
	fmt.Fprintln(w, "----\t------")
	for _, d := range result.Days {
		if d.Rounds > 0 {
			fmt.Fprintf(w, "%s\t%d\n", d.Date, d.Rounds)
		}
	}
	w.Flush()
	fmt.Printf("%d rounds in the last 180 days\n", result.TotalRounds)
}

func urlValues(pairs ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}
	return q.Encode()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func getJSON(path string, target interface{}) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
