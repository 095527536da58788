package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ernie/stationstats/internal/auth"
	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/storage"
	"github.com/google/uuid"
)

var (
	// ErrUpstream is returned for any failed or malformed upstream response.
	// Details are logged, not returned.
	ErrUpstream    = errors.New("internal API error")
	ErrInvalidCkey = errors.New("invalid ckey")
)

const (
	serverPath     = "/v2/server"
	playerPath     = "/v2/player"
	charactersPath = "/v2/player/characters"
	roletimePath   = "/v2/player/roletime"
	activityPath   = "/v2/player/activity"

	maxBodySize = 8 << 20
)

// Client talks to the remote stats API
type Client struct {
	baseURL    string
	http       *http.Client
	cache      storage.Cache
	revalidate time.Duration
	tokens     *auth.TokenSource
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache caches successful player responses for revalidate
func WithCache(cache storage.Cache, revalidate time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.revalidate = revalidate
	}
}

// WithTokenSource sends a bearer token with every request
func WithTokenSource(tokens *auth.TokenSource) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
		cache:      storage.Nop{},
		revalidate: time.Hour,
		userAgent:  "stationstats",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response is the settled result of one request
type response struct {
	status int
	body   []byte
	err    error
}

func (r response) ok() bool {
	return r.err == nil && r.status >= 200 && r.status < 300
}

// CanonicalCkey reduces a BYOND key to its ckey: lowercase letters and digits only
func CanonicalCkey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GetPlayer fetches the player, characters, roletime and activity resources
// in parallel and merges them. It returns nil, nil when the player does not
// exist, and ErrUpstream for any other failure.
func (c *Client) GetPlayer(ctx context.Context, ckey string) (*domain.Player, error) {
	if ckey == "" {
		return nil, ErrInvalidCkey
	}

	query := "?ckey=" + url.QueryEscape(ckey)
	paths := [4]string{
		playerPath + query,
		charactersPath + query,
		roletimePath + query,
		activityPath + query,
	}

	var results [4]response
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.fetch(ctx, path, true)
		}()
	}
	wg.Wait()

	for i, res := range results {
		if res.err != nil {
			log.Printf("Upstream request %s failed: %v", paths[i], res.err)
			return nil, ErrUpstream
		}
	}
	for i, res := range results {
		if !res.ok() {
			if results[0].status == http.StatusNotFound {
				return nil, nil
			}
			log.Printf("Upstream request %s returned %d", paths[i], res.status)
			return nil, ErrUpstream
		}
	}

	var player domain.Player
	if err := json.Unmarshal(results[0].body, &player); err != nil {
		log.Printf("Decoding player %s: %v", ckey, err)
		return nil, ErrUpstream
	}
	if err := json.Unmarshal(results[1].body, &player.Characters); err != nil {
		log.Printf("Decoding characters of %s: %v", ckey, err)
		return nil, ErrUpstream
	}
	if err := json.Unmarshal(results[2].body, &player.Roletime); err != nil {
		log.Printf("Decoding roletime of %s: %v", ckey, err)
		return nil, ErrUpstream
	}
	if err := json.Unmarshal(results[3].body, &player.Activity); err != nil {
		log.Printf("Decoding activity of %s: %v", ckey, err)
		return nil, ErrUpstream
	}

	return &player, nil
}

// GetServers fetches the live status of every server. It is never cached.
func (c *Client) GetServers(ctx context.Context) ([]domain.ServerStatus, error) {
	res := c.fetch(ctx, serverPath, false)
	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, res.err)
	}
	if !res.ok() {
		return nil, fmt.Errorf("%w: server returned %d", ErrUpstream, res.status)
	}

	var servers []domain.ServerStatus
	if err := json.Unmarshal(res.body, &servers); err != nil {
		return nil, fmt.Errorf("%w: decoding servers: %v", ErrUpstream, err)
	}
	return servers, nil
}

// fetch performs a GET against the API. Cacheable requests are answered from
// the cache while fresh, and successful responses are stored back.
func (c *Client) fetch(ctx context.Context, path string, cacheable bool) response {
	key := c.baseURL + path

	if cacheable {
		entry, err := c.cache.Get(ctx, key)
		if err != nil {
			log.Printf("Cache read for %s failed: %v", path, err)
		} else if entry != nil {
			return response{status: http.StatusOK, body: entry.Body}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return response{err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens.Enabled() {
		token, err := c.tokens.Token()
		if err != nil {
			return response{err: fmt.Errorf("getting upstream token: %w", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return response{err: fmt.Errorf("reading body: %w", err)}
	}

	res := response{status: resp.StatusCode, body: body}
	if cacheable && res.ok() {
		if err := c.cache.Put(ctx, key, body, c.revalidate); err != nil {
			log.Printf("Cache write for %s failed: %v", path, err)
		}
	}
	return res
}
