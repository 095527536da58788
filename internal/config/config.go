package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	API    APIConfig    `yaml:"api"`
	Cache  CacheConfig  `yaml:"cache"`
	Events EventsConfig `yaml:"events"`
	Roles  RolesConfig  `yaml:"roles"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	HTTPPort     int           `yaml:"http_port"`
	PollInterval time.Duration `yaml:"poll_interval"`
	AssetsHost   string        `yaml:"assets_host"`
}

// APIConfig describes the remote stats API
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Revalidate time.Duration `yaml:"revalidate"`
	Timeout    time.Duration `yaml:"timeout"`
	Token      string        `yaml:"token"`
	JWTSecret  string        `yaml:"jwt_secret"`
	JWTIssuer  string        `yaml:"jwt_issuer"`
	UserAgent  string        `yaml:"user_agent"`
}

// CacheConfig selects where upstream responses are cached
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // "sqlite", "redis" or "none"
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// EventsConfig holds the optional NATS publisher settings
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// RolesConfig overrides the built-in role category tables.
// A nil list keeps the built-in table for that category.
type RolesConfig struct {
	NonRoles        []string `yaml:"non_roles"`
	TraitRoles      []string `yaml:"trait_roles"`
	SpawnerRoles    []string `yaml:"spawner_roles"`
	GhostRoles      []string `yaml:"ghost_roles"`
	AntagonistRoles []string `yaml:"antagonist_roles"`
}

// Cache backends
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

var (
	ErrMissingBaseURL = errors.New("api.base_url is required")
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// Load reads configuration from a YAML file.
// ${VAR} references are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.PollInterval == 0 {
		cfg.Server.PollInterval = 30 * time.Second
	}
	// AssetsHost intentionally has no default here - empty means the go-echarts CDN

	if cfg.API.Revalidate == 0 {
		cfg.API.Revalidate = time.Hour
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.API.JWTIssuer == "" {
		cfg.API.JWTIssuer = "stationstats"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheSQLite
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "/var/lib/stationstats/cache.db"
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "127.0.0.1:6379"
	}
	if cfg.Cache.PruneInterval == 0 {
		cfg.Cache.PruneInterval = 15 * time.Minute
	}

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "stationstats.servers"
	}
}

// Validate checks settings that have no sensible default
func (cfg *Config) Validate() error {
	if cfg.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	switch cfg.Cache.Backend {
	case CacheSQLite, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Cache.Backend)
	}
	if cfg.Server.PollInterval < 0 {
		return fmt.Errorf("server.poll_interval must be positive, got %v", cfg.Server.PollInterval)
	}
	return nil
}
