package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
// Values come from defaults, then an optional TOML file, then environment variables.
type Config struct {
	// Server
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`

	// HTTP client (Supabase)
	HTTPTimeout time.Duration `toml:"http_timeout"`

	// Resilience
	MaxRetries     int           `toml:"max_retries"`
	InitialBackoff time.Duration `toml:"initial_backoff"`
	MaxConcurrency int           `toml:"max_concurrency"`

	// Cache
	CacheTTL time.Duration `toml:"cache_ttl"`

	// Observability
	OTLPEndpoint string `toml:"otlp_endpoint"`

	// Storage
	StoreBackend string `toml:"store_backend"`
	SQLitePath   string `toml:"sqlite_path"`

	// Supabase
	SupabaseURL        string `toml:"supabase_url"`
	SupabaseAnonKey    string `toml:"supabase_anon_key"`
	SupabaseServiceKey string `toml:"supabase_service_role_key"`

	// JWT guard on /v1; empty disables it.
	JWTSecret string `toml:"jwt_secret"`

	// Preprocessing: most recent transactions read per vehicle as history.
	HistoryLimit int `toml:"history_limit"`
}

func defaults() *Config {
	return &Config{
		Port:           8080,
		LogLevel:       "info",
		HTTPTimeout:    10 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxConcurrency: 8,
		CacheTTL:       5 * time.Minute,
		StoreBackend:   BackendSQLite,
		SQLitePath:     "fleetsight.db",
		HistoryLimit:   1000,
	}
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile decodes a TOML file over the defaults; environment variables
// still take precedence over the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)

	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.InitialBackoff = getEnvDuration("INITIAL_BACKOFF", cfg.InitialBackoff)
	cfg.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", cfg.MaxConcurrency)

	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)

	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)

	cfg.SupabaseURL = getEnv("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseAnonKey = getEnv("SUPABASE_ANON_KEY", cfg.SupabaseAnonKey)
	cfg.SupabaseServiceKey = getEnv("SUPABASE_SERVICE_ROLE_KEY", cfg.SupabaseServiceKey)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", cfg.HistoryLimit)
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.StoreBackend, BackendSupabase, BackendSQLite)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
