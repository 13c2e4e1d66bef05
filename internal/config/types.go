package config

import "time"

// Config represents the main configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Rewrite   RewriteConfig   `yaml:"rewrite" mapstructure:"rewrite"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	MapStore  MapStoreConfig  `yaml:"mapstore" mapstructure:"mapstore"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// RewriteConfig contains rewriting defaults.
type RewriteConfig struct {
	// RulesPath points at the YAML rule file loaded at startup and
	// recompiled on change.
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
	// Header is prepended to every output when non-empty.
	Header string `yaml:"header" mapstructure:"header"`
	// Seed fixes the pseudo-random source for reproducible output.
	// Zero means a fresh seed per run.
	Seed int64 `yaml:"seed" mapstructure:"seed"`
	// MaxTextBytes bounds the accepted input size for one run.
	MaxTextBytes int64 `yaml:"max_text_bytes" mapstructure:"max_text_bytes"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// MapStoreConfig contains the shared Redis mapping store configuration.
type MapStoreConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// HistoryConfig contains the run history store configuration.
type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// WebSocketConfig contains the live event feed configuration.
type WebSocketConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Path           string   `yaml:"path" mapstructure:"path"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RateLimitConfig contains per-client request rate limiting.
type RateLimitConfig struct {
	Enabled        bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// BatchConfig contains batch pipeline configuration.
type BatchConfig struct {
	Workers   int    `yaml:"workers" mapstructure:"workers"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	AuditFile string `yaml:"audit_file" mapstructure:"audit_file"`
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Rewrite: RewriteConfig{
			RulesPath:    "rules.yaml",
			MaxTextBytes: 8 << 20,
		},
		MapStore: MapStoreConfig{
			RedisURL:       "redis://localhost:6379/0",
			KeyPrefix:      "reword:map:",
			TTL:            7 * 24 * time.Hour,
			MaxConnections: 10,
			MinIdleConns:   2,
		},
		History: HistoryConfig{
			DatabaseURL:     "postgres://localhost:5432/rewordapp?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerSec: 20,
			Burst:          40,
		},
		Batch: BatchConfig{
			Workers:   4,
			OutputDir: "rewritten",
			AuditFile: "rewrite-audit.parquet",
		},
	}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return cfg
}
