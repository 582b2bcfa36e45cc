package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	Ingest    IngestConfig    `yaml:"ingest"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents server identity configuration
type ServerConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	PublicAppURL string `yaml:"public_app_url"`
}

// APIConfig represents API listener configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig represents Redis configuration. An empty Addr keeps the
// rate-limit and idempotency stores in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig represents NATS configuration. An empty URL disables alert
// event publishing.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// AuthConfig represents credential resolution configuration
type AuthConfig struct {
	// TrustProxyHeaders honors X-User-Id/X-User-Email set by an upstream
	// gateway. Only enable behind a trusted proxy.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	// SessionCookie is the cookie name checked by the cookie strategy.
	SessionCookie string `yaml:"session_cookie"`
}

// IngestConfig represents device ingestion configuration
type IngestConfig struct {
	HMACSecret string `yaml:"hmac_secret"`

	// ReplayWindow bounds the X-Timestamp skew accepted on signed requests.
	ReplayWindow time.Duration `yaml:"replay_window"`

	// IdempotencyTTL is how long processed Idempotency-Keys are remembered.
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`

	MaxBatchSize int `yaml:"max_batch_size"`
}

// RateLimitConfig represents per-class fixed-window limits
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	ReadMax     int           `yaml:"read_max"`
	MutationMax int           `yaml:"mutation_max"`
	ChartMax    int           `yaml:"chart_max"`
	IngestMax   int           `yaml:"ingest_max"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		c.Redis.Addr = redisAddr
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if hmacSecret := os.Getenv("HMAC_SECRET"); hmacSecret != "" {
		c.Ingest.HMACSecret = hmacSecret
	}

	if appURL := os.Getenv("PUBLIC_APP_URL"); appURL != "" {
		c.Server.PublicAppURL = appURL
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
}

// applyDefaults fills in zero values
func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "coldwatch-server"
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.Auth.SessionCookie == "" {
		c.Auth.SessionCookie = "cw_session"
	}

	if c.Ingest.ReplayWindow == 0 {
		c.Ingest.ReplayWindow = 5 * time.Minute
	}
	if c.Ingest.IdempotencyTTL == 0 {
		c.Ingest.IdempotencyTTL = 24 * time.Hour
	}
	if c.Ingest.MaxBatchSize == 0 {
		c.Ingest.MaxBatchSize = 500
	}

	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.ReadMax == 0 {
		c.RateLimit.ReadMax = 60
	}
	if c.RateLimit.MutationMax == 0 {
		c.RateLimit.MutationMax = 20
	}
	if c.RateLimit.ChartMax == 0 {
		c.RateLimit.ChartMax = 10
	}
	if c.RateLimit.IngestMax == 0 {
		c.RateLimit.IngestMax = 100
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate rejects configurations that cannot serve requests
func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Ingest.HMACSecret == "" {
		return fmt.Errorf("ingest.hmac_secret is required")
	}
	return nil
}
