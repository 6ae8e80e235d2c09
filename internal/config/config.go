package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Contact import configuration
	Import ImportConfig

	// Authentication configuration
	Auth AuthConfig

	// Redis configuration (token revocation)
	Redis RedisConfig

	// Funnel board configuration
	Board BoardConfig

	// Logging configuration
	Log LogConfig

	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	PublicURL       string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigin   string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
	// TrustedProxies lists the proxy CIDRs whose X-Forwarded-For is honoured.
	// Empty means the client address is always the socket peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"5432"`
	User         string        `env:"DB_USER" envDefault:"postgres"`
	Password     string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name         string        `env:"DB_NAME" envDefault:"funnel_crm"`
	SSLMode      string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME" envDefault:"5m"`
}

// ImportConfig holds contact import job settings
type ImportConfig struct {
	BatchSize     int    `env:"IMPORT_BATCH_SIZE" envDefault:"500"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./data/uploads"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"funnel-crm-api"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	APIKeyTTL      time.Duration `env:"API_KEY_TTL" envDefault:"8760h"`
	LoginRateLimit float64       `env:"LOGIN_RATE_LIMIT" envDefault:"0.2"` // requests per second per client
	LoginBurst     int           `env:"LOGIN_BURST" envDefault:"5"`
}

// RedisConfig holds the optional Redis connection used for token revocation.
// An empty address selects the in-memory store.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// BoardConfig holds funnel board rules
type BoardConfig struct {
	ClosedStageNames []string `env:"CLOSED_STAGE_NAMES" envSeparator:"," envDefault:"Fechado,Closed,Won"`
	DueLookaheadDays int      `env:"DUE_LOOKAHEAD_DAYS" envDefault:"3"`
	Timezone         string   `env:"TIMEZONE" envDefault:"UTC"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "pretty"
}

// Load reads configuration from the environment, after an optional .env file
func Load() (*Config, error) {
	// .env is only present in local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	if c.Board.DueLookaheadDays < 0 {
		return fmt.Errorf("DUE_LOOKAHEAD_DAYS must not be negative")
	}
	if _, err := time.LoadLocation(c.Board.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Board.Timezone, err)
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Location returns the board timezone, falling back to UTC
func (c *BoardConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsClosedStage reports whether a stage name marks won deals
func (c *BoardConfig) IsClosedStage(name string) bool {
	name = strings.TrimSpace(name)
	for _, closed := range c.ClosedStageNames {
		if strings.EqualFold(strings.TrimSpace(closed), name) {
			return true
		}
	}
	return false
}
