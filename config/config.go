package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Identity      IdentityConfig
	Cookies       CookieConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// IdentityConfig holds the external identity store configuration
type IdentityConfig struct {
	BaseURL     string
	ClientID    string
	HTTPTimeout time.Duration
}

// CookieConfig holds the session cookie contract: names, scope, and fallback
// lifetimes. Max-Age normally tracks the issued tokens' own expiries; the
// TTLs here apply only when the identity store omits them.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	RefreshPath string // refresh cookie is scoped to the auth path only
	Domain      string
	Secure      bool
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// RateLimitConfig holds the per-key limits for sensitive operations. Login
// and refresh are keyed per client IP; the API limit is keyed per subject.
type RateLimitConfig struct {
	LoginLimit    int
	LoginWindow   time.Duration
	RefreshLimit  int
	RefreshWindow time.Duration
	APILimit      int
	APIWindow     time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Identity: IdentityConfig{
			BaseURL:     getEnv("IDENTITY_BASE_URL", "http://localhost:9100"),
			ClientID:    getEnv("IDENTITY_CLIENT_ID", ""),
			HTTPTimeout: getEnvAsDuration("IDENTITY_HTTP_TIMEOUT", 10*time.Second),
		},
		Cookies: CookieConfig{
			AccessName:  getEnv("COOKIE_ACCESS_NAME", "od_access"),
			RefreshName: getEnv("COOKIE_REFRESH_NAME", "od_refresh"),
			RefreshPath: getEnv("COOKIE_REFRESH_PATH", "/auth"),
			Domain:      getEnv("COOKIE_DOMAIN", ""),
			Secure:      getEnvAsBool("COOKIE_SECURE", true),
			AccessTTL:   getEnvAsDuration("COOKIE_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:  getEnvAsDuration("COOKIE_REFRESH_TTL", 7*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:    getEnvAsInt("RATE_LOGIN_LIMIT", 5),
			LoginWindow:   getEnvAsDuration("RATE_LOGIN_WINDOW", time.Minute),
			RefreshLimit:  getEnvAsInt("RATE_REFRESH_LIMIT", 10),
			RefreshWindow: getEnvAsDuration("RATE_REFRESH_WINDOW", time.Minute),
			APILimit:      getEnvAsInt("RATE_API_LIMIT", 120),
			APIWindow:     getEnvAsDuration("RATE_API_WINDOW", time.Minute),
			SweepInterval: getEnvAsDuration("RATE_SWEEP_INTERVAL", 5*time.Minute),
			Retention:     getEnvAsDuration("RATE_RETENTION", time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	// Identity store validation
	if c.Identity.BaseURL == "" {
		return fmt.Errorf("identity store base URL is required")
	}
	if c.IsProduction() && c.Identity.ClientID == "" {
		return fmt.Errorf("identity client ID is required in production")
	}

	// Cookie validation
	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" {
		return fmt.Errorf("cookie names are required")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return fmt.Errorf("access and refresh cookies must use distinct names")
	}
	if c.Cookies.RefreshTTL <= c.Cookies.AccessTTL {
		return fmt.Errorf("refresh cookie TTL must be longer than access cookie TTL")
	}
	if c.IsProduction() && !c.Cookies.Secure {
		return fmt.Errorf("secure cookies are required in production")
	}

	// Rate limit validation
	if c.RateLimit.LoginLimit <= 0 || c.RateLimit.RefreshLimit <= 0 || c.RateLimit.APILimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.RateLimit.LoginWindow <= 0 || c.RateLimit.RefreshWindow <= 0 || c.RateLimit.APIWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "opsdesk"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "opsdesk"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
