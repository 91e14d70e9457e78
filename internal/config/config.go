// Package config loads community mapper configuration from flags, environment variables and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Media    MediaConfig
	Auth     AuthConfig
	Search   SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // search index, auth key and the default SQLite file live here
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json, pretty, text; empty picks from the environment
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// DatabaseConfig describes the relational store and the connection pool limits.
type DatabaseConfig struct {
	Driver string

	// SQLite
	Path string

	// PostgreSQL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
}

// MediaConfig holds configuration for the person media store.
type MediaConfig struct {
	UploadDir      string
	MaxUploadBytes int64
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	CookieName           string
	SecureCookie         bool
	LoginRatePerMinute   int
}

// SearchConfig holds full-text search configuration.
type SearchConfig struct {
	Enabled bool
}

// Overrides maps environment variable names to values that take precedence
// over the environment. Flags are turned into overrides.
type Overrides map[string]string

// LoadConfig parses args as command-line flags and loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("community-mapper", flag.ContinueOnError)

	envFile := fs.String("env-file", ".env", "Path to .env file")
	flags := map[string]*string{
		"ENV":         fs.String("env", "", "Environment (development, staging, production)"),
		"LOG_LEVEL":   fs.String("log-level", "", "Log level (debug, info, warn, error)"),
		"LOG_FORMAT":  fs.String("log-format", "", "Log format (json, pretty, text)"),
		"DATA_PATH":   fs.String("data-path", "", "Directory for local state"),
		"SERVER_PORT": fs.String("port", "", "Server port (default: 8080)"),
		"DB_DRIVER":   fs.String("db-driver", "", "Database driver (sqlite, postgres)"),
		"DB_PATH":     fs.String("db-path", "", "SQLite database file"),
		"DB_HOST":     fs.String("db-host", "", "PostgreSQL host"),
		"DB_PORT":     fs.String("db-port", "", "PostgreSQL port"),
		"DB_NAME":     fs.String("db-name", "", "PostgreSQL database name"),
		"UPLOAD_DIR":  fs.String("upload-dir", "", "Base directory for person media"),
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	overrides := Overrides{}
	for key, value := range flags {
		if *value != "" {
			overrides[key] = *value
		}
	}

	return Load(*envFile, overrides)
}

// Load reads envFile (when present) and builds the configuration.
// Database credentials have no defaults.
func Load(envFile string, overrides Overrides) (*Config, error) {
	if envFile != "" {
		// godotenv never overwrites variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := values{overrides: overrides}

	cfg := &Config{
		App: AppConfig{
			Environment: v.str("ENV", "development"),
			DataPath:    v.str("DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level:  v.str("LOG_LEVEL", "info"),
			Format: v.str("LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Port:         v.str("SERVER_PORT", "8080"),
			ReadTimeout:  v.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: v.duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  v.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:  v.list("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.str("DB_DRIVER", DriverSQLite)),
			Path:            v.str("DB_PATH", ""),
			Host:            v.str("DB_HOST", ""),
			Port:            v.integer("DB_PORT", 5432),
			User:            v.str("DB_USER", ""),
			Password:        v.str("DB_PASSWORD", ""),
			Name:            v.str("DB_NAME", ""),
			SSLMode:         v.str("DB_SSLMODE", "disable"),
			MaxOpenConns:    v.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    v.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: v.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectTimeout:  v.duration("DB_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:    v.duration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Media: MediaConfig{
			UploadDir:      v.str("UPLOAD_DIR", ""),
			MaxUploadBytes: int64(v.integer("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Auth: AuthConfig{
			AccessTokenDuration:  v.duration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: v.duration("REFRESH_TOKEN_DURATION", 720*time.Hour),
			CookieName:           v.str("SESSION_COOKIE_NAME", "cm_session"),
			SecureCookie:         v.boolean("SESSION_COOKIE_SECURE", false),
			LoginRatePerMinute:   v.integer("LOGIN_RATE_PER_MINUTE", 10),
		},
		Search: SearchConfig{
			Enabled: v.boolean("SEARCH_ENABLED", true),
		},
	}

	if err := errors.Join(v.errs...); err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "json", "pretty", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logger.Format)
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.Media.UploadDir == "" {
		return errors.New("upload directory cannot be empty after expansion")
	}
	if c.Media.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}

	if c.Auth.AccessTokenDuration <= 0 || c.Auth.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}

	return nil
}

// Validate checks the driver-specific settings and pool limits.
func (d DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		var missing []string
		if d.Host == "" {
			missing = append(missing, "DB_HOST")
		}
		if d.User == "" {
			missing = append(missing, "DB_USER")
		}
		if d.Name == "" {
			missing = append(missing, "DB_NAME")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres driver requires %s", strings.Join(missing, ", "))
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("invalid DB_PORT: %d", d.Port)
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", d.Driver)
	}

	if d.MaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if d.MaxIdleConns < 0 || d.MaxIdleConns > d.MaxOpenConns {
		return errors.New("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS")
	}
	if d.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	return nil
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverPostgres {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   d.Host + ":" + strconv.Itoa(d.Port),
			Path:   "/" + d.Name,
		}
		q := url.Values{}
		q.Set("sslmode", d.SSLMode)
		if d.ConnectTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	// Pragmas are per connection, so they go in the DSN rather than a one-off Exec.
	return "file:" + d.Path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
}

// Redacted returns the DSN with the password masked, for logs.
func (d DatabaseConfig) Redacted() string {
	if d.Driver != DriverPostgres {
		return d.DSN()
	}
	u, err := url.Parse(d.DSN())
	if err != nil {
		return d.Driver
	}
	return u.Redacted()
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, ".community-mapper")); err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	if c.Media.UploadDir, err = expandPath(c.Media.UploadDir, filepath.Join(c.App.DataPath, "uploads")); err != nil {
		return fmt.Errorf("invalid upload dir: %w", err)
	}
	if c.Database.Driver == DriverSQLite {
		if c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(c.App.DataPath, "mapper.db")); err != nil {
			return fmt.Errorf("invalid database path: %w", err)
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is used.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// values resolves a key from overrides, then the environment, then a default,
// collecting parse errors instead of silently falling back.
type values struct {
	overrides Overrides
	errs      []error
}

func (v *values) str(key, defaultValue string) string {
	if value, ok := v.overrides[key]; ok && value != "" {
		return value
	}
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (v *values) boolean(key string, defaultValue bool) bool {
	s := v.str(key, "")
	if s == "" {
		return defaultValue
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	v.errs = append(v.errs, fmt.Errorf("invalid %s %q: want true or false", key, s))
	return defaultValue
}

func (v *values) integer(key string, defaultValue int) int {
	s := v.str(key, "")
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v.errs = append(v.errs, fmt.Errorf("invalid %s %q: %w", key, s, err))
		return defaultValue
	}
	return n
}

func (v *values) duration(key string, defaultValue time.Duration) time.Duration {
	s := v.str(key, "")
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		v.errs = append(v.errs, fmt.Errorf("invalid %s %q: %w", key, s, err))
		return defaultValue
	}
	return d
}

func (v *values) list(key string) []string {
	s := v.str(key, "")
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
