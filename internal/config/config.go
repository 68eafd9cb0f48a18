package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Submission store
	Store StoreConfig

	// Database configuration, used by the postgres store
	Database DatabaseConfig

	// Snapshot import configuration
	Import ImportConfig

	// Attachment upload configuration
	Upload UploadConfig

	// Admin session configuration
	Auth AuthConfig

	// Notification mail configuration
	Mail MailConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// Timezone used to render export dates and to evaluate period filters
	Timezone string
	// AttemptsPerMinute caps PIN lookups and admin logins per client IP, 0 disables
	AttemptsPerMinute int
}

// Location returns the configured timezone, UTC when it cannot be loaded
func (c *ServerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StoreConfig selects where submissions are kept
type StoreConfig struct {
	Driver       string // "postgres" or "file"
	SnapshotPath string // whole-array JSON file for the file driver
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// ImportConfig holds snapshot import job settings
type ImportConfig struct {
	BatchSize     int
	MaxUploadSize int64 // in bytes
	UploadDir     string
	Workers       int
	PollInterval  time.Duration
}

// UploadConfig bounds attachments sent with a pengajuan
type UploadConfig struct {
	MaxFileSize      int64 // in bytes, per file
	MaxRequestSize   int64 // in bytes, whole multipart body
	ThumbnailWidth   int
	ThumbnailHeight  int
	ThumbnailQuality int
}

// AuthConfig holds the admin account and session settings
type AuthConfig struct {
	Username     string
	PasswordHash string // bcrypt
	Secret       string
	SessionTTL   time.Duration
}

// MailConfig holds SMTP settings; an empty Host disables notifications
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Recipients maps supervisor names to addresses
	Recipients map[string]string
	Fallback   string
}

// Enabled reports whether notification mail is configured
func (c *MailConfig) Enabled() bool {
	return c.Host != ""
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables. A .env file in the working
// directory is loaded first when present; a YAML file named by CONFIG_FILE supplies
// values for keys the environment leaves unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	return src.build()
}

func (s *source) build() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:              s.getEnv("PORT", "8080"),
			ReadTimeout:       s.getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      s.getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   s.getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Timezone:          s.getEnv("TIMEZONE", "Asia/Jakarta"),
			AttemptsPerMinute: s.getIntEnv("AUTH_ATTEMPTS_PER_MINUTE", 5),
		},
		Store: StoreConfig{
			Driver:       s.getEnv("STORE_DRIVER", StorePostgres),
			SnapshotPath: s.getEnv("STORE_SNAPSHOT_PATH", "./data/pengajuan.json"),
		},
		Database: DatabaseConfig{
			Host:           s.getEnv("DB_HOST", "localhost"),
			Port:           s.getEnv("DB_PORT", "5432"),
			User:           s.getEnv("DB_USER", "postgres"),
			Password:       s.getEnv("DB_PASSWORD", "postgres"),
			Name:           s.getEnv("DB_NAME", "pengajuan_konten"),
			SSLMode:        s.getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   s.getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   s.getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    s.getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: s.getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Import: ImportConfig{
			BatchSize:     s.getIntEnv("IMPORT_BATCH_SIZE", 200),
			MaxUploadSize: s.getInt64Env("MAX_IMPORT_SIZE", 200*1024*1024), // 200MB
			UploadDir:     s.getEnv("UPLOAD_DIR", "./data/uploads"),
			Workers:       s.getIntEnv("IMPORT_WORKERS", 2),
			PollInterval:  s.getDurationEnv("IMPORT_POLL_INTERVAL", time.Second),
		},
		Upload: UploadConfig{
			MaxFileSize:      s.getInt64Env("MAX_FILE_SIZE", 10*1024*1024),     // 10MB
			MaxRequestSize:   s.getInt64Env("MAX_REQUEST_SIZE", 100*1024*1024), // 100MB
			ThumbnailWidth:   s.getIntEnv("THUMBNAIL_WIDTH", 200),
			ThumbnailHeight:  s.getIntEnv("THUMBNAIL_HEIGHT", 200),
			ThumbnailQuality: s.getIntEnv("THUMBNAIL_QUALITY", 70),
		},
		Auth: AuthConfig{
			Username:     s.getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: s.getEnv("ADMIN_PASSWORD_HASH", ""),
			Secret:       s.getEnv("SESSION_SECRET", ""),
			SessionTTL:   s.getDurationEnv("SESSION_TTL", 8*time.Hour),
		},
		Mail: MailConfig{
			Host:       s.getEnv("SMTP_HOST", ""),
			Port:       s.getIntEnv("SMTP_PORT", 587),
			Username:   s.getEnv("SMTP_USERNAME", ""),
			Password:   s.getEnv("SMTP_PASSWORD", ""),
			From:       s.getEnv("MAIL_FROM", "noreply@localhost"),
			Recipients: s.getMapEnv("MAIL_SUPERVISORS"),
			Fallback:   s.getEnv("MAIL_FALLBACK", ""),
		},
		Log: LogConfig{
			Level:  s.getEnv("LOG_LEVEL", "info"),
			Format: s.getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case StoreFile:
		if c.Store.SnapshotPath == "" {
			return fmt.Errorf("STORE_SNAPSHOT_PATH is required for the file store")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q, must be postgres or file", c.Store.Driver)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Auth.PasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Server.AttemptsPerMinute < 0 {
		return fmt.Errorf("AUTH_ATTEMPTS_PER_MINUTE must not be negative")
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be positive")
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

// source resolves keys from the environment, then from the YAML overlay
type source struct {
	overlay map[string]string
}

func newSource(path string) (*source, error) {
	s := &source{overlay: map[string]string{}}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	flatten("", raw, s.overlay)
	return s, nil
}

// flatten maps nested YAML keys onto env names: db: {host: x} becomes DB_HOST
func flatten(prefix string, in map[string]interface{}, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Helper functions for environment variable parsing

func (s *source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.overlay[key]
}

func (s *source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *source) getIntEnv(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (s *source) getInt64Env(key string, defaultValue int64) int64 {
	if value := s.lookup(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (s *source) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := s.lookup(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getMapEnv parses "name=value,name=value"
func (s *source) getMapEnv(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s.lookup(key), ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name != "" && value != "" {
			out[name] = value
		}
	}
	return out
}
