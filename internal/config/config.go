// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load .env file to environments
	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted by STORAGE_BACKEND
const (
	StorageInline = "inline"
	StorageGCS    = "gcs"
	StorageS3     = "s3"
)

// Config is the root configuration of the API server.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Timezone string `yaml:"timezone"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	RateLimit       int           `yaml:"rate_limit"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          string `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Name          string `yaml:"name"`
	UseConnString bool   `yaml:"use_connection_str"`
	ConnString    string `yaml:"connection_str"`
}

// AuthConfig holds token and OAuth settings.
type AuthConfig struct {
	SecretKey          string        `yaml:"secret_key"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	GoogleClientID     string        `yaml:"google_client_id"`
	GoogleClientSecret string        `yaml:"google_client_secret"`
	OauthRedirectURL   string        `yaml:"oauth_redirect_url"`
	AdminUsername      string        `yaml:"admin_username"`
	AdminPassword      string        `yaml:"admin_password"`
}

// RedisConfig holds the optional Redis connection used by the change broker and token blacklist.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig selects where uploaded files live.
type StorageConfig struct {
	Backend string    `yaml:"backend"`
	GCS     GCSConfig `yaml:"gcs"`
	S3      S3Config  `yaml:"s3"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket string `yaml:"bucket"`
}

// S3Config holds S3 compatible storage settings.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AuthAudit bool   `yaml:"auth_audit"`
}

// Default returns the configuration used when neither file nor environment set a value.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "montalban-jobs",
			Env:      "development",
			Timezone: "Local",
		},
		Server: ServerConfig{
			Port:            8080,
			RateLimit:       5,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Port: "5432",
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Storage: StorageConfig{
			Backend: StorageInline,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads CONFIG_PATH (when set) on top of the defaults and then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator controlled env
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Env, "APP_ENV")
	setString(&c.App.Timezone, "APP_TIMEZONE")

	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Server.RateLimit, "RATE_LIMIT_REQUESTS_PER_SECOND"); err != nil {
		return err
	}
	if v := os.Getenv("ALLOW_ORIGIN"); v != "" {
		c.Server.AllowOrigins = splitList(v)
	}

	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USERNAME")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_DATABASE")
	setString(&c.Database.ConnString, "DB_CONNECTION_STR")
	if err := setBool(&c.Database.UseConnString, "USE_CONNECTION_STR"); err != nil {
		return err
	}

	setString(&c.Auth.SecretKey, "SECRET_KEY")
	setString(&c.Auth.GoogleClientID, "GOOGLE_AUTH_CLIENT")
	setString(&c.Auth.GoogleClientSecret, "GOOGLE_AUTH_SECRET")
	setString(&c.Auth.OauthRedirectURL, "OAUTH_REDIRECT_URL")
	setString(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&c.Auth.AdminPassword, "ADMIN_PASSWORD")
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL is invalid: %w", err)
		}
		c.Auth.TokenTTL = d
	}

	setString(&c.Redis.URL, "REDIS_URL")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.GCS.Bucket, "GCS_BUCKET")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.Region, "S3_REGION")
	setString(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	if err := setBool(&c.Logging.AuthAudit, "LOGGING"); err != nil {
		return err
	}

	return nil
}

// Validate checks value combinations that can't be expressed by types.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageInline:
	case StorageGCS:
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for storage backend %q", StorageGCS)
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for storage backend %q", StorageS3)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 5
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the time zone used to compose interview schedules.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || strings.EqualFold(c.App.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	return loc, nil
}

// DatabaseDSN builds the PostgreSQL DSN from the discrete fields or returns the raw connection string.
func (c *Config) DatabaseDSN() (string, error) {
	d := c.Database
	if d.UseConnString {
		if d.ConnString == "" {
			return "", fmt.Errorf("DB_CONNECTION_STR is empty")
		}
		return d.ConnString, nil
	}
	if d.Host == "" || d.Port == "" || d.User == "" || d.Password == "" || d.Name == "" {
		return "", fmt.Errorf("database configuration is incomplete")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name), nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s environments variables are invalid: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
