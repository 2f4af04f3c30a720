package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// FileEnvVar names the optional configuration file.
const FileEnvVar = "OOPIS_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Shell     ShellConfig     `toml:"shell" yaml:"shell"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Logging   LogConfig       `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `envconfig:"OOPIS_PORT" default:"8080" toml:"port" yaml:"port"`
	Host           string   `envconfig:"OOPIS_HOST" default:"0.0.0.0" toml:"host" yaml:"host"`
	AllowedOrigins []string `envconfig:"OOPIS_ALLOWED_ORIGINS" default:"*" toml:"allowed_origins" yaml:"allowed_origins"`
}

// ShellConfig holds command interpreter settings.
type ShellConfig struct {
	DefaultUser  string `envconfig:"OOPIS_DEFAULT_USER" default:"guest" toml:"default_user" yaml:"default_user"`
	AdminUser    string `envconfig:"OOPIS_ADMIN_USER" default:"root" toml:"admin_user" yaml:"admin_user"`
	ConfirmToken string `envconfig:"OOPIS_CONFIRM_TOKEN" default:"YES" toml:"confirm_token" yaml:"confirm_token"`
	Autosave     bool   `envconfig:"OOPIS_AUTOSAVE" default:"true" toml:"autosave" yaml:"autosave"`
	MaxJobs      int    `envconfig:"OOPIS_MAX_JOBS" default:"16" toml:"max_jobs" yaml:"max_jobs"`
}

// StorageConfig selects and configures the snapshot store.
type StorageConfig struct {
	Backend  string `envconfig:"OOPIS_STORAGE_BACKEND" default:"memory" toml:"backend" yaml:"backend"`
	Dir      string `envconfig:"OOPIS_STORAGE_DIR" default:"./data" toml:"dir" yaml:"dir"`
	Compress bool   `envconfig:"OOPIS_STORAGE_COMPRESS" default:"true" toml:"compress" yaml:"compress"`

	PostgresDSN string `envconfig:"OOPIS_POSTGRES_DSN" toml:"postgres_dsn" yaml:"postgres_dsn"`

	S3Bucket    string `envconfig:"OOPIS_S3_BUCKET" toml:"s3_bucket" yaml:"s3_bucket"`
	S3Region    string `envconfig:"OOPIS_S3_REGION" default:"us-east-1" toml:"s3_region" yaml:"s3_region"`
	S3Endpoint  string `envconfig:"OOPIS_S3_ENDPOINT" toml:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey string `envconfig:"OOPIS_S3_ACCESS_KEY" toml:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey string `envconfig:"OOPIS_S3_SECRET_KEY" toml:"s3_secret_key" yaml:"s3_secret_key"`
	S3Prefix    string `envconfig:"OOPIS_S3_PREFIX" default:"vfs/" toml:"s3_prefix" yaml:"s3_prefix"`

	BreakerMaxFailures    uint32 `envconfig:"OOPIS_BREAKER_MAX_FAILURES" default:"5" toml:"breaker_max_failures" yaml:"breaker_max_failures"`
	BreakerTimeoutSeconds int    `envconfig:"OOPIS_BREAKER_TIMEOUT_SECONDS" default:"30" toml:"breaker_timeout_seconds" yaml:"breaker_timeout_seconds"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"OOPIS_LOG_LEVEL" default:"info" toml:"level" yaml:"level"`
	Development bool   `envconfig:"OOPIS_LOG_DEV" default:"false" toml:"development" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"OOPIS_RATE_LIMIT_RPS" default:"50" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"OOPIS_RATE_LIMIT_BURST" default:"100" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"OOPIS_RATE_LIMIT_ENABLED" default:"true" toml:"enabled" yaml:"enabled"`
}

// Load reads environment variables (with defaults) and then applies the
// file named by OOPIS_CONFIG, if set. Keys present in the file win over the
// environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadFile reads a TOML or YAML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file extension: %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Shell: ShellConfig{
			DefaultUser:  "guest",
			AdminUser:    "root",
			ConfirmToken: "YES",
			Autosave:     true,
			MaxJobs:      16,
		},
		Storage: StorageConfig{
			Backend:               "memory",
			Dir:                   "./data",
			Compress:              true,
			S3Region:              "us-east-1",
			S3Prefix:              "vfs/",
			BreakerMaxFailures:    5,
			BreakerTimeoutSeconds: 30,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
