// Package config loads the application configuration from environment
// variables (prefix EW) and an optional YAML file. Environment values take
// precedence; the file fills whatever the environment left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/erp"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/summary"
)

// envPrefix namespaces every environment variable.
const envPrefix = "EW"

// DefaultConfigFile is consulted when EW_CONFIG_FILE is unset.
const DefaultConfigFile = "config.yaml"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig     `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Upload   UploadConfig       `yaml:"upload" envconfig:"UPLOAD"`
	Cache    CacheConfig        `yaml:"cache" envconfig:"CACHE"`
	ERP      erp.Config         `yaml:"erp" envconfig:"ERP"`
	Summary  summary.ChatConfig `yaml:"summary" envconfig:"SUMMARY"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains CORS and rate limiting settings.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json"`
}

// UploadConfig bounds workbook uploads.
type UploadConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes" envconfig:"MAX_SIZE_BYTES" default:"20971520"`
}

// CacheConfig sizes the decoded-table cache.
type CacheConfig struct {
	Tables int `yaml:"tables" envconfig:"TABLES" default:"16"`
}

// Load reads environment variables and the optional config file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config from env: %w", err)
	}

	configFile := os.Getenv(envPrefix + "_CONFIG_FILE")
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configFile, err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge fills zero-valued env fields from the file config. Environment wins
// whenever both are set.
func merge(file, env Config) Config {
	if env.Server.Port == 0 {
		env.Server.Port = file.Server.Port
	}
	if env.Logging.Level == "" {
		env.Logging.Level = file.Logging.Level
	}
	if env.Logging.Format == "" {
		env.Logging.Format = file.Logging.Format
	}
	if len(env.Security.AllowedOrigins) == 0 {
		env.Security.AllowedOrigins = file.Security.AllowedOrigins
	}
	if env.Upload.MaxSizeBytes == 0 {
		env.Upload.MaxSizeBytes = file.Upload.MaxSizeBytes
	}
	if env.Cache.Tables == 0 {
		env.Cache.Tables = file.Cache.Tables
	}
	if !env.ERP.Enabled() {
		env.ERP = file.ERP
	}
	if !env.Summary.Enabled() {
		env.Summary = file.Summary
	}
	return env
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload max size must be positive")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when enabled")
	}
	// ERP credentials are optional as a whole but must be complete when any
	// are present.
	if c.ERP.Enabled() {
		if err := c.ERP.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ListenAddr returns the server bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
