package config

import (
	"fmt"
	"time"

	"github.com/jonesrussell/apod-api/internal/logger"
)

// Config holds all configuration for the APOD service.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	APOD     APODConfig     `yaml:"apod"`
	Cache    CacheConfig    `yaml:"cache"`
	Concepts ConceptsConfig `yaml:"concepts"`
	Logging  logger.Config  `yaml:"logging"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `yaml:"port" env:"APOD_PORT"`
	Debug   bool   `yaml:"debug" env:"APOD_DEBUG"`
}

// APODConfig holds upstream APOD site configuration.
type APODConfig struct {
	// BaseURL is the upstream page directory. Relative media URLs in the
	// scraped pages resolve against it.
	BaseURL        string        `yaml:"base_url" env:"APOD_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

// CacheConfig holds result cache configuration.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

// ConceptsConfig holds the concept tagging collaborator configuration.
// An empty APIKey disables the feature.
type ConceptsConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key" env:"CONCEPTS_API_KEY"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins" env:"CORS_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// Load loads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	// Re-apply env overrides after defaults so the environment always wins.
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies default values to the config.
func (c *Config) setDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "apod-api"
	}
	if c.Service.Version == "" {
		c.Service.Version = "v1"
	}
	if c.Service.Port == 0 {
		c.Service.Port = 8080
	}

	if c.APOD.BaseURL == "" {
		c.APOD.BaseURL = "https://apod.nasa.gov/apod/"
	}
	if c.APOD.RequestTimeout == 0 {
		c.APOD.RequestTimeout = 30 * time.Second
	}
	if c.APOD.UserAgent == "" {
		c.APOD.UserAgent = "apod-api/" + c.Service.Version
	}

	if c.Cache.Addr == "" {
		c.Cache.Addr = "localhost:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 12 * time.Hour
	}

	if c.Concepts.APIURL == "" {
		c.Concepts.APIURL = "https://access.alchemyapi.com/calls/text/TextGetRankedConcepts"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept"}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 3600
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port: invalid port %d", c.Service.Port)
	}
	if c.APOD.BaseURL == "" {
		return fmt.Errorf("apod.base_url: is required")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr: is required when cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl: must not be negative")
	}
	return nil
}
