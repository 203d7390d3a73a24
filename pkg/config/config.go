// Package config provides environment-based configuration for the platform API.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the platform API server.
type Config struct {
	// Database configuration
	DatabaseDSN string

	// Authentication
	JWTSecret    string
	JWTExpiry    time.Duration
	APIKeyHeader string
	// APIKeyHashes are SHA-256 digests of accepted operator API keys.
	APIKeyHashes []string

	// Server configuration
	APIPort int
	APIHost string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// Domains holds hostname resolution and verification settings.
	Domains DomainsConfig

	// Redis configuration. When URL is empty the server runs with the
	// in-process cache and invalidation broker only.
	Redis RedisConfig
}

// DomainsConfig holds the platform-level domain settings.
type DomainsConfig struct {
	// BaseDomain is the platform apex, e.g. "vendix.com". Subdomains of it
	// are classified as platform-managed; everything else is external.
	BaseDomain string `yaml:"base_domain"`
	// EdgeCNAME is the CNAME target external domains must point at,
	// e.g. "edge.vendix.com".
	EdgeCNAME string `yaml:"edge_cname"`
	// IngressIPs is the allow-list of platform ingress addresses used by
	// the A-record check.
	IngressIPs []string `yaml:"ingress_ips"`
	// DNSTimeout bounds each individual DNS lookup during verification.
	DNSTimeout time.Duration `yaml:"dns_timeout"`
	// ResolveCacheTTL bounds staleness of the hostname resolution cache.
	ResolveCacheTTL time.Duration `yaml:"resolve_cache_ttl"`
}

// RedisConfig holds Redis connection settings for the shared cache and
// cross-instance invalidation channel.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Load reads configuration from environment variables. If DOMAINS_CONFIG_FILE
// is set, the named YAML file overlays the domain settings afterwards.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/vendix?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		APIKeyHeader:    getEnv("API_KEY_HEADER", "X-API-Key"),
		APIKeyHashes:    getListEnv("API_KEY_HASHES"),
		APIPort:         getIntEnv("API_PORT", 8080),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Domains: DomainsConfig{
			BaseDomain:      getEnv("PLATFORM_BASE_DOMAIN", "vendix.com"),
			EdgeCNAME:       getEnv("PLATFORM_EDGE_CNAME", ""),
			IngressIPs:      getListEnv("PLATFORM_INGRESS_IPS"),
			DNSTimeout:      getDurationEnv("DNS_LOOKUP_TIMEOUT", 5*time.Second),
			ResolveCacheTTL: getDurationEnv("RESOLVE_CACHE_TTL", 60*time.Second),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
	}

	if file := os.Getenv("DOMAINS_CONFIG_FILE"); file != "" {
		if err := cfg.overlayFile(file); err != nil {
			return nil, err
		}
	}

	if cfg.Domains.EdgeCNAME == "" {
		cfg.Domains.EdgeCNAME = "edge." + cfg.Domains.BaseDomain
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// overlayFile applies a YAML settings file on top of the environment values.
// Only domain and Redis settings may be overridden from a file.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var overlay struct {
		Domains DomainsConfig `yaml:"domains"`
		Redis   RedisConfig   `yaml:"redis"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if overlay.Domains.BaseDomain != "" {
		c.Domains.BaseDomain = overlay.Domains.BaseDomain
	}
	if overlay.Domains.EdgeCNAME != "" {
		c.Domains.EdgeCNAME = overlay.Domains.EdgeCNAME
	}
	if len(overlay.Domains.IngressIPs) > 0 {
		c.Domains.IngressIPs = overlay.Domains.IngressIPs
	}
	if overlay.Domains.DNSTimeout > 0 {
		c.Domains.DNSTimeout = overlay.Domains.DNSTimeout
	}
	if overlay.Domains.ResolveCacheTTL > 0 {
		c.Domains.ResolveCacheTTL = overlay.Domains.ResolveCacheTTL
	}
	if overlay.Redis.URL != "" {
		c.Redis.URL = overlay.Redis.URL
	}

	return nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Domains.BaseDomain == "" {
		return fmt.Errorf("PLATFORM_BASE_DOMAIN is required")
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	return &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/vendix?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", "development-secret-key-min-32-chars"),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		APIKeyHeader:    getEnv("API_KEY_HEADER", "X-API-Key"),
		APIKeyHashes:    getListEnv("API_KEY_HASHES"),
		APIPort:         getIntEnv("API_PORT", 8080),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Domains: DomainsConfig{
			BaseDomain:      getEnv("PLATFORM_BASE_DOMAIN", "vendix.com"),
			EdgeCNAME:       getEnv("PLATFORM_EDGE_CNAME", "edge.vendix.com"),
			IngressIPs:      getListEnv("PLATFORM_INGRESS_IPS"),
			DNSTimeout:      getDurationEnv("DNS_LOOKUP_TIMEOUT", 5*time.Second),
			ResolveCacheTTL: getDurationEnv("RESOLVE_CACHE_TTL", 60*time.Second),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
