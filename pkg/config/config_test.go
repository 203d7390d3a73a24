package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PLATFORM_BASE_DOMAIN", "shops.example")
	t.Setenv("PLATFORM_INGRESS_IPS", "203.0.113.10, 203.0.113.11")
	t.Setenv("API_KEY_HASHES", "aaa,bbb")
	t.Setenv("RESOLVE_CACHE_TTL", "90s")
	t.Setenv("API_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domains.BaseDomain != "shops.example" {
		t.Errorf("base domain = %q", cfg.Domains.BaseDomain)
	}
	if cfg.Domains.EdgeCNAME != "edge.shops.example" {
		t.Errorf("edge cname default = %q", cfg.Domains.EdgeCNAME)
	}
	if len(cfg.Domains.IngressIPs) != 2 || cfg.Domains.IngressIPs[1] != "203.0.113.11" {
		t.Errorf("ingress ips = %v", cfg.Domains.IngressIPs)
	}
	if len(cfg.APIKeyHashes) != 2 {
		t.Errorf("api key hashes = %v", cfg.APIKeyHashes)
	}
	if cfg.Domains.ResolveCacheTTL != 90*time.Second {
		t.Errorf("cache ttl = %s", cfg.Domains.ResolveCacheTTL)
	}
	if cfg.APIPort != 9191 {
		t.Errorf("port = %d", cfg.APIPort)
	}
}

func TestConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")
	content := `
domains:
  base_domain: overlay.example
  edge_cname: cdn.overlay.example
  ingress_ips:
    - 198.51.100.7
  dns_timeout: 2s
redis:
  url: redis://localhost:6379/1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PLATFORM_BASE_DOMAIN", "env.example")
	t.Setenv("DOMAINS_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domains.BaseDomain != "overlay.example" {
		t.Errorf("base domain = %q, want overlay to win", cfg.Domains.BaseDomain)
	}
	if cfg.Domains.EdgeCNAME != "cdn.overlay.example" {
		t.Errorf("edge cname = %q", cfg.Domains.EdgeCNAME)
	}
	if cfg.Domains.DNSTimeout != 2*time.Second {
		t.Errorf("dns timeout = %s", cfg.Domains.DNSTimeout)
	}
	if cfg.Redis.URL != "redis://localhost:6379/1" {
		t.Errorf("redis url = %q", cfg.Redis.URL)
	}
}

func TestConfigFileOverlayMissingFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DOMAINS_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
