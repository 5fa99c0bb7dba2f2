package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"reelforge/internal/config"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.HTTP.Port != "3001" {
		t.Errorf("HTTP.Port = %q, want %q", cfg.HTTP.Port, "3001")
	}

	if !filepath.IsAbs(cfg.Dir.SettingsFile) {
		t.Errorf("expected absolute path, got %s", cfg.Dir.SettingsFile)
	}

	if !filepath.IsAbs(cfg.Dir.CookieFile) {
		t.Errorf("expected absolute path, got %s", cfg.Dir.CookieFile)
	}

	if !filepath.IsAbs(cfg.BinManager.BinsDir) {
		t.Errorf("expected absolute path, got %s", cfg.BinManager.BinsDir)
	}

	if len(cfg.Proxy.Proxies) != 0 {
		t.Errorf("Proxy.Proxies = %v, want empty", cfg.Proxy.Proxies)
	}

	if len(cfg.URLSafety.Hosts) != 0 {
		t.Errorf("URLSafety.Hosts = %v, want empty", cfg.URLSafety.Hosts)
	}
}

func TestNewOverridesPort(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.HTTP.Port != "9090" {
		t.Errorf("HTTP.Port = %q, want %q", cfg.HTTP.Port, "9090")
	}
}

func TestNewParsesProxyList(t *testing.T) {
	t.Setenv("REELFORGE_PROXY_LIST", "socks5h://proxy1:1080, socks5h://proxy2:1080,")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	want := []string{"socks5h://proxy1:1080", "socks5h://proxy2:1080"}
	if len(cfg.Proxy.Proxies) != len(want) {
		t.Fatalf("Proxy.Proxies = %v, want %v", cfg.Proxy.Proxies, want)
	}

	for i, p := range want {
		if cfg.Proxy.Proxies[i] != p {
			t.Errorf("Proxy.Proxies[%d] = %q, want %q", i, cfg.Proxy.Proxies[i], p)
		}
	}
}

func TestNewParsesAllowedHosts(t *testing.T) {
	t.Setenv("REELFORGE_URLSAFETY_ALLOWED_HOSTS", "example.com, other.example ,")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	want := []string{"example.com", "other.example"}
	if len(cfg.URLSafety.Hosts) != len(want) {
		t.Fatalf("URLSafety.Hosts = %v, want %v", cfg.URLSafety.Hosts, want)
	}

	for i, h := range want {
		if cfg.URLSafety.Hosts[i] != h {
			t.Errorf("URLSafety.Hosts[%d] = %q, want %q", i, cfg.URLSafety.Hosts[i], h)
		}
	}
}

func TestNewParsesDurations(t *testing.T) {
	t.Setenv("REELFORGE_PROXY_HEALTH_CHECK_INTERVAL", "1m")
	t.Setenv("REELFORGE_HTTP_SHUTDOWN_TIMEOUT", "2s")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.Proxy.HealthCheckInterval != time.Minute {
		t.Errorf("Proxy.HealthCheckInterval = %v, want %v", cfg.Proxy.HealthCheckInterval, time.Minute)
	}

	if cfg.HTTP.ShutdownTimeout != 2*time.Second {
		t.Errorf("HTTP.ShutdownTimeout = %v, want %v", cfg.HTTP.ShutdownTimeout, 2*time.Second)
	}
}
