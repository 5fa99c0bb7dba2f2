// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Dir        Dir
	BinManager BinManager
	Proxy      Proxy
	URLSafety  URLSafety
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"REELFORGE_APP_LOG_LEVEL" envDefault:"info"`
}

// HTTP holds HTTP server configuration. Port has no application prefix
// because spec.md §6 names the bare "PORT" environment variable.
type HTTP struct {
	Port            string        `env:"PORT"                             envDefault:"3001"`
	HandlerTimeout  time.Duration `env:"REELFORGE_HTTP_HANDLER_TIMEOUT"   envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"REELFORGE_HTTP_SHUTDOWN_TIMEOUT"  envDefault:"10s"`
}

// Dir holds working-directory-relative paths. Spec.md §6 states the
// process working directory is significant: the settings file and the
// extractor credentials file both live there.
type Dir struct {
	// SettingsFile is where internal/settingsstore reads/writes naming templates.
	SettingsFile string `env:"REELFORGE_DIR_SETTINGS_FILE" envDefault:"./data/settings.json"`
	// CookieFile is resolved to an absolute path but not read by any
	// component: the extractor driver passes --cookies only for a
	// cookies.txt in the process working directory.
	CookieFile string `env:"REELFORGE_DIR_COOKIE_FILE" envDefault:"./cookies.txt"`
	// SPADir, if set, is served as the static frontend bundle for any
	// route the API doesn't otherwise handle. Empty disables the
	// fallback entirely.
	SPADir string `env:"REELFORGE_DIR_SPA_DIR" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.SettingsFile, err = filepath.Abs(c.SettingsFile); err != nil {
		return fmt.Errorf("settings file: %w", err)
	}

	if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
		return fmt.Errorf("cookie file: %w", err)
	}

	if c.SPADir != "" {
		if c.SPADir, err = filepath.Abs(c.SPADir); err != nil {
			return fmt.Errorf("spa dir: %w", err)
		}
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.BinManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set bin manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()
	cfg.URLSafety.parseList()

	return cfg, nil
}

// BinManager holds binary dependency management configuration.
type BinManager struct {
	// BinsDir is the directory where managed binaries are stored.
	BinsDir string `env:"REELFORGE_BINMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries instead of downloading them.
	UseSystemBinaries bool `env:"REELFORGE_BINMANAGER_USE_SYSTEM_BINARIES" envDefault:"false"`

	// extractor binary URLs per platform.
	ExtractorLinuxARM64 string `env:"REELFORGE_BINMANAGER_EXTRACTOR_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	ExtractorLinuxAMD64 string `env:"REELFORGE_BINMANAGER_EXTRACTOR_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll

	// ffmpeg binary URLs per platform.
	FFmpegLinuxARM64 string `env:"REELFORGE_BINMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64 string `env:"REELFORGE_BINMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (b *BinManager) SetAbsPaths() error {
	var err error
	if b.BinsDir, err = filepath.Abs(b.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for extractor requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h format.
	List string `env:"REELFORGE_PROXY_LIST" envDefault:""`
	// HealthCheckInterval is how often to check proxy health.
	HealthCheckInterval time.Duration `env:"REELFORGE_PROXY_HEALTH_CHECK_INTERVAL" envDefault:"5m"`
	// FailureBackoff is the initial backoff duration for failed proxies.
	FailureBackoff time.Duration `env:"REELFORGE_PROXY_FAILURE_BACKOFF" envDefault:"1m"`
	// MaxFailures is the maximum number of failures before a proxy is temporarily removed.
	MaxFailures int `env:"REELFORGE_PROXY_MAX_FAILURES" envDefault:"3"`

	// Proxies is the parsed list of proxy URLs.
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}

// URLSafety holds the host allowlist enforced on inbound request URLs.
type URLSafety struct {
	// AllowedHosts is a comma-separated list of hosts permitted through
	// internal/urlsafety. Empty means any host is accepted.
	AllowedHosts string `env:"REELFORGE_URLSAFETY_ALLOWED_HOSTS" envDefault:""`

	// Hosts is the parsed allowlist.
	Hosts []string `env:"-"`
}

func (u *URLSafety) parseList() {
	if u.AllowedHosts == "" {
		return
	}

	for host := range strings.SplitSeq(u.AllowedHosts, ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			u.Hosts = append(u.Hosts, host)
		}
	}
}
