// Package binmanager verifies the extractor and ffmpeg binaries are
// present and runnable at process boot, downloading and unpacking them
// when configured to manage its own copies rather than trust the
// system PATH. Adapted from the teacher's multi-binary dependency
// manager, trimmed to the two binaries this service actually invokes.
package binmanager

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
)

// BinaryName identifies one of the two binaries this service manages.
type BinaryName string

// Managed binaries.
const (
	BinaryExtractor BinaryName = "extractor"
	BinaryFFmpeg    BinaryName = "ffmpeg"
)

const (
	filePermExecutable = 0o755
	downloadTimeout    = 10 * time.Minute
)

// URLs supplies the platform-specific download location for each
// managed binary. A missing entry (empty string) means "unsupported on
// this platform".
type URLs struct {
	ExtractorLinuxAMD64 string
	ExtractorLinuxARM64 string
	FFmpegLinuxAMD64    string
	FFmpegLinuxARM64    string
}

// Config controls whether the manager trusts the system PATH or
// maintains its own copies under BinsDir.
type Config struct {
	UseSystemBinaries bool
	BinsDir           string
	URLs              URLs
}

// Manager resolves and, when needed, installs the extractor and ffmpeg
// binaries.
type Manager struct {
	log    *slog.Logger
	cfg    Config
	client *http.Client

	mu       sync.RWMutex
	binPaths map[BinaryName]string
}

// New returns a Manager for cfg.
func New(log *slog.Logger, cfg Config) *Manager {
	return &Manager{
		log:      log.With(slog.String("package", "binmanager")),
		cfg:      cfg,
		client:   &http.Client{Timeout: downloadTimeout},
		binPaths: make(map[BinaryName]string),
	}
}

// Start resolves both binaries, either from the system PATH or by
// downloading and installing them into BinsDir, then verifies each
// responds to --version. It panics on failure since the service cannot
// run without both binaries.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.UseSystemBinaries {
		if err := m.setSystemBinaries(); err != nil {
			panic(fmt.Sprintf("binmanager: system binaries: %v", err))
		}
	} else if err := m.installAll(ctx); err != nil {
		panic(fmt.Sprintf("binmanager: install: %v", err))
	}

	if err := m.verifyAll(ctx); err != nil {
		panic(fmt.Sprintf("binmanager: verify: %v", err))
	}
}

func (m *Manager) setSystemBinaries() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range []BinaryName{BinaryExtractor, BinaryFFmpeg} {
		path, err := exec.LookPath(string(name))
		if err != nil {
			return fmt.Errorf("%s not found in system PATH: %w", name, err)
		}

		m.binPaths[name] = path
	}

	return nil
}

func (m *Manager) installAll(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	for _, name := range []BinaryName{BinaryExtractor, BinaryFFmpeg} {
		binPath := m.binaryPath(name)

		if info, err := os.Stat(binPath); err == nil && info.Size() > 0 {
			m.setPath(name, binPath)
			m.log.DebugContext(ctx, "binary already installed", slog.String("binary", string(name)))

			continue
		}

		if err := m.downloadAndInstall(ctx, name); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}

	return nil
}

func (m *Manager) verifyAll(ctx context.Context) error {
	for _, name := range []BinaryName{BinaryExtractor, BinaryFFmpeg} {
		path := m.Path(name)

		cmd := exec.CommandContext(ctx, path, "--version")
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s at %s did not respond to --version: %w", name, path, err)
		}
	}

	return nil
}

// Path returns the resolved installation path for name, empty if it
// has not been resolved yet.
func (m *Manager) Path(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

func (m *Manager) setPath(name BinaryName, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = path
}

func (m *Manager) binaryPath(name BinaryName) string {
	filename := string(name)
	if name == BinaryExtractor {
		filename = "yt-dlp"
	}

	return filepath.Join(m.cfg.BinsDir, filename)
}

func (m *Manager) binaryURL(name BinaryName) string {
	arch := runtime.GOARCH

	switch name {
	case BinaryExtractor:
		if arch == "arm64" {
			return m.cfg.URLs.ExtractorLinuxARM64
		}

		return m.cfg.URLs.ExtractorLinuxAMD64
	case BinaryFFmpeg:
		if arch == "arm64" {
			return m.cfg.URLs.FFmpegLinuxARM64
		}

		return m.cfg.URLs.FFmpegLinuxAMD64
	default:
		return ""
	}
}

func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	log := m.log.With(slog.String("binary", string(name)))

	url := m.binaryURL(name)
	if url == "" {
		return fmt.Errorf("no download URL configured for %s on %s/%s", name, runtime.GOOS, runtime.GOARCH)
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(m.cfg.BinsDir, "download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	binPath := m.binaryPath(name)

	switch {
	case strings.HasSuffix(url, ".tar.xz"):
		if err := extractSingleFromTarXZ(tmpPath, binPath, filepath.Base(binPath)); err != nil {
			return fmt.Errorf("extract tar.xz: %w", err)
		}
	case strings.HasSuffix(url, ".tar.gz"):
		if err := extractSingleFromTarGZ(tmpPath, binPath, filepath.Base(binPath)); err != nil {
			return fmt.Errorf("extract tar.gz: %w", err)
		}
	default:
		if err := os.Rename(tmpPath, binPath); err != nil {
			return fmt.Errorf("rename: %w", err)
		}
	}

	if err := os.Chmod(binPath, filePermExecutable); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	m.setPath(name, binPath)

	log.InfoContext(ctx, "binary installed", slog.String("path", binPath))

	return nil
}

func extractSingleFromTarXZ(archivePath, destPath, wantName string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	return extractSingleFromTar(xzReader, destPath, wantName)
}

func extractSingleFromTarGZ(archivePath, destPath, wantName string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open tar.gz: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return extractSingleFromTar(gzReader, destPath, wantName)
}

func extractSingleFromTar(r io.Reader, destPath, wantName string) error {
	tarReader := tar.NewReader(r)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("%s not found in archive", wantName)
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != wantName {
			continue
		}

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create dest file: %w", err)
		}

		_, err = io.Copy(outFile, tarReader)
		outFile.Close()

		if err != nil {
			return fmt.Errorf("extract file: %w", err)
		}

		return nil
	}
}
