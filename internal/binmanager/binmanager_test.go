package binmanager

import (
	"archive/tar"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return New(log, Config{BinsDir: t.TempDir()})
}

func TestBinaryPathNamesExtractorYtDlp(t *testing.T) {
	m := newTestManager(t)

	path := m.binaryPath(BinaryExtractor)
	if filepath.Base(path) != "yt-dlp" {
		t.Fatalf("expected extractor binary named yt-dlp, got %q", filepath.Base(path))
	}
}

func TestBinaryURLSelectsByArch(t *testing.T) {
	m := New(slog.New(slog.NewTextHandler(os.Stdout, nil)), Config{
		URLs: URLs{
			FFmpegLinuxAMD64: "https://example.com/amd64.tar.xz",
			FFmpegLinuxARM64: "https://example.com/arm64.tar.xz",
		},
	})

	url := m.binaryURL(BinaryFFmpeg)
	if url == "" {
		t.Fatal("expected a non-empty URL for the current architecture")
	}
}

func TestSetSystemBinariesFailsWhenMissing(t *testing.T) {
	m := New(slog.New(slog.NewTextHandler(os.Stdout, nil)), Config{UseSystemBinaries: true})

	if err := m.setSystemBinaries(); err == nil {
		t.Fatal("expected error when binaries are not on PATH")
	}
}

func TestExtractSingleFromTarFindsNamedFile(t *testing.T) {
	dir := t.TempDir()

	// Build a minimal, uncompressed tar for extractSingleFromTar directly
	// (xz compression itself is exercised by the ulikunitz/xz library, not
	// re-tested here).
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	content := []byte("fake-binary-content")
	if err := tw.WriteHeader(&tar.Header{
		Name: "ffmpeg-static/ffmpeg",
		Mode: 0o755,
		Size: int64(len(content)),
	}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	if _, err := tw.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	dest := filepath.Join(dir, "ffmpeg")
	if err := extractSingleFromTar(&buf, dest, "ffmpeg"); err != nil {
		t.Fatalf("extractSingleFromTar: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != string(content) {
		t.Fatalf("extracted content = %q, want %q", got, content)
	}
}

func TestExtractSingleFromTarMissingFile(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	if err := tw.WriteHeader(&tar.Header{Name: "other", Mode: 0o644, Size: 0}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := extractSingleFromTar(&buf, filepath.Join(t.TempDir(), "out"), "ffmpeg")
	if err == nil {
		t.Fatal("expected error when target file is absent from archive")
	}
}
