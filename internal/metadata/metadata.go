// Package metadata fetches platform metadata for a single URL by
// invoking the extractor in dump-only mode, ahead of any download
// (§6, POST /api/metadata).
package metadata

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"

	"reelforge/internal/errs"
)

// Fetcher invokes the extractor binary to retrieve a single item's
// metadata without downloading it.
type Fetcher struct {
	log     *slog.Logger
	binPath string
}

// New returns a Fetcher that spawns binPath.
func New(log *slog.Logger, binPath string) *Fetcher {
	return &Fetcher{
		log:     log.With(slog.String("package", "metadata")),
		binPath: binPath,
	}
}

// Fetch returns the extractor's raw JSON metadata for url as a generic
// map, so this package stays agnostic of any particular platform's
// field set.
func (f *Fetcher) Fetch(url string) (map[string]any, error) {
	args := []string{"--skip-download", "-j", "--no-warnings", "--no-playlist", url}

	cmd := exec.Command(f.binPath, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("%w: %w", errs.ErrExtractorSpawnFailed, err)
		}
	}

	rec, ok := firstRecord(&stdout)
	if !ok {
		return nil, errs.ErrNoMetadata
	}

	return rec, nil
}

// firstRecord returns the first line of r that decodes as a JSON
// object, skipping blank lines and lines that don't decode.
func firstRecord(r *bytes.Buffer) (map[string]any, bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 10*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}

		return rec, true
	}

	return nil, false
}
