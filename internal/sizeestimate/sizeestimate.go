// Package sizeestimate computes an approximate download size ahead of
// time by asking the extractor for line-delimited metadata without
// downloading anything (§4.7).
package sizeestimate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"reelforge/internal/consts"
	"reelforge/internal/entity"
	"reelforge/internal/errs"
	"reelforge/internal/extractor"
	"reelforge/pkg/maths"
	"reelforge/pkg/ptr"
)

// Estimator invokes the extractor in metadata-only mode and sums the
// reported (or approximate) file sizes.
type Estimator struct {
	log     *slog.Logger
	binPath string
}

// New returns an Estimator that spawns binPath.
func New(log *slog.Logger, binPath string) *Estimator {
	return &Estimator{
		log:     log.With(slog.String("package", "sizeestimate")),
		binPath: binPath,
	}
}

// record is the subset of the extractor's per-line JSON metadata this
// package cares about.
type record struct {
	Filesize       *int64 `json:"filesize"`
	FilesizeApprox *int64 `json:"filesize_approx"`
}

// Estimate returns the estimated total download size in bytes for the
// given options and playlist-items selection. A subprocess spawn
// failure is returned as an error; individual undecodable lines are
// skipped, and an entirely unparseable response yields 0 with no error.
func (e *Estimator) Estimate(opts entity.JobOptions, playlistItems string) (int64, error) {
	args := []string{"--skip-download", "-j", "--ignore-errors", "--no-warnings"}

	if opts.Mode == entity.ModeVideo {
		args = append(args, "-f", extractor.QualitySelector(opts.Quality))
	}

	if strings.TrimSpace(playlistItems) != "" {
		args = append(args, "--playlist-items", playlistItems)
	}

	args = append(args, opts.URL)

	cmd := exec.Command(e.binPath, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return 0, fmt.Errorf("%w: %w", errs.ErrExtractorSpawnFailed, err)
		}
	}

	total := sumSizes(&stdout)

	if opts.Mode == entity.ModeAudio {
		if factor, ok := projectionFactor(opts.AudioFormat); ok {
			total = int64(maths.RoundFloat64ToInt(float64(total) * factor))
		}
	}

	return total, nil
}

func sumSizes(r *bytes.Buffer) int64 {
	var total int64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}

		switch {
		case rec.Filesize != nil:
			total += ptr.Deref(rec.Filesize)
		case rec.FilesizeApprox != nil:
			total += ptr.Deref(rec.FilesizeApprox)
		}
	}

	return total
}

func projectionFactor(format entity.AudioFormat) (float64, bool) {
	switch format {
	case entity.AudioFormatMP3:
		return consts.AudioProjectionMP3, true
	case entity.AudioFormatM4A:
		return consts.AudioProjectionM4A, true
	case entity.AudioFormatWAV:
		return consts.AudioProjectionWAV, true
	case entity.AudioFormatOpus:
		return consts.AudioProjectionOpus, true
	default:
		return 0, false
	}
}
