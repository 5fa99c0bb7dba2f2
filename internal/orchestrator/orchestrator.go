// Package orchestrator implements the Job Orchestrator: the per-job
// download routine that resolves the effective output folder, drives
// the Extractor Driver in the background, and reconciles the
// subprocess's exit against the registry's pause/cancel state before
// renaming the resulting artifact into place (§4.5).
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelforge/internal/consts"
	"reelforge/internal/entity"
	"reelforge/internal/errs"
	"reelforge/internal/extractor"
	"reelforge/internal/fsname"
	"reelforge/internal/progress"
	"reelforge/pkg/maths"
)

const outputFolderPerm = 0o755

// Runner is the subset of *extractor.Driver's surface the orchestrator
// depends on, narrowed so tests can substitute a fake extractor.
type Runner interface {
	Run(opts entity.JobOptions, outputDir, jobID string, cb extractor.Callbacks) (int, error)
}

// MetricsRecorder is the narrow metrics surface the orchestrator reports
// job lifecycle transitions to. Optional: a nil recorder is a no-op.
type MetricsRecorder interface {
	RecordJobCreated()
	RecordJobStatus(status entity.Status)
	RecordJobBytes(n int64)
	JobTimer() func()
}

// Orchestrator drives jobs from registration through to a terminal
// status, coordinating the Progress Accountant and the Extractor Driver.
type Orchestrator struct {
	log      *slog.Logger
	registry progress.Registry
	runner   Runner
	metrics  MetricsRecorder
}

// New returns an Orchestrator wired to registry and runner.
func New(log *slog.Logger, registry progress.Registry, runner Runner) *Orchestrator {
	return &Orchestrator{
		log:      log.With(slog.String("package", "orchestrator")),
		registry: registry,
		runner:   runner,
	}
}

// SetMetrics attaches a metrics recorder for job lifecycle transitions.
func (o *Orchestrator) SetMetrics(m MetricsRecorder) {
	o.metrics = m
}

func (o *Orchestrator) recordStatus(status entity.Status) {
	if o.metrics != nil {
		o.metrics.RecordJobStatus(status)
	}
}

// StartDownload performs steps 1-2 of the download routine synchronously
// (resolve the effective output folder, create it, register the job)
// then runs the extractor and the exit-reconciliation steps (3-5) in the
// background. A non-nil error means the output folder could not be
// created; the job is never registered in that case.
func (o *Orchestrator) StartDownload(opts entity.JobOptions) error {
	outputDir := effectiveOutputFolder(opts)

	if err := os.MkdirAll(outputDir, outputFolderPerm); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	_, err := o.registry.Options(opts.JobID)
	isNewJob := errors.Is(err, errs.ErrJobNotFound)

	o.registry.Register(opts.JobID, opts)

	if isNewJob && o.metrics != nil {
		o.metrics.RecordJobCreated()
	}

	o.recordStatus(entity.StatusDownloading)

	go o.run(opts, outputDir)

	return nil
}

// Resume re-invokes the download routine for a job already known to the
// registry, folder creation included. The Progress Accountant's
// Register becomes a no-op-with-status-reset for an existing entry.
func (o *Orchestrator) Resume(jobID string) error {
	opts, err := o.registry.Options(jobID)
	if err != nil {
		return err
	}

	return o.StartDownload(opts)
}

// Pause stops the running subprocess, if any, and leaves the job
// resumable.
func (o *Orchestrator) Pause(jobID string) error {
	if err := o.registry.PauseDownload(jobID); err != nil {
		return err
	}

	o.recordStatus(entity.StatusPaused)

	return nil
}

// Cancel stops the running subprocess, if any, and removes the job
// entirely.
func (o *Orchestrator) Cancel(jobID string) error {
	if err := o.registry.CancelDownload(jobID); err != nil {
		return err
	}

	o.recordStatus(entity.StatusCanceled)

	return nil
}

// Progress returns the current progress view for a job.
func (o *Orchestrator) Progress(jobID string) (entity.Progress, error) {
	return o.registry.GetProgress(jobID)
}

// ActiveDownloads returns the progress view of every job currently
// tracked by the registry, keyed by job id.
func (o *Orchestrator) ActiveDownloads() map[string]entity.Progress {
	ids := o.registry.ActiveJobIDs()
	out := make(map[string]entity.Progress, len(ids))

	for _, id := range ids {
		if p, err := o.registry.GetProgress(id); err == nil {
			out[id] = p
		}
	}

	return out
}

func effectiveOutputFolder(opts entity.JobOptions) string {
	if opts.CreatePerChannelFolder && opts.Channel != "" {
		return filepath.Join(opts.OutputFolder, fsname.Sanitize(opts.Channel))
	}

	return opts.OutputFolder
}

// run executes steps 3-5 of the download routine for a freshly
// registered (or resumed) job.
func (o *Orchestrator) run(opts entity.JobOptions, outputDir string) {
	log := o.log.With(slog.String("job_id", opts.JobID))

	if o.metrics != nil {
		defer o.metrics.JobTimer()()
	}

	cb := extractor.Callbacks{
		OnProcessStarted:   func(p *os.Process) { o.registry.SetProcess(opts.JobID, p) },
		SetStageTotalBytes: func(n int64) { o.registry.SetStageTotalBytes(opts.JobID, n) },
		SetStage:           func(stage entity.Stage) { o.registry.SetStage(opts.JobID, stage) },
		UpdateProgress:     func(n int64) { o.registry.UpdateProgress(opts.JobID, n) },
		SetStatus: func(status entity.Status) {
			o.registry.SetStatus(opts.JobID, status)
			o.recordStatus(status)
		},
	}

	exitCode, err := o.runner.Run(opts, outputDir, opts.JobID, cb)
	if err != nil {
		log.Error("extractor spawn failed", slog.Any("error", err))
		o.registry.FailDownload(opts.JobID, err.Error())
		o.recordStatus(entity.StatusFailed)

		return
	}

	current, err := o.registry.GetProgress(opts.JobID)
	if errors.Is(err, errs.ErrJobNotFound) {
		// Canceled: CancelDownload already removed the entry. Files are
		// left untouched per §4.5 step 4.
		return
	}

	switch current.Status {
	case entity.StatusPaused:
		// Files are left untouched; a later resume re-invokes run.
		return
	case entity.StatusCanceled:
		return
	}

	if exitCode != 0 {
		o.registry.FailDownload(opts.JobID, fmt.Sprintf("Download interrupted (code %d)", exitCode))
		o.recordStatus(entity.StatusFailed)

		return
	}

	if err := o.finalize(opts, outputDir); err != nil {
		log.Error("finalize failed", slog.Any("error", err))
		o.registry.FailDownload(opts.JobID, err.Error())
		o.recordStatus(entity.StatusFailed)
	}
}

// finalize locates the extractor's output artifact, renames it into its
// resolved final name, and records the result with the registry.
func (o *Orchestrator) finalize(opts entity.JobOptions, outputDir string) error {
	src, err := findArtifact(outputDir, opts.JobID)
	if err != nil {
		return err
	}

	ext := filepath.Ext(src)

	base := opts.ResolvedFilename
	if base == "" {
		base = fsname.Sanitize(strings.TrimSuffix(filepath.Base(src), ext))
	}

	target := filepath.Join(outputDir, base+ext)

	target, err = fsname.UniqueName(target)
	if err != nil {
		return fmt.Errorf("resolve unique name: %w", err)
	}

	if err := os.Rename(src, target); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}

	result := entity.Result{
		FilePath: target,
		FileName: filepath.Base(target),
		FileSize: formatMB(info.Size()),
	}

	o.registry.CompleteDownload(opts.JobID, info.Size(), result)
	o.recordStatus(entity.StatusCompleted)

	if o.metrics != nil {
		o.metrics.RecordJobBytes(info.Size())
	}

	return nil
}

// findArtifact returns the non-.part file in dir whose name starts with
// jobID+".temp", falling back to the most recently modified non-.part
// file when no such file exists.
func findArtifact(dir, jobID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read output folder: %w", err)
	}

	prefix := jobID + consts.TempSuffix

	var fallback string

	var fallbackModTime time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, consts.PartSuffix) {
			continue
		}

		path := filepath.Join(dir, name)

		if strings.HasPrefix(name, prefix) {
			return path, nil
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().After(fallbackModTime) {
			fallback = path
			fallbackModTime = info.ModTime()
		}
	}

	if fallback == "" {
		return "", errs.ErrNoArtifact
	}

	return fallback, nil
}

// formatMB renders n bytes as a "<N.NN> MB" string.
func formatMB(n int64) string {
	mb := float64(n) / (1024 * 1024)
	centi := maths.RoundFloat64ToInt(mb * 100)

	return fmt.Sprintf("%d.%02d MB", centi/100, centi%100)
}
