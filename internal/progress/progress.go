// Package progress implements the Progress Accountant: a coarse-locked,
// in-memory job registry that tracks per-job byte counters, derives
// speed/ETA lazily on read, and applies the audio-size projection to
// the outgoing view only (§4.3).
package progress

import (
	"os"
	"sync"
	"time"

	"reelforge/internal/consts"
	"reelforge/internal/entity"
	"reelforge/internal/errs"
	"reelforge/pkg/calc"
	"reelforge/pkg/maths"
)

// activeDownload is the full bookkeeping record for one job: the
// immutable options it was submitted with, its mutable progress view,
// and the supervision state needed to pause/resume/cancel it.
type activeDownload struct {
	options  entity.JobOptions
	progress entity.Progress

	process *os.Process // nil when no subprocess is currently running

	startTime                   time.Time
	lastSampleTime              time.Time
	downloadedBytesAtLastSample int64

	isResuming bool
}

// Registry is the Progress Accountant's public surface. It is an
// interface per design so callers never reach into package-level state.
type Registry interface {
	Register(jobID string, options entity.JobOptions)
	SetStageTotalBytes(jobID string, n int64)
	SetStage(jobID string, stage entity.Stage)
	UpdateProgress(jobID string, stageDownloaded int64)
	SetStatus(jobID string, status entity.Status)
	CompleteDownload(jobID string, finalBytes int64, result entity.Result)
	FailDownload(jobID string, msg string)
	PauseDownload(jobID string) error
	CancelDownload(jobID string) error

	SetProcess(jobID string, process *os.Process)
	Options(jobID string) (entity.JobOptions, error)

	GetProgress(jobID string) (entity.Progress, error)
	ActiveJobIDs() []string
	Clear(jobID string)
}

type registry struct {
	mu   sync.Mutex
	jobs map[string]*activeDownload
}

// New returns an empty Progress Accountant.
func New() Registry {
	return &registry{
		jobs: make(map[string]*activeDownload),
	}
}

// Register creates a new job entry, or, if one already exists (resume),
// flips its status back to downloading without touching counters.
func (r *registry) Register(jobID string, options entity.JobOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[jobID]; ok {
		job.isResuming = true
		job.progress.Status = entity.StatusDownloading
		job.process = nil

		return
	}

	stage := entity.StageAudio
	if options.Mode == entity.ModeVideo {
		stage = entity.StageVideo
	}

	now := time.Now()

	r.jobs[jobID] = &activeDownload{
		options: options,
		progress: entity.Progress{
			TotalBytes: options.EstimatedBytes,
			Status:     entity.StatusDownloading,
			Stage:      stage,
		},
		startTime:      now,
		lastSampleTime: now,
	}
}

// SetStageTotalBytes writes into the current stage's total byte count.
func (r *registry) SetStageTotalBytes(jobID string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	switch job.progress.Stage {
	case entity.StageAudio:
		job.progress.AudioTotalBytes = n
	default:
		job.progress.VideoTotalBytes = n
	}
}

// SetStage transitions the job to a new stage, finalizing the video
// counters on a video->audio handoff and forcing 99% on entry to merging.
func (r *registry) SetStage(jobID string, stage entity.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	if job.progress.Stage == entity.StageVideo && stage == entity.StageAudio {
		job.progress.VideoDownloadedBytes = job.progress.VideoTotalBytes
	}

	job.progress.Stage = stage

	if stage == entity.StageMerging {
		job.progress.Percentage = 99
	}
}

// UpdateProgress writes stageDownloaded into the current stage's
// downloaded counter and recomputes the aggregate totals/percentage.
// TotalBytes becomes the sum of the stage totals once both are known, and
// is seeded from whichever stage total is known while it is still zero.
func (r *registry) UpdateProgress(jobID string, stageDownloaded int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	switch job.progress.Stage {
	case entity.StageAudio:
		job.progress.AudioDownloadedBytes = stageDownloaded
	default:
		job.progress.VideoDownloadedBytes = stageDownloaded
	}

	job.progress.DownloadedBytes = job.progress.VideoDownloadedBytes + job.progress.AudioDownloadedBytes

	if (job.progress.VideoTotalBytes > 0 && job.progress.AudioTotalBytes > 0) || job.progress.TotalBytes == 0 {
		job.progress.TotalBytes = job.progress.VideoTotalBytes + job.progress.AudioTotalBytes
	}

	if job.progress.TotalBytes > 0 {
		job.progress.Percentage = calc.Percentage(job.progress.DownloadedBytes, job.progress.TotalBytes)
	}
}

// SetStatus sets the job's status, ignoring the call once the job has
// reached a terminal state.
func (r *registry) SetStatus(jobID string, status entity.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	if isTerminal(job.progress.Status) {
		return
	}

	job.progress.Status = status
}

// CompleteDownload marks the job completed, storing the result and,
// when finalBytes is known, overwriting the byte counters with it.
func (r *registry) CompleteDownload(jobID string, finalBytes int64, result entity.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	job.progress.Status = entity.StatusCompleted
	job.progress.Percentage = 100
	job.progress.Result = &result

	if finalBytes > 0 {
		job.progress.TotalBytes = finalBytes
		job.progress.DownloadedBytes = finalBytes
	}

	job.process = nil
}

// FailDownload marks the job failed with the given message.
func (r *registry) FailDownload(jobID string, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	if isTerminal(job.progress.Status) {
		return
	}

	job.progress.Status = entity.StatusFailed
	job.progress.Error = msg
	job.process = nil
}

// PauseDownload kills the running subprocess, if any, and leaves the
// registry entry in status=paused for a later resume.
func (r *registry) PauseDownload(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return errs.ErrJobNotFound
	}

	if isTerminal(job.progress.Status) {
		return errs.ErrJobNotPausable
	}

	if job.process != nil {
		_ = job.process.Kill()
		job.process = nil
	}

	job.progress.Status = entity.StatusPaused

	return nil
}

// CancelDownload kills the running subprocess, if any, and removes the
// job entry entirely.
func (r *registry) CancelDownload(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return errs.ErrJobNotFound
	}

	if job.process != nil {
		_ = job.process.Kill()
	}

	delete(r.jobs, jobID)

	return nil
}

// SetProcess attaches (or clears, with nil) the running subprocess
// handle for a job.
func (r *registry) SetProcess(jobID string, process *os.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return
	}

	job.process = process
}

// Options returns the immutable options a job was registered with.
func (r *registry) Options(jobID string) (entity.JobOptions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return entity.JobOptions{}, errs.ErrJobNotFound
	}

	return job.options, nil
}

// GetProgress returns the outgoing view of a job's progress: speed/ETA
// resampled if the last sample is stale, and the audio-size projection
// applied when the job is an audio job with a known format.
func (r *registry) GetProgress(jobID string) (entity.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return entity.Progress{}, errs.ErrJobNotFound
	}

	now := time.Now()
	if now.Sub(job.lastSampleTime) >= consts.ResampleInterval {
		delta := job.progress.DownloadedBytes - job.downloadedBytesAtLastSample
		elapsed := now.Sub(job.lastSampleTime)

		job.progress.Speed = calc.Speed(delta, elapsed)

		if job.progress.TotalBytes > 0 {
			remaining := job.progress.TotalBytes - job.progress.DownloadedBytes
			job.progress.ETA = calc.ETA(remaining, job.progress.Speed)
		} else {
			job.progress.ETA = 0
		}

		job.downloadedBytesAtLastSample = job.progress.DownloadedBytes
		job.lastSampleTime = now
	}

	view := job.progress

	// Once a job is completed, TotalBytes/DownloadedBytes already hold
	// the real final file size (see CompleteDownload); projecting an
	// exact known size through the estimation factor would overstate
	// it instead of refining an estimate.
	if job.options.Mode == entity.ModeAudio && view.Status != entity.StatusCompleted {
		if factor, ok := audioProjectionFactor(job.options.AudioFormat); ok {
			view.TotalBytes = int64(maths.RoundFloat64ToInt(float64(view.TotalBytes) * factor))
			view.AudioTotalBytes = int64(maths.RoundFloat64ToInt(float64(view.AudioTotalBytes) * factor))
			view.Percentage = calc.Percentage(view.DownloadedBytes, view.TotalBytes)
		}
	}

	return view, nil
}

// ActiveJobIDs returns the ids of every job currently in the registry,
// in no particular order.
func (r *registry) ActiveJobIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}

	return ids
}

// Clear removes a job entry outright, regardless of status.
func (r *registry) Clear(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, jobID)
}

func isTerminal(status entity.Status) bool {
	switch status {
	case entity.StatusCompleted, entity.StatusFailed, entity.StatusCanceled:
		return true
	default:
		return false
	}
}

func audioProjectionFactor(format entity.AudioFormat) (float64, bool) {
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
