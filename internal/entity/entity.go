// Package entity defines the core data types shared across the download
// orchestrator: job input, mutable progress, and the persisted naming
// templates.
package entity

import (
	"log/slog"
)

// Mode selects whether a job retrieves video or audio-only content.
type Mode string

// Supported download modes.
const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// ContentType distinguishes a single item from a playlist entry.
type ContentType string

// Supported content types.
const (
	ContentSingle   ContentType = "single"
	ContentPlaylist ContentType = "playlist"
)

// AudioFormat is the target container for audio-mode jobs.
type AudioFormat string

// Supported audio formats.
const (
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatM4A  AudioFormat = "m4a"
	AudioFormatWAV  AudioFormat = "wav"
	AudioFormatOpus AudioFormat = "opus"
)

// SubtitleLanguage selects the subtitle track requested alongside a
// video-mode job.
type SubtitleLanguage string

// Supported subtitle language selectors.
const (
	SubtitleLanguageAuto SubtitleLanguage = "auto"
	SubtitleLanguageEN   SubtitleLanguage = "en"
)

// Status is the outward-facing lifecycle state of a job.
type Status string

// Job statuses.
const (
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusConverting  Status = "converting"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCanceled    Status = "canceled"
)

// Stage is the phase of extractor work currently in flight.
type Stage string

// Job stages.
const (
	StageVideo    Stage = "video"
	StageAudio    Stage = "audio"
	StageMerging  Stage = "merging"
	StageComplete Stage = "complete"
)

// JobOptions is the immutable input a caller submits for a download.
type JobOptions struct {
	URL          string
	VideoID      string
	JobID        string
	OutputFolder string

	Mode        Mode
	Quality     string      // optional; only meaningful for Mode == ModeVideo
	AudioFormat AudioFormat // optional; only meaningful for Mode == ModeAudio

	EstimatedBytes   int64
	ResolvedFilename string // final basename, no extension; may be empty
	ContentType      ContentType
	PlaylistIndex    int

	DownloadSubtitles bool
	SubtitleLanguage  SubtitleLanguage

	CreatePerChannelFolder bool
	Channel                string
}

// LogValue implements slog.LogValuer for structured logging.
func (o JobOptions) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("job_id", o.JobID),
		slog.String("url", o.URL),
		slog.String("mode", string(o.Mode)),
		slog.String("quality", o.Quality),
		slog.String("audio_format", string(o.AudioFormat)),
		slog.String("output_folder", o.OutputFolder),
		slog.String("resolved_filename", o.ResolvedFilename),
		slog.String("content_type", string(o.ContentType)),
		slog.Bool("create_per_channel_folder", o.CreatePerChannelFolder),
		slog.String("channel", o.Channel),
	)
}

// Result is the outcome of a successfully completed job.
type Result struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	FileSize string `json:"fileSize"` // formatted, e.g. "12.34 MB"
}

// Progress is the mutable, per-job bookkeeping record exposed to
// callers polling for status.
type Progress struct {
	TotalBytes      int64   `json:"totalBytes"`
	DownloadedBytes int64   `json:"downloadedBytes"`
	Percentage      float64 `json:"percentage"`
	Speed           float64 `json:"speed"` // bytes/sec
	ETA             float64 `json:"eta"`   // seconds

	Status Status `json:"status"`
	Stage  Stage  `json:"stage"`

	VideoTotalBytes      int64 `json:"videoTotalBytes"`
	AudioTotalBytes      int64 `json:"audioTotalBytes"`
	VideoDownloadedBytes int64 `json:"videoDownloadedBytes"`
	AudioDownloadedBytes int64 `json:"audioDownloadedBytes"`

	Error  string  `json:"error,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// LogValue implements slog.LogValuer for structured logging.
func (p Progress) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", string(p.Status)),
		slog.String("stage", string(p.Stage)),
		slog.Int64("total_bytes", p.TotalBytes),
		slog.Int64("downloaded_bytes", p.DownloadedBytes),
		slog.Float64("percentage", p.Percentage),
		slog.Float64("speed", p.Speed),
		slog.Float64("eta", p.ETA),
	)
}

// NamingTemplates holds the four user-editable filename templates.
type NamingTemplates struct {
	Single   TemplatePair `json:"single"`
	Playlist TemplatePair `json:"playlist"`
}

// TemplatePair holds the video/audio template for one content type.
type TemplatePair struct {
	Video string `json:"video"`
	Audio string `json:"audio"`
}

// DefaultNamingTemplates returns the built-in default templates.
func DefaultNamingTemplates() NamingTemplates {
	return NamingTemplates{
		Single: TemplatePair{
			Video: "<title> - <quality>",
			Audio: "<title>",
		},
		Playlist: TemplatePair{
			Video: "<index> - <title> - <quality>",
			Audio: "<index> - <title>",
		},
	}
}
