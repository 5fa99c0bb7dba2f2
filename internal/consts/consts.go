// Package consts defines application-wide constants.
package consts

import "time"

// Timing defaults.
const (
	// DefaultHandlerTimeout is a timeout value for synchronous HTTP
	// handlers (metadata, filesize, naming templates); no handler or
	// middleware applies it.
	DefaultHandlerTimeout = 30 * time.Second
	// ResampleInterval is the minimum interval between speed/ETA
	// recomputation on progress reads.
	ResampleInterval = 500 * time.Millisecond
	// DefaultPort is the HTTP listen port used when PORT is unset.
	DefaultPort = "3001"
	// SystemMetricsInterval is how often main reports goroutine count
	// and active job count into the system metrics gauges.
	SystemMetricsInterval = 15 * time.Second
)

// APIVersion is written on every HTTP response via the X-API-Version header.
const APIVersion = "1"

// TempSuffix is appended to a job id to form the extractor's temporary
// output basename, e.g. "<jobId>.temp".
const TempSuffix = ".temp"

// PartSuffix marks an in-progress, not-yet-closed extractor output file.
const PartSuffix = ".part"

// Audio-size projection factors: multiply the extractor's reported
// source-container byte count by these to estimate the post-transcode size.
const (
	AudioProjectionMP3  = 1.67
	AudioProjectionM4A  = 2.67
	AudioProjectionWAV  = 12.85
	AudioProjectionOpus = 1.0
)

// HTTP response messages.
const (
	RespInvalidRequestBody  = "invalid request body"
	RespQueryParamMissing   = "query param missing or invalid"
	RespInvalidURL          = "invalid url"
	RespInvalidTemplate     = "invalid naming template"
	RespJobQueued           = "queued"
	RespJobNotFound         = "job not found"
	RespSettingsReadFailed  = "failed to read naming templates"
	RespSettingsWriteFailed = "failed to write naming templates"
	RespOK                  = "ok"
)

// Response messages for control operations (§7: pause/cancel are
// informational, never surfaced as request errors).
const (
	RespDownloadPaused   = "Download paused"
	RespDownloadCanceled = "Download canceled"
)

// Failure messages recorded into JobProgress.Error (§7).
const (
	// FailNoArtifact is used when the extractor exits 0 but no non-.part
	// output file can be located.
	FailNoArtifact = "No complete file found"
)
