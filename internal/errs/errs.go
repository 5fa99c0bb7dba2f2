// Package errs defines common error variables used across the application.
package errs

import "errors"

// Request validation errors.
var (
	// ErrInvalidURL indicates that the URL field in the request is invalid or
	// not on the allowed host list.
	ErrInvalidURL = errors.New("invalid url field")
	// ErrInvalidRequestBody indicates that the request body is invalid or
	// cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrInvalidPlaylistItems indicates that the playlistItems field does not
	// match the comma-list-of-int-or-range grammar.
	ErrInvalidPlaylistItems = errors.New("invalid playlist items field")
)

// Template validation errors (§4.1 error kinds).
var (
	// ErrTemplateEmpty indicates an empty template string.
	ErrTemplateEmpty = errors.New("template is empty")
	// ErrTemplateInvalidCharacter indicates a reserved filesystem character
	// outside of tag syntax.
	ErrTemplateInvalidCharacter = errors.New("template contains an invalid character")
	// ErrTemplateMissingMandatory indicates a mandatory tag is absent.
	ErrTemplateMissingMandatory = errors.New("template is missing a mandatory tag")
	// ErrTemplateInvalidTag indicates an unrecognized tag name.
	ErrTemplateInvalidTag = errors.New("template contains an invalid tag")
	// ErrTemplateInvalidIndex indicates <index> used outside a playlist.
	ErrTemplateInvalidIndex = errors.New("template uses <index> outside a playlist")
	// ErrTemplateInvalidQuality indicates <quality> used outside video mode.
	ErrTemplateInvalidQuality = errors.New("template uses <quality> outside video mode")
)

// Job registry errors.
var (
	// ErrJobNotFound indicates that the job is not found in the registry.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotPausable indicates the job is not in a state that can be paused.
	ErrJobNotPausable = errors.New("job cannot be paused")
	// ErrJobNotResumable indicates the job is not in a state that can be resumed.
	ErrJobNotResumable = errors.New("job cannot be resumed")
)

// Extractor / orchestrator errors.
var (
	// ErrExtractorSpawnFailed indicates the extractor subprocess could not be
	// started (OS-level error).
	ErrExtractorSpawnFailed = errors.New("failed to start extractor")
	// ErrExtractorExitNonZero indicates the extractor exited with a non-zero
	// code that was not attributable to pause or cancel.
	ErrExtractorExitNonZero = errors.New("extractor exited with a non-zero code")
	// ErrNoArtifact indicates the extractor exited 0 but no non-.part output
	// file could be found.
	ErrNoArtifact = errors.New("no complete file found")
	// ErrNoMetadata indicates the extractor produced no decodable metadata
	// line for the requested URL.
	ErrNoMetadata = errors.New("no metadata returned")
	// ErrDownloadPaused is an informational condition surfaced when a
	// subprocess exit is attributable to a prior pause.
	ErrDownloadPaused = errors.New("download paused")
	// ErrDownloadCanceled is an informational condition surfaced when a
	// subprocess exit is attributable to a prior cancel.
	ErrDownloadCanceled = errors.New("download canceled")
)

// Settings store errors.
var (
	// ErrSettingsIO indicates a read/write failure against the naming
	// templates file.
	ErrSettingsIO = errors.New("settings io error")
)

// Binary manager errors.
var (
	// ErrBinaryNotFound indicates a required external binary is missing.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates the current OS/arch has no known
	// binary download URL.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no proxies are configured or
	// healthy.
	ErrNoProxiesAvailable = errors.New("no proxies available")
	// ErrProxyNotFound indicates the requested proxy URL is not in the
	// configured pool.
	ErrProxyNotFound = errors.New("proxy not found")
)
