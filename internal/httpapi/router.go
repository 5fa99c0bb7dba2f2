// Package httpapi implements the HTTP surface described in §6: job
// control, naming templates, metadata/filesize lookups, and a static
// SPA fallback, grounded on the teacher's ServeMux + middleware-chain
// router.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/consts"
	"reelforge/internal/entity"
	"reelforge/internal/errs"
	"reelforge/internal/metadata"
	"reelforge/internal/observability"
	"reelforge/internal/orchestrator"
	"reelforge/internal/playlistspec"
	"reelforge/internal/proxymgr"
	"reelforge/internal/settingsstore"
	"reelforge/internal/sizeestimate"
	"reelforge/internal/template"
	"reelforge/internal/urlsafety"
)

// Deps bundles every collaborator the HTTP surface calls into.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Estimator    *sizeestimate.Estimator
	Fetcher      *metadata.Fetcher
	Checker      *urlsafety.Checker
	Settings     *settingsstore.Store
	Metrics      *observability.Metrics
	Proxies      *proxymgr.Manager // nil when no proxies are configured
	SPADir       string            // directory containing the SPA's index.html, may be empty
}

type router struct {
	log       *slog.Logger
	mux       *http.ServeMux
	deps      Deps
	startTime time.Time
}

// New returns the fully wired HTTP handler for the service, with the
// global middleware chain (recovery, request id, API version header,
// logging, metrics) already applied.
func New(log *slog.Logger, deps Deps) http.Handler {
	ro := &router{
		log:       log.With(slog.String("package", "httpapi")),
		mux:       http.NewServeMux(),
		deps:      deps,
		startTime: time.Now(),
	}

	ro.registerRoutes()

	var h http.Handler = ro.mux

	chain := []func(http.Handler) http.Handler{
		recoverer,
		requestID,
		apiVersion,
		requestLogger,
	}

	if deps.Metrics != nil {
		chain = append(chain, metricsMiddleware(deps.Metrics))
	}

	for _, mw := range slices.Backward(chain) {
		h = mw(h)
	}

	return h
}

func (ro *router) registerRoutes() {
	ro.mux.HandleFunc("GET /api/health", ro.health)
	ro.mux.HandleFunc("GET /api/naming-templates", ro.getNamingTemplates)
	ro.mux.HandleFunc("PUT /api/naming-templates", ro.putNamingTemplates)
	ro.mux.HandleFunc("POST /api/metadata", ro.postMetadata)
	ro.mux.HandleFunc("POST /api/filesize", ro.postFilesize)
	ro.mux.HandleFunc("POST /api/download", ro.postDownload)
	ro.mux.HandleFunc("GET /api/downloads/active", ro.getActiveDownloads)
	ro.mux.HandleFunc("GET /api/download/progress/{jobId}", ro.getProgress)
	ro.mux.HandleFunc("POST /api/download/pause/{jobId}", ro.pauseDownload)
	ro.mux.HandleFunc("POST /api/download/resume/{jobId}", ro.resumeDownload)
	ro.mux.HandleFunc("POST /api/download/cancel/{jobId}", ro.cancelDownload)
	ro.mux.HandleFunc("GET /api/proxies", ro.getProxies)
	ro.mux.HandleFunc("GET /api/proxies/check", ro.checkProxy)
	ro.mux.HandleFunc("POST /api/proxies/restore", ro.restoreProxy)
	ro.mux.Handle("GET /metrics", observability.Handler())
	ro.mux.Handle("GET /", ro.spaHandler())
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (ro *router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   consts.APIVersion,
		Timestamp: time.Now(),
	})
}

type namingTemplatesResponse struct {
	NamingTemplates entity.NamingTemplates `json:"namingTemplates"`
}

func (ro *router) getNamingTemplates(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "getNamingTemplates"))

	templates, err := ro.deps.Settings.Get()
	if err != nil {
		log.ErrorContext(r.Context(), consts.RespSettingsReadFailed, slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, namingTemplatesResponse{NamingTemplates: templates})
}

type putNamingTemplatesResponse struct {
	Success         bool                   `json:"success"`
	NamingTemplates entity.NamingTemplates `json:"namingTemplates"`
}

func (ro *router) putNamingTemplates(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "putNamingTemplates"))

	var in namingTemplatesRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(r.Context(), consts.RespInvalidRequestBody, slog.Any("error", err))
		writeError(w, http.StatusBadRequest, errs.ErrInvalidRequestBody)

		return
	}

	if err := ro.deps.Settings.Set(in.NamingTemplates); err != nil {
		log.ErrorContext(r.Context(), consts.RespSettingsWriteFailed, slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, putNamingTemplatesResponse{Success: true, NamingTemplates: in.NamingTemplates})
}

func (ro *router) postMetadata(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "postMetadata"))

	var in metadataRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, errs.ErrInvalidRequestBody)

		return
	}

	cleanURL, err := ro.deps.Checker.Validate(in.URL)
	if err != nil {
		log.ErrorContext(r.Context(), consts.RespInvalidURL, slog.Any("error", err))
		writeError(w, http.StatusBadRequest, errs.ErrInvalidURL)

		return
	}

	meta, err := ro.deps.Fetcher.Fetch(cleanURL)
	if err != nil {
		log.ErrorContext(r.Context(), "metadata fetch failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, meta)
}

type filesizeResponse struct {
	FileSize int64 `json:"fileSize"`
}

func (ro *router) postFilesize(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "postFilesize"))

	var in filesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, errs.ErrInvalidRequestBody)

		return
	}

	cleanURL, err := ro.deps.Checker.Validate(in.URL)
	if err != nil {
		log.ErrorContext(r.Context(), consts.RespInvalidURL, slog.Any("error", err))
		writeError(w, http.StatusBadRequest, errs.ErrInvalidURL)

		return
	}

	if in.PlaylistItems != "" {
		if err := playlistspec.Validate(in.PlaylistItems); err != nil {
			log.ErrorContext(r.Context(), "invalid playlist items", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, errs.ErrInvalidPlaylistItems)

			return
		}
	}

	opts := entity.JobOptions{
		URL:         cleanURL,
		Mode:        in.Mode,
		Quality:     in.Quality,
		AudioFormat: in.Format,
	}

	size, err := ro.deps.Estimator.Estimate(opts, in.PlaylistItems)
	if err != nil {
		log.ErrorContext(r.Context(), "filesize estimate failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, filesizeResponse{FileSize: size})
}

type downloadResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
}

func (ro *router) postDownload(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "postDownload"))
	ctx := r.Context()

	var in downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, errs.ErrInvalidRequestBody)

		return
	}

	cleanURL, err := ro.deps.Checker.Validate(in.URL)
	if err != nil {
		log.ErrorContext(ctx, consts.RespInvalidURL, slog.Any("error", err))
		writeError(w, http.StatusBadRequest, errs.ErrInvalidURL)

		return
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = entity.ContentSingle
	}

	jobID := in.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	resolvedFilename, err := ro.resolveFilename(in, contentType)
	if err != nil {
		log.ErrorContext(ctx, consts.RespInvalidTemplate, slog.Any("error", err))
		writeError(w, http.StatusBadRequest, err)

		return
	}

	opts := entity.JobOptions{
		URL:                    cleanURL,
		VideoID:                in.VideoID,
		JobID:                  jobID,
		OutputFolder:           in.OutputFolder,
		Mode:                   in.Mode,
		Quality:                in.Quality,
		AudioFormat:            in.Format,
		ResolvedFilename:       resolvedFilename,
		ContentType:            contentType,
		PlaylistIndex:          in.Index,
		DownloadSubtitles:      in.DownloadSubtitles,
		SubtitleLanguage:       in.SubtitleLanguage,
		CreatePerChannelFolder: in.CreatePerChannelFolder,
		Channel:                in.Channel,
	}

	if err := ro.deps.Orchestrator.StartDownload(opts); err != nil {
		log.ErrorContext(ctx, "start download failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	log.InfoContext(ctx, consts.RespJobQueued, slog.String("job_id", jobID))

	writeJSON(w, http.StatusAccepted, downloadResponse{Success: true, JobID: jobID, Status: "queued"})
}

// resolveFilename validates the stored naming template for (contentType,
// mode) and resolves it against the request's metadata fields.
func (ro *router) resolveFilename(in downloadRequest, contentType entity.ContentType) (string, error) {
	templates, err := ro.deps.Settings.Get()
	if err != nil {
		return "", err
	}

	pair := templates.Single
	if contentType == entity.ContentPlaylist {
		pair = templates.Playlist
	}

	tmpl := pair.Video
	if in.Mode == entity.ModeAudio {
		tmpl = pair.Audio
	}

	if err := template.Validate(tmpl, contentType, in.Mode); err != nil {
		return "", err
	}

	resolved := template.Resolve(tmpl, template.ResolveContext{
		Title:   in.Title,
		Channel: in.Channel,
		Format:  string(in.Format),
		Quality: in.Quality,
		Index:   in.Index,
		Now:     time.Now(),
	})

	return resolved, nil
}

type activeDownloadsResponse struct {
	Downloads map[string]entity.Progress `json:"downloads"`
}

func (ro *router) getActiveDownloads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, activeDownloadsResponse{Downloads: ro.deps.Orchestrator.ActiveDownloads()})
}

func (ro *router) getProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	progress, err := ro.deps.Orchestrator.Progress(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)

		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (ro *router) pauseDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	if err := ro.deps.Orchestrator.Pause(jobID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrJobNotFound) || errors.Is(err, errs.ErrJobNotPausable) {
			status = http.StatusNotFound
		}

		writeError(w, status, err)

		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (ro *router) resumeDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	if err := ro.deps.Orchestrator.Resume(jobID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrJobNotFound) {
			status = http.StatusNotFound
		}

		writeError(w, status, err)

		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (ro *router) cancelDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	if err := ro.deps.Orchestrator.Cancel(jobID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrJobNotFound) {
			status = http.StatusNotFound
		}

		writeError(w, status, err)

		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type proxyStatusResponse struct {
	HasProxies bool                           `json:"hasProxies"`
	Count      int                            `json:"count"`
	Available  int                            `json:"available"`
	Proxies    map[string]proxymgr.ProxyStats `json:"proxies,omitempty"`
}

// getProxies returns the pool's bulk status. An unconfigured pool (no
// proxies at all) still answers 200 with an empty, unavailable status.
func (ro *router) getProxies(w http.ResponseWriter, _ *http.Request) {
	if ro.deps.Proxies == nil {
		writeJSON(w, http.StatusOK, proxyStatusResponse{})

		return
	}

	writeJSON(w, http.StatusOK, proxyStatusResponse{
		HasProxies: ro.deps.Proxies.HasProxies(),
		Count:      ro.deps.Proxies.ProxyCount(),
		Available:  ro.deps.Proxies.AvailableCount(),
		Proxies:    ro.deps.Proxies.GetStats(),
	})
}

type proxyCheckResponse struct {
	Proxy     string `json:"proxy"`
	Available bool   `json:"available"`
}

// checkProxy reports whether one specific proxy URL is currently usable
// (configured and not in backoff).
func (ro *router) checkProxy(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "checkProxy"))

	proxyURL := r.URL.Query().Get("proxy")
	if proxyURL == "" {
		log.ErrorContext(r.Context(), consts.RespQueryParamMissing, slog.String("param", "proxy"))
		writeError(w, http.StatusBadRequest, errs.ErrInvalidRequestBody)

		return
	}

	if ro.deps.Proxies == nil {
		writeError(w, http.StatusNotFound, errs.ErrNoProxiesAvailable)

		return
	}

	_, available := ro.deps.Proxies.GetProxy(proxyURL)

	writeJSON(w, http.StatusOK, proxyCheckResponse{Proxy: proxyURL, Available: available})
}

type restoreProxyRequest struct {
	Proxy string `json:"proxy"`
}

// restoreProxy manually clears a proxy's failure backoff before it
// would otherwise expire.
func (ro *router) restoreProxy(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "restoreProxy"))

	if ro.deps.Proxies == nil {
		writeError(w, http.StatusNotFound, errs.ErrNoProxiesAvailable)

		return
	}

	var in restoreProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(r.Context(), consts.RespInvalidRequestBody, slog.Any("error", err))
		writeError(w, http.StatusBadRequest, errs.ErrInvalidRequestBody)

		return
	}

	if _, exists := ro.deps.Proxies.GetStats()[in.Proxy]; !exists {
		writeError(w, http.StatusNotFound, errs.ErrProxyNotFound)

		return
	}

	ro.deps.Proxies.RestoreProxy(in.Proxy)

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// spaHandler serves static files out of deps.SPADir, falling back to
// index.html for any path that doesn't resolve to a file so client-side
// routing works. An empty SPADir yields a 404 handler.
func (ro *router) spaHandler() http.Handler {
	if ro.deps.SPADir == "" {
		return http.NotFoundHandler()
	}

	root := http.Dir(ro.deps.SPADir)
	fileServer := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, err := root.Open(r.URL.Path); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)

			return
		}

		http.ServeFile(w, r, filepath.Join(ro.deps.SPADir, "index.html"))
	})
}
