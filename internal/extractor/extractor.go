// Package extractor drives the external extractor subprocess: it builds
// the argument vector, spawns the process, and turns its stdout into
// stage/status/progress events per the line grammar in §4.4.
package extractor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"reelforge/internal/consts"
	"reelforge/internal/entity"
	"reelforge/internal/errs"
	"reelforge/pkg/shellquote"
)

// ProxySource supplies an optional proxy URL for a run. A nil value, or
// one with no configured proxies, means the extractor runs unproxied.
type ProxySource interface {
	HasProxies() bool
	GetRandomProxy() string
}

// MetricsRecorder is the subset of observability.Metrics the extractor
// reports subprocess outcomes to. Optional; a nil Driver.metrics simply
// skips the report.
type MetricsRecorder interface {
	RecordExtractorRun(stage entity.Stage, status string)
	RecordExtractorError(errorType string)
}

// Callbacks are invoked as the subprocess's stdout is parsed into
// events. Every field is optional; nil callbacks are simply skipped.
type Callbacks struct {
	OnProcessStarted   func(process *os.Process)
	SetStageTotalBytes func(n int64)
	SetStage           func(stage entity.Stage)
	UpdateProgress     func(stageDownloaded int64)
	SetStatus          func(status entity.Status)
}

// Driver spawns and supervises the extractor subprocess.
type Driver struct {
	log         *slog.Logger
	binPath     string
	proxySource ProxySource
	metrics     MetricsRecorder
}

// New returns a Driver that invokes the extractor binary at binPath,
// optionally routing through a proxy supplied by proxySource.
func New(log *slog.Logger, binPath string, proxySource ProxySource) *Driver {
	return &Driver{
		log:         log.With(slog.String("package", "extractor")),
		binPath:     binPath,
		proxySource: proxySource,
	}
}

// SetMetrics attaches a metrics recorder. Optional; without it the
// driver still functions, it just reports nothing.
func (d *Driver) SetMetrics(metrics MetricsRecorder) {
	d.metrics = metrics
}

// qualitySelectors maps a user-facing quality string to the extractor's
// format-selector expression (§4.4).
var qualitySelectors = map[string]string{
	"highest": "best[ext=mp4]",
}

// QualitySelector exposes the video quality-selector mapping so other
// components (the Size Estimator) can build a consistent `-f` argument
// for the same job options.
func QualitySelector(quality string) string {
	return qualitySelector(quality)
}

func qualitySelector(quality string) string {
	if sel, ok := qualitySelectors[quality]; ok {
		return sel
	}

	height := strings.TrimSuffix(quality, "p")
	if _, err := strconv.Atoi(height); err != nil {
		return qualitySelectors["highest"]
	}

	return fmt.Sprintf("bestvideo[height<=%s][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]", height)
}

// cookiesFileName is the credentials file the driver looks for in the
// process working directory, per §4.4.
const cookiesFileName = "cookies.txt"

// BuildArgs constructs the extractor's argument vector in the exact
// order specified: mode-specific selection flags, output template,
// shared flags, optional subtitle/cookie flags, then the URL last.
func BuildArgs(opts entity.JobOptions, outputDir, jobID string) []string {
	var args []string

	switch opts.Mode {
	case entity.ModeAudio:
		args = append(args, "-x", "--audio-format="+string(opts.AudioFormat), "--audio-quality=0")
	default:
		args = append(args, "-f", qualitySelector(opts.Quality), "--remux-video=mp4")
	}

	outputTemplate := filepath.Join(outputDir, jobID+consts.TempSuffix+".%(ext)s")
	args = append(args, "-o", outputTemplate, "--no-warnings", "--newline")

	if opts.Mode == entity.ModeVideo && opts.DownloadSubtitles {
		args = append(args, "--embed-subs")

		if opts.SubtitleLanguage == entity.SubtitleLanguageEN {
			args = append(args, "--sub-langs", "en.*")
		}
	}

	if cookiesPath, ok := findCookiesFile(); ok {
		args = append(args, "--cookies", cookiesPath)
	}

	args = append(args, opts.URL)

	return args
}

func findCookiesFile() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	path := filepath.Join(wd, cookiesFileName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}

	return path, true
}

// Run spawns the extractor subprocess for opts, streams and classifies
// its stdout, and reports the resulting exit code. A non-nil error
// means the process could not be started at all (errs.ErrExtractorSpawnFailed).
func (d *Driver) Run(opts entity.JobOptions, outputDir, jobID string, cb Callbacks) (int, error) {
	args := BuildArgs(opts, outputDir, jobID)

	if d.proxySource != nil && d.proxySource.HasProxies() {
		if proxyURL := d.proxySource.GetRandomProxy(); proxyURL != "" {
			args = append([]string{"--proxy", proxyURL}, args...)
		}
	}

	log := d.log.With(slog.String("job_id", jobID))
	log.Debug("spawning extractor", slog.String("command", shellquote.Join(d.binPath, args)))

	cmd := exec.Command(d.binPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		d.recordError("spawn")
		return 0, fmt.Errorf("%w: %w", errs.ErrExtractorSpawnFailed, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		d.recordError("spawn")
		return 0, fmt.Errorf("%w: %w", errs.ErrExtractorSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		d.recordError("spawn")
		return 0, fmt.Errorf("%w: %w", errs.ErrExtractorSpawnFailed, err)
	}

	if cb.OnProcessStarted != nil {
		cb.OnProcessStarted(cmd.Process)
	}

	sm := &stateMachine{mode: opts.Mode, stage: initialStage(opts.Mode), cb: cb}

	done := make(chan struct{})
	go func() {
		defer close(done)
		logStderr(log, stderr)
	}()

	streamLines(stdout, func(line string) {
		sm.consume(line)
	})

	<-done

	err = cmd.Wait()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	status := "success"
	if exitCode != 0 {
		status = "failed"

		errorType := "exit_code"
		if exitCode == -1 {
			errorType = "process"
		}

		d.recordError(errorType)
	}

	d.recordRun(sm.stage, status)

	return exitCode, nil
}

func (d *Driver) recordRun(stage entity.Stage, status string) {
	if d.metrics != nil {
		d.metrics.RecordExtractorRun(stage, status)
	}
}

func (d *Driver) recordError(errorType string) {
	if d.metrics != nil {
		d.metrics.RecordExtractorError(errorType)
	}
}

// initialStage mirrors the progress registry's stage-on-register logic
// so a run that never sees a [download] Destination line (e.g. one that
// fails immediately) still reports a meaningful stage label.
func initialStage(mode entity.Mode) entity.Stage {
	if mode == entity.ModeVideo {
		return entity.StageVideo
	}

	return entity.StageAudio
}

func logStderr(log *slog.Logger, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		log.Debug("extractor stderr", slog.String("line", line))
	}
}

// streamLines reads r, folding any '\r' byte into '\n' so that the
// extractor's in-place progress rewrites surface as discrete lines,
// then invokes onLine for each non-empty completed line.
func streamLines(r io.Reader, onLine func(line string)) {
	scanner := bufio.NewScanner(&crToLfReader{r: r})
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		onLine(line)
	}
}

// crToLfReader rewrites every '\r' byte to '\n' as it is read.
type crToLfReader struct {
	r io.Reader
}

func (c *crToLfReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == '\r' {
			p[i] = '\n'
		}
	}

	return n, err
}

// pctSizeRe extracts a download percentage and, when present, a
// companion "of ~<num><unit>" total size from a [download] line.
var pctSizeRe = regexp.MustCompile(`([\d.]+)%(?:.*?of\s+~?([\d.]+)(KiB|MiB|GiB|B|K|M|G))?`)

func parsePercentSize(line string) (pct float64, size int64, hasSize bool) {
	m := pctSizeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}

	pct, _ = strconv.ParseFloat(m[1], 64)

	if m[2] == "" {
		return pct, 0, false
	}

	num, _ := strconv.ParseFloat(m[2], 64)
	size = int64(num * unitMultiplier(m[3]))

	return pct, size, true
}

func unitMultiplier(unit string) float64 {
	switch unit {
	case "B":
		return 1
	case "KiB":
		return 1024
	case "MiB":
		return 1024 * 1024
	case "GiB":
		return 1024 * 1024 * 1024
	case "K":
		return 1000
	case "M":
		return 1000 * 1000
	case "G":
		return 1000 * 1000 * 1000
	default:
		return 1
	}
}

// stateMachine classifies successive stdout lines into stage/status/
// progress events, per the regex-free description in §4.4.
type stateMachine struct {
	mode  entity.Mode
	stage entity.Stage
	cb    Callbacks
}

func (sm *stateMachine) consume(line string) {
	switch {
	case strings.Contains(line, "[download]") && strings.Contains(line, "Destination:"):
		sm.classifyDestination(line)
	case strings.Contains(line, "[Merger]"):
		sm.setStage(entity.StageMerging)
		sm.setStatus(entity.StatusConverting)
	case containsAny(line, "[ExtractAudio]", "[FixupM4a]", "[ffmpeg]", "[Metadata]", "[EmbedSubtitle]", "[Thumbnails]", "Deleting original file"):
		sm.setStatus(entity.StatusConverting)
	case strings.Contains(line, "[download]") && strings.Contains(line, "%"):
		sm.classifyProgress(line)
	}
}

func (sm *stateMachine) classifyDestination(line string) {
	switch {
	case strings.HasSuffix(line, ".mp4") && !strings.Contains(line, ".m4a"):
		sm.setStage(entity.StageVideo)
	case strings.HasSuffix(line, ".m4a"), strings.HasSuffix(line, ".mp3"), strings.HasSuffix(line, ".opus"):
		sm.setStage(entity.StageAudio)
	}
}

func (sm *stateMachine) classifyProgress(line string) {
	pct, size, hasSize := parsePercentSize(line)
	if !hasSize {
		return
	}

	if sm.cb.SetStageTotalBytes != nil {
		sm.cb.SetStageTotalBytes(size)
	}

	downloaded := int64(float64(size) * pct / 100)
	if sm.cb.UpdateProgress != nil {
		sm.cb.UpdateProgress(downloaded)
	}

	if sm.mode == entity.ModeAudio && pct >= 99 {
		sm.setStatus(entity.StatusConverting)
	}
}

func (sm *stateMachine) setStage(stage entity.Stage) {
	sm.stage = stage

	if sm.cb.SetStage != nil {
		sm.cb.SetStage(stage)
	}
}

func (sm *stateMachine) setStatus(status entity.Status) {
	if sm.cb.SetStatus != nil {
		sm.cb.SetStatus(status)
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
