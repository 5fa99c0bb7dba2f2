package extractor

import (
	"strings"
	"testing"

	"reelforge/internal/entity"
)

func TestBuildArgsVideoMode(t *testing.T) {
	opts := entity.JobOptions{
		URL:     "https://example.com/watch?v=abc",
		Mode:    entity.ModeVideo,
		Quality: "1080p",
	}

	args := BuildArgs(opts, "/tmp/out", "job1")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-f bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]") {
		t.Fatalf("expected quality selector in args, got %q", joined)
	}

	if !strings.Contains(joined, "--remux-video=mp4") {
		t.Fatalf("expected --remux-video=mp4, got %q", joined)
	}

	if args[len(args)-1] != opts.URL {
		t.Fatalf("expected URL last, got %q", args[len(args)-1])
	}
}

func TestBuildArgsAudioMode(t *testing.T) {
	opts := entity.JobOptions{
		URL:         "https://example.com/watch?v=abc",
		Mode:        entity.ModeAudio,
		AudioFormat: entity.AudioFormatMP3,
	}

	args := BuildArgs(opts, "/tmp/out", "job1")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-x --audio-format=mp3 --audio-quality=0") {
		t.Fatalf("expected audio flags, got %q", joined)
	}
}

func TestBuildArgsHighestQuality(t *testing.T) {
	opts := entity.JobOptions{Mode: entity.ModeVideo, Quality: "highest"}

	args := BuildArgs(opts, "/tmp/out", "job1")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "best[ext=mp4]") {
		t.Fatalf("expected highest selector, got %q", joined)
	}
}

func TestBuildArgsSubtitles(t *testing.T) {
	opts := entity.JobOptions{
		Mode:              entity.ModeVideo,
		Quality:           "720p",
		DownloadSubtitles: true,
		SubtitleLanguage:  entity.SubtitleLanguageEN,
	}

	args := BuildArgs(opts, "/tmp/out", "job1")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--embed-subs") || !strings.Contains(joined, "--sub-langs en.*") {
		t.Fatalf("expected subtitle flags, got %q", joined)
	}
}

func TestParsePercentSize(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantPct  float64
		wantSize int64
		wantHas  bool
	}{
		{"mib", "[download]  45.2% of ~10.00MiB at 1.2MiB/s", 45.2, int64(10.00 * 1024 * 1024), true},
		{"no_size", "[download]  45.2%", 45.2, 0, false},
		{"kib", "[download] 100.0% of ~512.00KiB", 100.0, int64(512.00 * 1024), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pct, size, has := parsePercentSize(tc.line)
			if has != tc.wantHas {
				t.Fatalf("hasSize = %v, want %v", has, tc.wantHas)
			}

			if pct != tc.wantPct {
				t.Fatalf("pct = %v, want %v", pct, tc.wantPct)
			}

			if has && size != tc.wantSize {
				t.Fatalf("size = %v, want %v", size, tc.wantSize)
			}
		})
	}
}

func TestStateMachineDestinationClassifiesStage(t *testing.T) {
	var gotStage entity.Stage

	sm := &stateMachine{
		mode: entity.ModeVideo,
		cb: Callbacks{
			SetStage: func(s entity.Stage) { gotStage = s },
		},
	}

	sm.consume("[download] Destination: /tmp/out/job1.temp.mp4")

	if gotStage != entity.StageVideo {
		t.Fatalf("expected video stage, got %v", gotStage)
	}
}

func TestStateMachineAudioDestination(t *testing.T) {
	var gotStage entity.Stage

	sm := &stateMachine{
		mode: entity.ModeAudio,
		cb: Callbacks{
			SetStage: func(s entity.Stage) { gotStage = s },
		},
	}

	sm.consume("[download] Destination: /tmp/out/job1.temp.mp3")

	if gotStage != entity.StageAudio {
		t.Fatalf("expected audio stage, got %v", gotStage)
	}
}

func TestStateMachineMergerSetsMergingAndConverting(t *testing.T) {
	var gotStage entity.Stage
	var gotStatus entity.Status

	sm := &stateMachine{
		cb: Callbacks{
			SetStage:  func(s entity.Stage) { gotStage = s },
			SetStatus: func(s entity.Status) { gotStatus = s },
		},
	}

	sm.consume("[Merger] Merging formats into \"out.mp4\"")

	if gotStage != entity.StageMerging {
		t.Fatalf("expected merging stage, got %v", gotStage)
	}

	if gotStatus != entity.StatusConverting {
		t.Fatalf("expected converting status, got %v", gotStatus)
	}
}

func TestStateMachineConvertingMarkers(t *testing.T) {
	markers := []string{
		"[ExtractAudio] Destination: out.mp3",
		"[FixupM4a] Fixing container",
		"[ffmpeg] Merging formats",
		"[Metadata] Adding metadata",
		"[EmbedSubtitle] Embedding subtitles",
		"[Thumbnails] Downloading thumbnail",
		"Deleting original file out.webm",
	}

	for _, line := range markers {
		t.Run(line, func(t *testing.T) {
			var gotStatus entity.Status

			sm := &stateMachine{
				cb: Callbacks{SetStatus: func(s entity.Status) { gotStatus = s }},
			}

			sm.consume(line)

			if gotStatus != entity.StatusConverting {
				t.Fatalf("expected converting status for %q, got %v", line, gotStatus)
			}
		})
	}
}

func TestStateMachineProgressUpdatesTotalsAndDownloaded(t *testing.T) {
	var gotTotal, gotDownloaded int64

	sm := &stateMachine{
		mode: entity.ModeVideo,
		cb: Callbacks{
			SetStageTotalBytes: func(n int64) { gotTotal = n },
			UpdateProgress:     func(n int64) { gotDownloaded = n },
		},
	}

	sm.consume("[download]  50.0% of ~100.00MiB at 5.0MiB/s ETA 00:10")

	wantTotal := int64(100.00 * 1024 * 1024)
	if gotTotal != wantTotal {
		t.Fatalf("expected total %d, got %d", wantTotal, gotTotal)
	}

	wantDownloaded := wantTotal / 2
	if gotDownloaded != wantDownloaded {
		t.Fatalf("expected downloaded %d, got %d", wantDownloaded, gotDownloaded)
	}
}

func TestStateMachineAudioNinetyNinePercentForcesConverting(t *testing.T) {
	var gotStatus entity.Status

	sm := &stateMachine{
		mode: entity.ModeAudio,
		cb: Callbacks{
			SetStageTotalBytes: func(int64) {},
			UpdateProgress:     func(int64) {},
			SetStatus:          func(s entity.Status) { gotStatus = s },
		},
	}

	sm.consume("[download]  99.5% of ~10.00MiB")

	if gotStatus != entity.StatusConverting {
		t.Fatalf("expected converting at 99.5%%, got %v", gotStatus)
	}
}

func TestStateMachineIgnoresProgressWithoutSize(t *testing.T) {
	called := false

	sm := &stateMachine{
		cb: Callbacks{
			UpdateProgress: func(int64) { called = true },
		},
	}

	sm.consume("[download]  50.0%")

	if called {
		t.Fatal("expected no progress update without a parsed size")
	}
}

func TestStreamLinesFoldsCarriageReturns(t *testing.T) {
	input := strings.NewReader("[download]  10.0% of ~1.00MiB\r[download]  20.0% of ~1.00MiB\n")

	var lines []string
	streamLines(input, func(line string) { lines = append(lines, line) })

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines from \\r-folded input, got %d: %v", len(lines), lines)
	}
}

func TestInitialStage(t *testing.T) {
	if got := initialStage(entity.ModeVideo); got != entity.StageVideo {
		t.Fatalf("initialStage(video) = %v, want %v", got, entity.StageVideo)
	}

	if got := initialStage(entity.ModeAudio); got != entity.StageAudio {
		t.Fatalf("initialStage(audio) = %v, want %v", got, entity.StageAudio)
	}
}

type fakeExtractorMetrics struct {
	runs   []string
	errors []string
}

func (f *fakeExtractorMetrics) RecordExtractorRun(stage entity.Stage, status string) {
	f.runs = append(f.runs, string(stage)+":"+status)
}

func (f *fakeExtractorMetrics) RecordExtractorError(errorType string) {
	f.errors = append(f.errors, errorType)
}

func TestRecordRunAndErrorNilSafe(t *testing.T) {
	d := &Driver{}

	d.recordRun(entity.StageVideo, "success")
	d.recordError("spawn")
}

func TestRecordRunAndErrorWiresMetrics(t *testing.T) {
	fm := &fakeExtractorMetrics{}
	d := &Driver{metrics: fm}

	d.recordRun(entity.StageAudio, "failed")
	d.recordError("exit_code")

	if len(fm.runs) != 1 || fm.runs[0] != "audio:failed" {
		t.Fatalf("unexpected runs: %v", fm.runs)
	}

	if len(fm.errors) != 1 || fm.errors[0] != "exit_code" {
		t.Fatalf("unexpected errors: %v", fm.errors)
	}
}
