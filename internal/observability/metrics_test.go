package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"reelforge/internal/entity"
)

// New registers its collectors on the process-wide default registry, so a
// second call in the same process panics on duplicate registration; the
// tests share one instance and each checks metrics no other test touches.
var testMetrics = New()

func TestRecordJobStatusDecrementsInProgressOnTerminalStatus(t *testing.T) {
	m := testMetrics

	m.RecordJobCreated()

	if got := testutil.ToFloat64(m.JobsInProgress); got != 1 {
		t.Fatalf("JobsInProgress = %v, want 1", got)
	}

	m.RecordJobStatus(entity.StatusDownloading)

	if got := testutil.ToFloat64(m.JobsInProgress); got != 1 {
		t.Fatalf("JobsInProgress after non-terminal status = %v, want 1", got)
	}

	m.RecordJobStatus(entity.StatusCompleted)

	if got := testutil.ToFloat64(m.JobsInProgress); got != 0 {
		t.Fatalf("JobsInProgress after terminal status = %v, want 0", got)
	}
}

func TestRecordJobBytesAccumulates(t *testing.T) {
	m := testMetrics

	m.RecordJobBytes(1024)
	m.RecordJobBytes(2048)

	if got := testutil.ToFloat64(m.JobBytesTotal); got != 3072 {
		t.Fatalf("JobBytesTotal = %v, want 3072", got)
	}
}

func TestSetActiveJobs(t *testing.T) {
	m := testMetrics

	m.SetActiveJobs(4)

	if got := testutil.ToFloat64(m.ActiveJobs); got != 4 {
		t.Fatalf("ActiveJobs = %v, want 4", got)
	}
}

func TestSetGoroutines(t *testing.T) {
	m := testMetrics

	m.SetGoroutines(42)

	if got := testutil.ToFloat64(m.GoRoutines); got != 42 {
		t.Fatalf("GoRoutines = %v, want 42", got)
	}
}

func TestSetProxiesAvailable(t *testing.T) {
	m := testMetrics

	m.SetProxiesAvailable(3)

	if got := testutil.ToFloat64(m.ProxiesAvailable); got != 3 {
		t.Fatalf("ProxiesAvailable = %v, want 3", got)
	}
}

func TestRecordProxyRequestAndFailure(t *testing.T) {
	m := testMetrics

	m.RecordProxyRequest("socks5h://p1:1080")
	m.RecordProxyRequest("socks5h://p1:1080")
	m.RecordProxyFailure("socks5h://p1:1080")

	if got := testutil.ToFloat64(m.ProxyRequestsTotal.WithLabelValues("socks5h://p1:1080")); got != 2 {
		t.Fatalf("ProxyRequestsTotal = %v, want 2", got)
	}

	if got := testutil.ToFloat64(m.ProxyFailures.WithLabelValues("socks5h://p1:1080")); got != 1 {
		t.Fatalf("ProxyFailures = %v, want 1", got)
	}
}

func TestRecordExtractorRunAndError(t *testing.T) {
	m := testMetrics

	m.RecordExtractorRun(entity.StageVideo, "success")
	m.RecordExtractorError("exit_code")

	if got := testutil.ToFloat64(m.ExtractorRequestsTotal.WithLabelValues(string(entity.StageVideo), "success")); got != 1 {
		t.Fatalf("ExtractorRequestsTotal = %v, want 1", got)
	}

	if got := testutil.ToFloat64(m.ExtractorErrors.WithLabelValues("exit_code")); got != 1 {
		t.Fatalf("ExtractorErrors = %v, want 1", got)
	}
}

func TestJobTimerObservesDuration(t *testing.T) {
	m := testMetrics

	stop := m.JobTimer()
	stop()

	if got := testutil.CollectAndCount(m.JobDuration); got != 1 {
		t.Fatalf("JobDuration sample count = %v, want 1", got)
	}
}
