package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	m := NewMetrics()
	finished := time.Unix(1714700000, 0)

	m.ObserveRun("SUCCESS", 2*time.Second, 3700, 5, finished)
	m.ObserveRun("FAILED", time.Second, 0, 0, finished.Add(time.Hour))
	m.FetchFailures.WithLabelValues("FSPTX").Inc()

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("SUCCESS")); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("FAILED")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RowsWritten); got != 3700 {
		t.Errorf("rows = %v, want 3700 (failed run must not reset it)", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != 1714700000 {
		t.Errorf("last success = %v", got)
	}
	if got := testutil.CollectAndCount(m.FetchFailures); got != 1 {
		t.Errorf("fetch failure series = %d, want 1", got)
	}
}
