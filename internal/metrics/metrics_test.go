package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	for name, c := range map[string]prometheus.Collector{
		"tracked_seconds":    TrackedSeconds,
		"transitions":        Transitions,
		"tracking_active":    TrackingActive,
		"applications_today": ApplicationsToday,
		"flush_duration":     FlushDuration,
		"probe_errors":       ProbeErrors,
	} {
		if err := prometheus.Register(c); err == nil {
			t.Errorf("%s was not registered by init", name)
		}
	}
}

func TestFlushesByResult(t *testing.T) {
	before := testutil.ToFloat64(FlushesTotal.WithLabelValues("error"))
	FlushesTotal.WithLabelValues("error").Inc()

	if got := testutil.ToFloat64(FlushesTotal.WithLabelValues("error")); got != before+1 {
		t.Errorf("flushes{result=error} = %v, want %v", got, before+1)
	}
}
