package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cloudbuilder/internal/adapters/metrics"
	"go.trai.ch/cloudbuilder/internal/core/ports"
)

var _ ports.Metrics = (*metrics.Recorder)(nil)

func family(t *testing.T, reg *prom.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func counterFor(t *testing.T, mf *dto.MetricFamily, labels map[string]string) float64 {
	t.Helper()
	for _, m := range mf.GetMetric() {
		got := map[string]string{}
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		if assert.ObjectsAreEqual(labels, got) {
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("no series %v in %s", labels, mf.GetName())
	return 0
}

func TestRecorder_Builds(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewRecorder(reg)

	rec.ObserveBuild("success", 12)
	rec.ObserveBuild("success", 3)
	rec.ObserveBuild("killed", 1)

	builds := family(t, reg, "cloudbuilder_builds_total")
	assert.InDelta(t, 2, counterFor(t, builds, map[string]string{"outcome": "success"}), 0)
	assert.InDelta(t, 1, counterFor(t, builds, map[string]string{"outcome": "killed"}), 0)

	hist := family(t, reg, "cloudbuilder_build_duration_seconds")
	var samples uint64
	for _, m := range hist.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), samples)
}

func TestRecorder_TargetsAndRelays(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewRecorder(reg)

	rec.ObserveTarget("modduo", "success", 30)
	rec.ObserveTarget("moddwarf", "failed", 10)
	rec.ObserveRelay("completed")
	rec.ObserveRelay("aborted")
	rec.ObserveRelay("aborted")

	targets := family(t, reg, "cloudbuilder_chain_targets_total")
	assert.InDelta(t, 1, counterFor(t, targets, map[string]string{"target": "modduo", "result": "success"}), 0)
	assert.InDelta(t, 1, counterFor(t, targets, map[string]string{"target": "moddwarf", "result": "failed"}), 0)

	relays := family(t, reg, "cloudbuilder_relay_sessions_total")
	assert.InDelta(t, 2, counterFor(t, relays, map[string]string{"result": "aborted"}), 0)
}

func TestRecorder_TrackJobs(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewRecorder(reg)

	active := 4
	rec.TrackJobs(func() int { return active })

	gauge := family(t, reg, "cloudbuilder_active_jobs")
	require.Len(t, gauge.GetMetric(), 1)
	assert.InDelta(t, 4, gauge.GetMetric()[0].GetGauge().GetValue(), 0)

	active = 1
	gauge = family(t, reg, "cloudbuilder_active_jobs")
	assert.InDelta(t, 1, gauge.GetMetric()[0].GetGauge().GetValue(), 0)
}

func TestRecorder_TrackJobsReplacesSource(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewRecorder(reg)

	gauge := family(t, reg, "cloudbuilder_active_jobs")
	assert.InDelta(t, 0, gauge.GetMetric()[0].GetGauge().GetValue(), 0)

	rec.TrackJobs(func() int { return 2 })
	require.NotPanics(t, func() { rec.TrackJobs(func() int { return 7 }) })

	gauge = family(t, reg, "cloudbuilder_active_jobs")
	require.Len(t, gauge.GetMetric(), 1)
	assert.InDelta(t, 7, gauge.GetMetric()[0].GetGauge().GetValue(), 0)
}

func TestRecorder_Handler(t *testing.T) {
	rec := metrics.NewRecorder(nil)
	rec.ObserveRelay("completed")

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cloudbuilder_relay_sessions_total{result="completed"} 1`)
}
