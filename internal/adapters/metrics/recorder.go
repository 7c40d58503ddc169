// Package metrics exposes build, chain and relay counters in the Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "cloudbuilder"

// Recorder implements ports.Metrics on a Prometheus registry.
type Recorder struct {
	reg            *prom.Registry
	builds         *prom.CounterVec
	buildDuration  *prom.HistogramVec
	targets        *prom.CounterVec
	targetDuration *prom.HistogramVec
	relays         *prom.CounterVec
	jobs           atomic.Pointer[func() int]
}

// NewRecorder registers the collectors on reg. A nil registry gets a fresh one.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "builds_total",
			Help:      "Builds run on this worker by outcome",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of one build tool invocation",
			Buckets:   prom.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		targets: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "chain_targets_total",
			Help:      "Chain targets driven by the orchestrator by result",
		}, []string{"target", "result"}),
		targetDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "chain_target_duration_seconds",
			Help:      "Wall time of one chain target from submission to artifact",
			Buckets:   prom.ExponentialBuckets(1, 2, 12),
		}, []string{"target"}),
		relays: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "relay_sessions_total",
			Help:      "Relay sessions served by this worker by result",
		}, []string{"result"}),
	}
	activeJobs := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: Namespace,
		Name:      "active_jobs",
		Help:      "Jobs currently held by the registry",
	}, r.sampleJobs)
	reg.MustRegister(r.builds, r.buildDuration, r.targets, r.targetDuration, r.relays, activeJobs)
	return r
}

// ObserveBuild records one finished build run.
func (r *Recorder) ObserveBuild(outcome string, seconds float64) {
	r.builds.WithLabelValues(outcome).Inc()
	r.buildDuration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveTarget records one finished chain target.
func (r *Recorder) ObserveTarget(target, result string, seconds float64) {
	r.targets.WithLabelValues(target, result).Inc()
	r.targetDuration.WithLabelValues(target).Observe(seconds)
}

// ObserveRelay records one closed relay session.
func (r *Recorder) ObserveRelay(result string) {
	r.relays.WithLabelValues(result).Inc()
}

// TrackJobs sets the source of the active jobs gauge, sampled at scrape time.
// A later call replaces the previous source.
func (r *Recorder) TrackJobs(count func() int) {
	r.jobs.Store(&count)
}

func (r *Recorder) sampleJobs() float64 {
	count := r.jobs.Load()
	if count == nil {
		return 0
	}
	return float64((*count)())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
