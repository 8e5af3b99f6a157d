// Package metrics exposes run counters in the Prometheus text format, for
// collection through the node exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/eunmann/vuln-stats/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vulnstats"

// Recorder holds the counters of one process run. Each Recorder owns an
// independent registry, so several can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	apps          *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	records       *prometheus.CounterVec
	persistErrors *prometheus.CounterVec
	lookups       *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	duration      *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		apps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apps_total",
			Help:      "Apps visited by a pipeline.",
		}, []string{"pipeline"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Apps by outcome of their scan job: processed, skipped or failed.",
		}, []string{"pipeline", "outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Statistics records written.",
		}, []string{"pipeline", "table"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Records that could not be written.",
		}, []string{"pipeline"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_lookups_total",
			Help:      "Knowledgebase lookups issued.",
		}, []string{"pipeline"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_cache_hits_total",
			Help:      "Library attributions answered from the cache.",
		}, []string{"pipeline"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of the last pipeline run.",
		}, []string{"pipeline"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
	r.registry.MustRegister(
		r.apps, r.jobs, r.records, r.persistErrors,
		r.lookups, r.cacheHits, r.duration, r.lastRun,
	)
	return r
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe adds one pipeline run to the counters.
func (r *Recorder) Observe(s pipeline.Summary) {
	name := s.Pipeline
	t := s.Traversal
	r.apps.WithLabelValues(name).Add(float64(t.Apps))
	r.jobs.WithLabelValues(name, "processed").Add(float64(t.Processed))
	r.jobs.WithLabelValues(name, "skipped").Add(float64(t.Skipped))
	r.jobs.WithLabelValues(name, "failed").Add(float64(t.Failed))

	if w := s.Stats.Written; w != nil {
		for _, table := range w.Keys() {
			r.records.WithLabelValues(name, table).Add(float64(w.Get(table)))
		}
	}
	r.persistErrors.WithLabelValues(name).Add(float64(s.Stats.PersistErrors))
	r.lookups.WithLabelValues(name).Add(float64(s.Stats.Attribution.Lookups))
	r.cacheHits.WithLabelValues(name).Add(float64(s.Stats.Attribution.Hits))
	r.duration.WithLabelValues(name).Set(s.Elapsed.Seconds())
}

// MarkFinished stamps the run's completion time.
func (r *Recorder) MarkFinished() {
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
