package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	samplesIngested *prometheus.CounterVec
	samplesRejected *prometheus.CounterVec
	samplesStored   prometheus.Gauge
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	gridDuration    *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	published       *prometheus.CounterVec
	streamClients   prometheus.Gauge
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		samplesIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volsurf_samples_ingested_total",
				Help: "Samples accepted into the surface",
			},
			[]string{"source"},
		),
		samplesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volsurf_samples_rejected_total",
				Help: "Samples refused, by source and reason",
			},
			[]string{"source", "reason"},
		),
		samplesStored: f.NewGauge(prometheus.GaugeOpts{
			Name: "volsurf_samples_stored",
			Help: "Distinct sample positions currently held",
		}),
		rebuilds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volsurf_rebuilds_total",
				Help: "Interpolant rebuilds, by outcome",
			},
			[]string{"ok"},
		),
		rebuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "volsurf_rebuild_duration_seconds",
			Help:    "Time spent triangulating and fitting the surface",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		gridDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volsurf_grid_duration_seconds",
				Help:    "Time spent evaluating a grid",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volsurf_grid_cache_lookups_total",
				Help: "Grid cache lookups, by result",
			},
			[]string{"result"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volsurf_published_total",
				Help: "Grid snapshots published, by sink and outcome",
			},
			[]string{"sink", "ok"},
		),
		streamClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "volsurf_stream_clients",
			Help: "Connected surface stream subscribers",
		}),
	}
}

// SampleIngested counts an accepted sample and records the new store size.
func (r *Recorder) SampleIngested(source string, stored int) {
	r.samplesIngested.WithLabelValues(source).Inc()
	r.samplesStored.Set(float64(stored))
}

// SampleRejected counts a refused sample.
func (r *Recorder) SampleRejected(source, reason string) {
	r.samplesRejected.WithLabelValues(source, reason).Inc()
}

// Rebuild records one interpolant rebuild. Its signature matches the
// engine's rebuild hook.
func (r *Recorder) Rebuild(_ int, took time.Duration, err error) {
	r.rebuilds.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
	r.rebuildDuration.Observe(took.Seconds())
}

// GridEvaluated records grid evaluation latency.
func (r *Recorder) GridEvaluated(source string, took time.Duration) {
	r.gridDuration.WithLabelValues(source).Observe(took.Seconds())
}

// CacheLookup counts a grid cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// Published counts a grid snapshot sent to sink.
func (r *Recorder) Published(sink string, err error) {
	r.published.WithLabelValues(sink, strconv.FormatBool(err == nil)).Inc()
}

// StreamClients sets the number of connected stream subscribers.
func (r *Recorder) StreamClients(n int) {
	r.streamClients.Set(float64(n))
}
