package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "activity_loader"

// LastSuccessMetric is the full name of the last success gauge. Exporters
// look it up in earlier output to carry it across runs.
const LastSuccessMetric = namespace + "_last_success_timestamp_seconds"

// LoaderMetrics describes the most recent loader run. Every process starts
// from a fresh registry, so the values are gauges of that run rather than
// counters; only the last success time is carried over from earlier runs.
type LoaderMetrics struct {
	lastRunRows          *prometheus.GaugeVec
	lastRunSuccess       prometheus.Gauge
	lastRunTimestamp     prometheus.Gauge
	lastRunDuration      prometheus.Gauge
	lastSuccessTimestamp prometheus.Gauge
	watermarkTimestamp   prometheus.Gauge
	sourceMaxTimestamp   prometheus.Gauge

	// hasLastSuccess gates lastSuccessTimestamp so that a failed first run
	// does not export 0.
	hasLastSuccess atomic.Bool

	// collectors is a slice of all collectors except the gated one
	collectors []prometheus.Collector

	now func() time.Time
}

// NewLoaderMetrics creates and registers new loader metrics
func NewLoaderMetrics(registry prometheus.Registerer) (*LoaderMetrics, error) {
	m := &LoaderMetrics{now: time.Now}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LoaderMetrics) initMetrics() {
	m.lastRunRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_rows",
			Help:      "Rows seen per pipeline stage in the last run",
		},
		[]string{"stage"},
	)

	m.lastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success",
		Help:      "1 when the last run succeeded (dry runs included), 0 when it failed",
	})

	m.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})

	m.lastRunDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the last run",
	})

	m.lastSuccessTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run, kept across failed runs",
	})

	m.watermarkTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watermark_timestamp_seconds",
		Help:      "Latest act_datetime in the destination at the start of the last run, 0 when empty",
	})

	m.sourceMaxTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_max_timestamp_seconds",
		Help:      "Latest activity time found in the sheet by the last run, 0 when none",
	})

	m.collectors = []prometheus.Collector{
		m.lastRunRows,
		m.lastRunSuccess,
		m.lastRunTimestamp,
		m.lastRunDuration,
		m.watermarkTimestamp,
		m.sourceMaxTimestamp,
	}
}

// Describe implements the Collector interface
func (m *LoaderMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
	m.lastSuccessTimestamp.Describe(ch)
}

// Collect implements the Collector interface. The last success gauge is
// only collected once it holds a value.
func (m *LoaderMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
	if m.hasLastSuccess.Load() {
		m.lastSuccessTimestamp.Collect(ch)
	}
}

// RecordRows sets the row count of stage for this run.
func (m *LoaderMetrics) RecordRows(stage string, n int) {
	m.lastRunRows.WithLabelValues(stage).Set(float64(n))
}

// RecordRun records the outcome of the run. A successful or dry run also
// moves the last success timestamp.
func (m *LoaderMetrics) RecordRun(status string, duration time.Duration) {
	now := float64(m.now().Unix())
	m.lastRunTimestamp.Set(now)
	m.lastRunDuration.Set(duration.Seconds())

	if status == StatusError {
		m.lastRunSuccess.Set(0)
		return
	}
	m.lastRunSuccess.Set(1)
	m.lastSuccessTimestamp.Set(now)
	m.hasLastSuccess.Store(true)
}

// HasLastSuccess reports whether the last success gauge holds a value.
func (m *LoaderMetrics) HasLastSuccess() bool {
	return m.hasLastSuccess.Load()
}

// SeedLastSuccess sets the last success time found in earlier output. It
// never replaces a value recorded by this run.
func (m *LoaderMetrics) SeedLastSuccess(unix float64) {
	if unix <= 0 || m.hasLastSuccess.Load() {
		return
	}
	m.lastSuccessTimestamp.Set(unix)
	m.hasLastSuccess.Store(true)
}

// SetWatermark records the watermark. The zero time is exported as 0.
func (m *LoaderMetrics) SetWatermark(t time.Time) {
	m.watermarkTimestamp.Set(unixSeconds(t))
}

// SetSourceMax records the latest activity time in the sheet.
func (m *LoaderMetrics) SetSourceMax(t time.Time) {
	m.sourceMaxTimestamp.Set(unixSeconds(t))
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix())
}
