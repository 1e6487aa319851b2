package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *LoaderMetrics {
	t.Helper()
	m, err := NewLoaderMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func TestRecordRows(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.RecordRows(StageRead, 3)
	m.RecordRows(StageNew, 1)

	assert.InDelta(t, 3, testutil.ToFloat64(m.lastRunRows.WithLabelValues(StageRead)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.lastRunRows.WithLabelValues(StageNew)), 0)
}

func TestRecordRunMovesLastSuccessOnlyOnSuccess(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.RecordRun(StatusError, time.Second)
	assert.False(t, m.HasLastSuccess())
	assert.Zero(t, testutil.ToFloat64(m.lastRunSuccess))
	assert.InDelta(t, 1, testutil.ToFloat64(m.lastRunDuration), 0)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(m.lastRunTimestamp), 0)

	m.RecordRun(StatusDryRun, 2*time.Second)
	assert.True(t, m.HasLastSuccess())
	assert.InDelta(t, 1, testutil.ToFloat64(m.lastRunSuccess), 0)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(m.lastSuccessTimestamp), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.lastRunDuration), 0)
}

func TestLastSuccessCollectedOnlyWhenKnown(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewLoaderMetrics(registry)
	require.NoError(t, err)

	m.RecordRun(StatusError, time.Second)
	count, err := testutil.GatherAndCount(registry, LastSuccessMetric)
	require.NoError(t, err)
	assert.Zero(t, count, "a failed run must not export a last success of 0")

	m.SeedLastSuccess(1600000000)
	count, err = testutil.GatherAndCount(registry, LastSuccessMetric)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.InDelta(t, 1600000000, testutil.ToFloat64(m.lastSuccessTimestamp), 0)
}

func TestSeedLastSuccessKeepsValueOfThisRun(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.SeedLastSuccess(0)
	assert.False(t, m.HasLastSuccess(), "zero is not a success time")

	m.RecordRun(StatusSuccess, time.Second)
	m.SeedLastSuccess(1600000000)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(m.lastSuccessTimestamp), 0)
}

func TestWatermarkGauges(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.SetWatermark(time.Time{})
	assert.Zero(t, testutil.ToFloat64(m.watermarkTimestamp))

	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	m.SetWatermark(at)
	m.SetSourceMax(at.Add(time.Hour))
	assert.InDelta(t, float64(at.Unix()), testutil.ToFloat64(m.watermarkTimestamp), 0)
	assert.InDelta(t, float64(at.Add(time.Hour).Unix()), testutil.ToFloat64(m.sourceMaxTimestamp), 0)
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewLoaderMetrics(registry)
	require.NoError(t, err)
	_, err = NewLoaderMetrics(registry)
	assert.Error(t, err)
}

func TestNopRecorderSatisfiesRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NopRecorder{}
	r.RecordRows(StageRead, 1)
	r.RecordRun(StatusSuccess, time.Second)

	r = newTestMetrics(t)
	r.SetWatermark(time.Now())
}
