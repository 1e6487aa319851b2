package metrics

import "time"

// Recorder defines a minimal interface for recording run metrics.
// The pipeline depends on it rather than on LoaderMetrics so that runs
// without metrics pay nothing.
type Recorder interface {
	// RecordRows sets the row count of stage for this run (see Stage constants).
	RecordRows(stage string, n int)

	// RecordRun records the outcome and duration of one run.
	RecordRun(status string, duration time.Duration)

	// SetWatermark records the destination watermark seen at the start of the run.
	SetWatermark(t time.Time)

	// SetSourceMax records the latest activity time found in the sheet.
	SetSourceMax(t time.Time)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordRows(string, int) {}
func (NopRecorder) RecordRun(string, time.Duration) {}
func (NopRecorder) SetWatermark(time.Time) {}
func (NopRecorder) SetSourceMax(time.Time) {}
