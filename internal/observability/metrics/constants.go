// Package metrics provides Prometheus run metrics for the activity loader.
package metrics

// Stage label values for last_run_rows.
const (
	// StageRead counts data rows read from the sheet.
	StageRead = "read"
	// StageDropped counts rows without a start time.
	StageDropped = "dropped"
	// StageOld counts rows at or below the watermark.
	StageOld = "old"
	// StageNew counts rows newer than the watermark.
	StageNew = "new"
	// StageLoaded counts rows committed to the destination.
	StageLoaded = "loaded"
)

// Run outcomes passed to RecordRun.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDryRun  = "dry_run"
)
