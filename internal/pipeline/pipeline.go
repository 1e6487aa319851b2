// Package pipeline runs one incremental load: read the workbook, compare it
// with the destination watermark and append what is new.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/datastore"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/incremental"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/model"
	"github.com/tphakala/activity-loader/internal/observability"
	"github.com/tphakala/activity-loader/internal/observability/metrics"
	"github.com/tphakala/activity-loader/internal/source"
)

// OpenFunc opens the destination store.
type OpenFunc func(ctx context.Context, d *conf.DestinationSettings, log logger.Logger) (datastore.Store, error)

// Summary describes one run.
type Summary struct {
	RunID     string
	Read      int
	Dropped   int
	Old       int
	New       int
	Loaded    int64
	Watermark time.Time
	SourceMax time.Time
	Duration  time.Duration
	DryRun    bool
}

// Pipeline sequences the stages of a run.
type Pipeline struct {
	settings *conf.Settings
	root     logger.Logger
	log      logger.Logger
	reader   source.Reader
	fs       afero.Fs
	open     OpenFunc
	metrics  *observability.Metrics
	recorder metrics.Recorder
	now      func() time.Time
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReader replaces the workbook reader.
func WithReader(r source.Reader) Option {
	return func(p *Pipeline) { p.reader = r }
}

// WithFs reads the workbook from fs.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithOpener replaces the store factory.
func WithOpener(open OpenFunc) Option {
	return func(p *Pipeline) { p.open = open }
}

// WithMetrics records run metrics and exports them when the run ends.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
		if m != nil {
			p.recorder = m.Loader
		}
	}
}

// WithClock sets the source of the load time.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a pipeline for settings.
func New(settings *conf.Settings, log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	p := &Pipeline{
		settings: settings,
		root:     log,
		log:      log.Module("pipeline"),
		open:     datastore.Open,
		recorder: metrics.NopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reader == nil {
		p.reader = source.NewExcelReader(p.fs, settings.Source.Path, settings.Source.ColumnRange, log)
	}
	return p
}

// Run executes one load. The destination is closed before Run returns,
// whatever the outcome.
func (p *Pipeline) Run(ctx context.Context) (summary Summary, err error) {
	start := time.Now()
	summary = Summary{RunID: p.newID(), DryRun: p.settings.Load.DryRun}
	ctx = logger.WithTraceID(ctx, summary.RunID)
	log := p.log.WithContext(ctx)

	defer func() {
		summary.Duration = time.Since(start)
		p.finish(ctx, log, &summary, err)
	}()

	log.Info("Starting ETL pipeline",
		logger.String("source", p.settings.Source.Path),
		logger.String("driver", p.settings.Destination.Driver),
		logger.String("table", p.settings.Destination.QualifiedTable()),
		logger.Bool("dry_run", summary.DryRun))

	p.logDestination(log)

	log.Info("Reading data from Excel", logger.String("path", p.settings.Source.Path))
	table, err := p.reader.Read(ctx)
	if err != nil {
		log.Error("Failed to read source", logger.Error(err))
		return summary, err
	}
	summary.Read = table.Len()
	p.recorder.RecordRows(metrics.StageRead, summary.Read)
	log.Info("Source read",
		logger.String("sheet", table.Sheet),
		logger.Int("rows", summary.Read))

	store, err := p.open(ctx, &p.settings.Destination, p.root.WithContext(ctx))
	if err != nil {
		log.Error("Failed to open destination", logger.Error(err))
		return summary, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("Failed to close destination", logger.Error(cerr))
		}
	}()

	watermark, err := incremental.ResolveWatermark(ctx, store, log)
	if err != nil {
		return summary, err
	}
	summary.Watermark = watermark
	p.recorder.SetWatermark(watermark)

	filter := incremental.Filter{InsertProcess: p.settings.Load.InsertProcess, Now: p.now}
	res, err := filter.Apply(table, watermark)
	if err != nil {
		log.Error("Failed to filter source rows", logger.Error(err))
		return summary, err
	}
	summary.Dropped = res.Dropped
	summary.Old = res.Old
	summary.New = len(res.Records)
	summary.SourceMax = res.SourceMax
	p.recordFilter(&summary)

	if !res.SourceMax.IsZero() {
		log.Info("Max datetime from Excel", logger.Time("source_max", res.SourceMax))
	}
	if res.Dropped > 0 {
		log.Debug("Dropped rows without start time", logger.Int("rows", res.Dropped))
	}
	log.Info(fmt.Sprintf("%d new rows identified", summary.New),
		logger.Int("rows", summary.New),
		logger.Int("older_or_equal", summary.Old))

	if summary.DryRun {
		p.logDryRun(log, res.Records)
		return summary, nil
	}

	summary.Loaded, err = incremental.NewLoader(store, log).Load(ctx, res.Records)
	if err != nil {
		return summary, err
	}
	p.recorder.RecordRows(metrics.StageLoaded, int(summary.Loaded))

	return summary, nil
}

// logDestination reports where the destination is, without the password.
func (p *Pipeline) logDestination(log logger.Logger) {
	d := &p.settings.Destination
	if d.Driver == conf.DriverSQLite {
		log.Info("Fetching destination configuration",
			logger.String("driver", d.Driver),
			logger.String("path", d.Path))
		return
	}
	log.Info("Fetching PostgreSQL configuration",
		logger.String("driver", d.Driver),
		logger.String("host", d.Host),
		logger.Int("port", d.Port),
		logger.String("database", d.Database),
		logger.String("user", d.Username))
}

func (p *Pipeline) recordFilter(s *Summary) {
	p.recorder.SetSourceMax(s.SourceMax)
	p.recorder.RecordRows(metrics.StageDropped, s.Dropped)
	p.recorder.RecordRows(metrics.StageOld, s.Old)
	p.recorder.RecordRows(metrics.StageNew, s.New)
}

func (p *Pipeline) logDryRun(log logger.Logger, records []model.Record) {
	for i := range records {
		log.Debug("Would load row",
			logger.String("activity", records[i].Activity),
			logger.Time("act_datetime", records[i].ActDatetime))
	}
	log.Info("Dry run, nothing written", logger.Int("rows", len(records)))
}

// finish logs the outcome, records run metrics and exports them. Export
// failures are logged and never change the run result.
func (p *Pipeline) finish(ctx context.Context, log logger.Logger, s *Summary, err error) {
	status := metrics.StatusSuccess
	switch {
	case err != nil:
		status = metrics.StatusError
	case s.DryRun:
		status = metrics.StatusDryRun
	}
	p.recorder.RecordRun(status, s.Duration)

	fields := []logger.Field{
		logger.String("run_id", s.RunID),
		logger.Int("read", s.Read),
		logger.Int("dropped", s.Dropped),
		logger.Int("new", s.New),
		logger.Int64("loaded", s.Loaded),
		logger.Time("watermark", s.Watermark),
		logger.Duration("elapsed", s.Duration),
	}
	if err != nil {
		log.Error("ETL pipeline failed", append(fields,
			logger.String("category", string(errors.CategoryOf(err))),
			logger.Error(err))...)
	} else {
		log.Info("ETL pipeline finished successfully", fields...)
	}

	if p.metrics != nil {
		// The run context may already be cancelled; the export gets its own.
		exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
		defer cancel()
		if xerr := p.metrics.Export(exportCtx, &p.settings.Metrics, log); xerr != nil {
			log.Warn("Failed to export metrics", logger.Error(xerr))
		}
	}
}

const exportTimeout = 10 * time.Second
