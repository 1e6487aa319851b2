package incremental

import (
	"context"
	"time"

	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/model"
)

// Appender writes records inside a single transaction.
type Appender interface {
	Append(ctx context.Context, records []model.Record) (int64, error)
	Table() string
}

// Loader appends filtered records to the destination.
type Loader struct {
	store Appender
	log   logger.Logger
}

// NewLoader creates a Loader writing to store.
func NewLoader(store Appender, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Loader{store: store, log: log}
}

// Load appends records and returns the number of rows written. An empty
// input does not touch the destination.
func (l *Loader) Load(ctx context.Context, records []model.Record) (int64, error) {
	if len(records) == 0 {
		l.log.Info("No new data found to load.")
		return 0, nil
	}

	start := time.Now()
	l.log.Info("Loading rows",
		logger.String("table", l.store.Table()),
		logger.Int("rows", len(records)))

	n, err := l.store.Append(ctx, records)
	if err != nil {
		l.log.Error("Failed to load data",
			logger.String("table", l.store.Table()),
			logger.Int("rows", len(records)),
			logger.Error(err))
		return 0, storageError(err, "append")
	}

	l.log.Info("Data loaded successfully",
		logger.String("table", l.store.Table()),
		logger.Int64("rows", n),
		logger.Duration("elapsed", time.Since(start)))
	return n, nil
}
