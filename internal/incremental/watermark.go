// Package incremental decides which workbook rows are new and appends them
// to the destination.
package incremental

import (
	"context"
	"time"

	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
)

// storageError tags err as a storage failure unless it already carries a
// category.
func storageError(err error, operation string) error {
	if errors.CategoryOf(err) != errors.CategoryGeneric {
		return err
	}
	return errors.StorageError(err, operation).Build()
}

// MinWatermark is the watermark of an empty or absent destination table.
// It precedes every real activity time.
var MinWatermark = time.Time{}

// WatermarkReader reads the latest stored act_datetime.
type WatermarkReader interface {
	MaxActDatetime(ctx context.Context) (latest time.Time, found bool, err error)
	Table() string
}

// ResolveWatermark returns the latest act_datetime in the destination, or
// MinWatermark when the table is empty or absent. Any failure is a storage
// error and no partial result is returned.
func ResolveWatermark(ctx context.Context, store WatermarkReader, log logger.Logger) (time.Time, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	latest, found, err := store.MaxActDatetime(ctx)
	if err != nil {
		log.Error("Failed to read watermark",
			logger.String("table", store.Table()),
			logger.Error(err))
		return MinWatermark, storageError(err, "max_act_datetime")
	}
	if !found {
		log.Info("Destination table is empty, loading all rows",
			logger.String("table", store.Table()))
		return MinWatermark, nil
	}

	log.Info("Max datetime from destination",
		logger.String("table", store.Table()),
		logger.Time("watermark", latest))
	return latest, nil
}
