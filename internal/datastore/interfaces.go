// Package datastore provides the destination stores the activity loader
// appends to: PostgreSQL through pgx, MySQL and SQLite through gorm.
package datastore

import (
	"context"
	"time"

	"github.com/tphakala/activity-loader/internal/model"
)

// Store is the destination activity table.
type Store interface {
	// MaxActDatetime returns the latest act_datetime stored. found is false
	// when the table does not exist or holds no rows.
	MaxActDatetime(ctx context.Context) (latest time.Time, found bool, err error)

	// Append inserts records inside one transaction and returns the number
	// of rows written. Either every record is stored or none is.
	Append(ctx context.Context, records []model.Record) (int64, error)

	// Table returns the qualified table name for logs.
	Table() string

	// Driver returns the driver name, e.g. "postgres".
	Driver() string

	// Close releases the connection.
	Close() error
}
