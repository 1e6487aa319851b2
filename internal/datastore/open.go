package datastore

import (
	"context"
	"fmt"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
)

// Open connects to the destination named by d.Driver.
func Open(ctx context.Context, d *conf.DestinationSettings, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("datastore")

	var (
		store Store
		err   error
	)
	switch d.Driver {
	case conf.DriverPostgres:
		store, err = OpenPostgres(ctx, d, log)
	case conf.DriverMySQL:
		store, err = OpenMySQL(d, log)
	case conf.DriverSQLite:
		store, err = OpenSQLite(d, log)
	default:
		return nil, errors.ConfigError(fmt.Errorf("unsupported destination driver %q", d.Driver)).
			Context("driver", d.Driver).
			Build()
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
