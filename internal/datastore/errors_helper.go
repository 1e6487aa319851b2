package datastore

import (
	"github.com/tphakala/activity-loader/internal/errors"
)

// dbError creates a storage error with the operation and table as context.
func dbError(err error, operation, table string, context ...any) error {
	builder := errors.StorageError(err, operation).
		Context("table", table)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}
