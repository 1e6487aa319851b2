package datastore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/model"
)

// PostgresStore appends to a PostgreSQL table with COPY.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	table  string
	log    logger.Logger
}

// postgresURL builds the connection URL. The password is escaped by
// url.UserPassword.
func postgresURL(d *conf.DestinationSettings) string {
	query := url.Values{}
	if d.SSLMode != "" {
		query.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))
	}
	query.Set("application_name", "activity-loader")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// OpenPostgres connects to the destination database. The pool holds a
// single connection since the loader never works concurrently.
func OpenPostgres(ctx context.Context, d *conf.DestinationSettings, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("postgres")
	table := d.QualifiedTable()

	cfg, err := pgxpool.ParseConfig(postgresURL(d))
	if err != nil {
		return nil, dbError(fmt.Errorf("invalid postgres connection settings: %w", err), "connect", table)
	}
	cfg.MaxConns = 1
	cfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to create postgres pool: %w", err), "connect", table,
			"host", d.Host, "port", d.Port, "database", d.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error("Failed to connect to PostgreSQL",
			logger.String("host", d.Host),
			logger.Int("port", d.Port),
			logger.String("database", d.Database),
			logger.Error(errors.NewStd(errors.ScrubMessage(err.Error()))))
		return nil, dbError(fmt.Errorf("failed to connect to postgres at %s:%d/%s: %w", d.Host, d.Port, d.Database, err),
			"connect", table, "host", d.Host, "port", d.Port, "database", d.Database)
	}

	log.Debug("Connected to PostgreSQL",
		logger.String("host", d.Host),
		logger.Int("port", d.Port),
		logger.String("database", d.Database))

	return NewPostgresStore(pool, d.Schema, d.Table, log), nil
}

// NewPostgresStore wraps an existing pool. The store owns the pool and
// closes it in Close.
func NewPostgresStore(pool *pgxpool.Pool, schema, table string, log logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &PostgresStore{pool: pool, schema: schema, table: table, log: log}
}

func (s *PostgresStore) identifier() pgx.Identifier {
	if s.schema == "" {
		return pgx.Identifier{s.table}
	}
	return pgx.Identifier{s.schema, s.table}
}

// Table returns schema.table.
func (s *PostgresStore) Table() string {
	if s.schema == "" {
		return s.table
	}
	return s.schema + "." + s.table
}

// Driver returns "postgres".
func (s *PostgresStore) Driver() string { return conf.DriverPostgres }

// MaxActDatetime returns max(act_datetime). A missing table is reported as
// not found rather than as an error.
func (s *PostgresStore) MaxActDatetime(ctx context.Context) (time.Time, bool, error) {
	ident := s.identifier().Sanitize()

	var regclass *string
	if err := s.pool.QueryRow(ctx, "SELECT to_regclass($1)::text", ident).Scan(&regclass); err != nil {
		return time.Time{}, false, dbError(fmt.Errorf("failed to look up table %s: %w", s.Table(), err), "max_act_datetime", s.Table())
	}
	if regclass == nil {
		s.log.Debug("Destination table does not exist", logger.String("table", s.Table()))
		return time.Time{}, false, nil
	}

	var latest *time.Time
	query := "SELECT max(act_datetime) FROM " + ident
	if err := s.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, false, dbError(fmt.Errorf("failed to query max act_datetime from %s: %w", s.Table(), err), "max_act_datetime", s.Table())
	}
	if latest == nil {
		return time.Time{}, false, nil
	}

	// timestamp columns decode as UTC already; timestamptz decodes in
	// time.Local and must be brought back to UTC, not re-labelled.
	return latest.UTC(), true, nil
}

// Append copies records into the table inside one transaction.
func (s *PostgresStore) Append(ctx context.Context, records []model.Record) (n int64, err error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, dbError(fmt.Errorf("begin tx: %w", err), "begin", s.Table())
	}
	defer func() {
		s.rollbackOrCommit(tx, &err)
		if err != nil {
			n = 0
		}
	}()

	rows := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return records[i].Values(), nil
	})

	n, err = tx.CopyFrom(ctx, s.identifier(), model.Columns, rows)
	if err != nil {
		return 0, dbError(fmt.Errorf("failed to copy %d rows into %s: %w", len(records), s.Table(), err), "append", s.Table(),
			"rows", len(records))
	}
	if n != int64(len(records)) {
		err = dbError(fmt.Errorf("copied %d of %d rows into %s", n, len(records), s.Table()), "append", s.Table())
		return 0, err
	}

	return n, nil
}

// rollbackOrCommit ends tx according to *err. A failed commit replaces
// *err. Background context is used so that a cancelled run still rolls back.
func (s *PostgresStore) rollbackOrCommit(tx pgx.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(context.Background()); rbErr != nil {
			s.log.Error("Transaction rollback failed",
				logger.Error(rbErr),
				logger.String("original_error", (*err).Error()))
		} else {
			s.log.Warn("Transaction rolled back", logger.Error(*err))
		}
		return
	}

	if cmErr := tx.Commit(context.Background()); cmErr != nil {
		s.log.Error("Transaction commit failed", logger.Error(cmErr))
		*err = dbError(fmt.Errorf("commit failed: %w", cmErr), "commit", s.Table())
	}
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
