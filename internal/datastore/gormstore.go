package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/model"
)

const (
	// DefaultBatchSize is the number of rows per INSERT statement.
	DefaultBatchSize = 500

	slowQueryThreshold = 200 * time.Millisecond
)

// GormStore appends to a MySQL or SQLite table through gorm.
type GormStore struct {
	db        *gorm.DB
	driver    string
	table     string
	batchSize int
	log       logger.Logger
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithBatchSize sets the number of rows per INSERT. Values below 1 are ignored.
func WithBatchSize(n int) GormOption {
	return func(s *GormStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func gormConfig(log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.NewGormLoggerAdapter(log, slowQueryThreshold),
		SkipDefaultTransaction: true,
	}
}

// OpenSQLite opens the database file at d.Path, creating its directory.
func OpenSQLite(d *conf.DestinationSettings, log logger.Logger, opts ...GormOption) (*GormStore, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("sqlite")

	if dir := filepath.Dir(d.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileError(fmt.Errorf("failed to create database directory: %w", err), dir, 0)
		}
	}

	db, err := gorm.Open(sqlite.Open(d.Path), gormConfig(log))
	if err != nil {
		log.Error("Failed to open SQLite database",
			logger.String("path", d.Path),
			logger.Error(err))
		return nil, dbError(fmt.Errorf("failed to open SQLite database: %w", err), "connect", d.Table, "path", d.Path)
	}

	return newGormStore(db, conf.DriverSQLite, d.Table, log, opts...)
}

// mysqlDSN builds the go-sql-driver DSN. Timestamps are read and written
// in UTC so wall-clock values survive unchanged.
func mysqlDSN(d *conf.DestinationSettings) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
	if d.ConnectTimeout > 0 {
		dsn += "&timeout=" + d.ConnectTimeout.String()
	}
	return dsn
}

// OpenMySQL connects to the MySQL database named in d.
func OpenMySQL(d *conf.DestinationSettings, log logger.Logger, opts ...GormOption) (*GormStore, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("mysql")

	db, err := gorm.Open(mysql.Open(mysqlDSN(d)), gormConfig(log))
	if err != nil {
		log.Error("Failed to open MySQL database",
			logger.String("host", d.Host),
			logger.Int("port", d.Port),
			logger.String("database", d.Database),
			logger.Error(errors.NewStd(errors.ScrubMessage(err.Error()))))
		return nil, dbError(fmt.Errorf("failed to open MySQL database: %w", err), "connect", d.Table,
			"host", d.Host, "port", d.Port, "database", d.Database)
	}

	return newGormStore(db, conf.DriverMySQL, d.Table, log, opts...)
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, driver, table string, log logger.Logger, opts ...GormOption) (*GormStore, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return newGormStore(db, driver, table, log, opts...)
}

func newGormStore(db *gorm.DB, driver, table string, log logger.Logger, opts ...GormOption) (*GormStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to get underlying database: %w", err), "connect", table)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &GormStore{
		db:        db,
		driver:    driver,
		table:     table,
		batchSize: DefaultBatchSize,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Table returns the table name.
func (s *GormStore) Table() string { return s.table }

// Driver returns "mysql" or "sqlite".
func (s *GormStore) Driver() string { return s.driver }

// MaxActDatetime returns the latest non-null act_datetime.
func (s *GormStore) MaxActDatetime(ctx context.Context) (time.Time, bool, error) {
	db := s.db.WithContext(ctx)

	if !db.Migrator().HasTable(s.table) {
		s.log.Debug("Destination table does not exist", logger.String("table", s.table))
		return time.Time{}, false, nil
	}

	var latest []time.Time
	err := db.Table(s.table).
		Where("act_datetime IS NOT NULL").
		Order("act_datetime DESC").
		Limit(1).
		Pluck("act_datetime", &latest).Error
	if err != nil {
		return time.Time{}, false, dbError(fmt.Errorf("failed to query max act_datetime from %s: %w", s.table, err), "max_act_datetime", s.table)
	}
	if len(latest) == 0 {
		return time.Time{}, false, nil
	}

	return model.Naive(latest[0]), true, nil
}

// Append inserts records in batches inside one transaction.
func (s *GormStore) Append(ctx context.Context, records []model.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var written int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Table(s.table).CreateInBatches(&records, s.batchSize)
		if result.Error != nil {
			return result.Error
		}
		written = result.RowsAffected
		if written != int64(len(records)) {
			return fmt.Errorf("inserted %d of %d rows", written, len(records))
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Transaction rolled back", logger.String("table", s.table), logger.Error(err))
		return 0, dbError(fmt.Errorf("failed to insert %d rows into %s: %w", len(records), s.table, err), "append", s.table,
			"rows", len(records))
	}

	return written, nil
}

// Close closes the underlying connection.
func (s *GormStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(fmt.Errorf("failed to get underlying database: %w", err), "close", s.table)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(fmt.Errorf("failed to close %s database: %w", s.driver, err), "close", s.table)
	}
	s.db = nil
	return nil
}
