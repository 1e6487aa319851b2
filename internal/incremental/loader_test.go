package incremental

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/datastore"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/model"
)

// fakeStore records calls and returns canned results.
type fakeStore struct {
	latest    time.Time
	found     bool
	readErr   error
	appendErr error
	appended  [][]model.Record
}

func (f *fakeStore) MaxActDatetime(context.Context) (time.Time, bool, error) {
	return f.latest, f.found, f.readErr
}

func (f *fakeStore) Append(_ context.Context, records []model.Record) (int64, error) {
	f.appended = append(f.appended, records)
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	return int64(len(records)), nil
}

func (f *fakeStore) Table() string { return "public.activity" }

func TestLoaderSkipsEmptyInput(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	log, buf := logger.NewBufferLogger(logger.LogLevelInfo)

	n, err := NewLoader(store, log).Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.appended, "no call on empty input")
	assert.Contains(t, buf.String(), "No new data found to load.")
}

func TestLoaderAppendsAll(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	records := []model.Record{{Activity: "A"}, {Activity: "B"}}

	n, err := NewLoader(store, nil).Load(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, store.appended, 1)
	assert.Equal(t, records, store.appended[0])
}

func TestLoaderWrapsPlainErrorsAsStorage(t *testing.T) {
	t.Parallel()

	store := &fakeStore{appendErr: errors.NewStd("connection reset")}

	n, err := NewLoader(store, nil).Load(context.Background(), []model.Record{{Activity: "A"}})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, errors.IsCategory(err, errors.CategoryStorage))
	assert.Equal(t, errors.ExitStorage, errors.ExitCode(err))
}

func TestResolveWatermark(t *testing.T) {
	t.Parallel()

	nine := at(9, 0)

	got, err := ResolveWatermark(context.Background(), &fakeStore{latest: nine, found: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, nine, got)

	got, err = ResolveWatermark(context.Background(), &fakeStore{}, nil)
	require.NoError(t, err)
	assert.Equal(t, MinWatermark, got)

	got, err = ResolveWatermark(context.Background(), &fakeStore{latest: nine, found: true, readErr: errors.NewStd("boom")}, nil)
	require.Error(t, err)
	assert.Equal(t, MinWatermark, got, "no partial result")
	assert.True(t, errors.IsCategory(err, errors.CategoryStorage))
}

func TestResolveWatermarkKeepsCancellation(t *testing.T) {
	t.Parallel()

	_, err := ResolveWatermark(context.Background(), &fakeStore{readErr: context.Canceled}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsCategory(err, errors.CategoryStorage))
}

// sqliteStore opens a store on a temporary database with the activity
// table created. The CHECK constraint lets tests make a row fail.
func sqliteStore(t *testing.T) *datastore.GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "activity.db")), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(logger.NewDiscardLogger(), time.Second),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE activity (
		activity        TEXT NOT NULL CHECK (activity <> 'poison'),
		act_datetime    DATETIME,
		note            TEXT,
		insert_datetime DATETIME NOT NULL,
		insert_process  TEXT NOT NULL
	)`).Error)

	store, err := datastore.NewGormStore(db, conf.DriverSQLite, "activity", nil, datastore.WithBatchSize(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// runOnce resolves the watermark, filters and loads like one pipeline run.
func runOnce(t *testing.T, store *datastore.GormStore, table *model.Table) int64 {
	t.Helper()
	ctx := context.Background()

	watermark, err := ResolveWatermark(ctx, store, nil)
	require.NoError(t, err)
	res, err := Filter{InsertProcess: "test", Now: fixedNow}.Apply(table, watermark)
	require.NoError(t, err)
	n, err := NewLoader(store, nil).Load(ctx, res.Records)
	require.NoError(t, err)
	return n
}

func TestIncrementalLoadIsIdempotent(t *testing.T) {
	t.Parallel()

	store := sqliteStore(t)
	table := sheet(
		model.SourceRecord{Activity: "A", Date: jan1, StartTime: tod(8, 0)},
		model.SourceRecord{Activity: "B", Date: jan1, StartTime: tod(10, 0)},
		model.SourceRecord{Activity: "C", Date: jan1},
	)

	assert.Equal(t, int64(2), runOnce(t, store, table), "empty destination takes every valid row")
	assert.Equal(t, int64(0), runOnce(t, store, table), "unchanged source inserts nothing")

	table.Records = append(table.Records, model.SourceRecord{Activity: "D", Date: jan1, StartTime: tod(11, 0), Row: 5})
	assert.Equal(t, int64(1), runOnce(t, store, table))

	latest, err := ResolveWatermark(context.Background(), store, nil)
	require.NoError(t, err)
	assert.True(t, at(11, 0).Equal(latest))
}

func TestIncrementalLoadIsAtomic(t *testing.T) {
	t.Parallel()

	store := sqliteStore(t)
	ctx := context.Background()

	table := sheet(
		model.SourceRecord{Activity: "A", Date: jan1, StartTime: tod(8, 0)},
		model.SourceRecord{Activity: "B", Date: jan1, StartTime: tod(9, 0)},
		model.SourceRecord{Activity: "poison", Date: jan1, StartTime: tod(10, 0)},
	)
	res, err := Filter{InsertProcess: "test", Now: fixedNow}.Apply(table, MinWatermark)
	require.NoError(t, err)

	n, err := NewLoader(store, nil).Load(ctx, res.Records)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, errors.IsCategory(err, errors.CategoryStorage))

	watermark, err := ResolveWatermark(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, MinWatermark, watermark, "no row of the failed batch is visible")
}
