package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/activity-loader/internal/app"
	"github.com/tphakala/activity-loader/internal/buildinfo"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
)

const workbookPath = "/data/activity_tracker.xlsx"

type harness struct {
	ctx    *app.Context
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dbPath string
}

// newHarness isolates the process from local config and points the
// destination at a sqlite file with an empty activity table.
func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	dbPath := filepath.Join(dir, "activity.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(logger.NewDiscardLogger(), time.Second),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE activity (
		activity        TEXT NOT NULL,
		act_datetime    DATETIME,
		note            TEXT,
		insert_datetime DATETIME NOT NULL,
		insert_process  TEXT NOT NULL
	)`).Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	t.Setenv("ACTIVITY_LOADER_DESTINATION_DRIVER", "sqlite")
	t.Setenv("ACTIVITY_LOADER_DESTINATION_PATH", dbPath)
	t.Setenv("ACTIVITY_LOADER_LOGGING_FILE_OUTPUT_ENABLED", "false")

	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, dbPath: dbPath}
	h.ctx = &app.Context{
		Build:  buildinfo.NewContext("1.2.3", "2024-02-01", "abc123"),
		Fs:     afero.NewMemMapFs(),
		Stdout: h.stdout,
		Stderr: h.stderr,
	}
	return h
}

func (h *harness) writeWorkbook(t *testing.T, rows [][]any) {
	t.Helper()

	book := excelize.NewFile()
	defer book.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(h.ctx.Fs, workbookPath, buf.Bytes(), 0o644))
}

func (h *harness) execute(args ...string) error {
	root := RootCommand(h.ctx)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

var trackerRows = [][]any{
	{"activity", "date", "start_time", "note"},
	{"A", "2024-01-01", "08:00", nil},
	{"B", "2024-01-01", "10:00", "walk"},
	{"C", "2024-01-01", nil, nil},
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.execute("version"))
	assert.Contains(t, h.stdout.String(), "activity-loader 1.2.3")
	assert.Contains(t, h.stdout.String(), "commit abc123")
}

func TestRunThenWatermark(t *testing.T) {
	h := newHarness(t)
	h.writeWorkbook(t, trackerRows)

	require.NoError(t, h.execute("run", "--source", workbookPath))
	assert.Contains(t, h.stdout.String(), "ETL pipeline finished successfully")
	assert.Contains(t, h.stdout.String(), "2 new rows identified")

	h.stdout.Reset()
	require.NoError(t, h.execute("watermark"))
	assert.Contains(t, h.stdout.String(), "activity: 2024-01-01 10:00:00")

	h.stdout.Reset()
	require.NoError(t, h.execute("--source", workbookPath), "root command runs a load")
	assert.Contains(t, h.stdout.String(), "0 new rows identified")
	assert.Contains(t, h.stdout.String(), "No new data found to load.")
}

func TestWatermarkOnEmptyTable(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.execute("watermark"))
	assert.Contains(t, h.stdout.String(), "activity: empty")
}

func TestRunDryRunFlag(t *testing.T) {
	h := newHarness(t)
	h.writeWorkbook(t, trackerRows)

	require.NoError(t, h.execute("run", "--source", workbookPath, "--dry-run"))
	assert.Contains(t, h.stdout.String(), "Dry run, nothing written")

	h.stdout.Reset()
	require.NoError(t, h.execute("watermark"))
	assert.Contains(t, h.stdout.String(), "activity: empty")
}

func TestRunExitCodes(t *testing.T) {
	t.Run("missing workbook", func(t *testing.T) {
		h := newHarness(t)
		err := h.execute("run", "--source", "/data/missing.xlsx")
		require.Error(t, err)
		assert.Equal(t, errors.ExitSourceValidation, errors.ExitCode(err))
	})

	t.Run("invalid driver", func(t *testing.T) {
		h := newHarness(t)
		err := h.execute("run", "--driver", "oracle")
		require.Error(t, err)
		assert.Equal(t, errors.ExitConfiguration, errors.ExitCode(err))
	})

	t.Run("unknown flag", func(t *testing.T) {
		h := newHarness(t)
		err := h.execute("run", "--nope")
		require.Error(t, err)
		assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
	})
}

func TestConfigCommandRedactsSecrets(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ACTIVITY_LOADER_DESTINATION_PASSWORD", "hunter2")

	require.NoError(t, h.execute("config", "--table", "activity_copy"))
	out := h.stdout.String()
	assert.Contains(t, out, "driver: sqlite")
	assert.Contains(t, out, "table: activity_copy")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "hunter2")
}
