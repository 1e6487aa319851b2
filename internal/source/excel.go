// Package source reads activity records from the tracker workbook.
package source

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/model"
)

// Required header names of the sheet, compared after trimming.
const (
	ColumnActivity  = "activity"
	ColumnDate      = "date"
	ColumnStartTime = "start_time"
	ColumnNote      = "note"
)

// RequiredColumns lists the headers every workbook must carry.
var RequiredColumns = []string{ColumnActivity, ColumnDate, ColumnStartTime, ColumnNote}

// Reader loads the activity table.
type Reader interface {
	Read(ctx context.Context) (*model.Table, error)
}

// ExcelReader reads the first sheet of an .xlsx workbook.
type ExcelReader struct {
	fs          afero.Fs
	path        string
	columnRange string
	log         logger.Logger
}

// NewExcelReader returns a reader for the workbook at path. columnRange
// limits the columns read, e.g. "A:D".
func NewExcelReader(fs afero.Fs, path, columnRange string, log logger.Logger) *ExcelReader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &ExcelReader{
		fs:          fs,
		path:        path,
		columnRange: columnRange,
		log:         log.Module("source"),
	}
}

// Read opens the workbook, validates the header row and returns every
// non-blank data row. Rows keep blank start times; dropping them is the
// filter's job.
func (r *ExcelReader) Read(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	first, last, err := parseColumnRange(r.columnRange)
	if err != nil {
		return nil, errors.ConfigError(err).Context("column_range", r.columnRange).Build()
	}

	info, err := r.fs.Stat(r.path)
	if err != nil {
		r.log.Error("Excel file not found", logger.String("path", r.path), logger.Error(err))
		return nil, errors.FileError(fmt.Errorf("excel file not found: %s: %w", r.path, err), r.path, 0)
	}

	f, err := r.fs.Open(r.path)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("cannot open excel file %s: %w", r.path, err), r.path, info.Size())
	}
	defer f.Close()

	book, err := excelize.OpenReader(f)
	if err != nil {
		r.log.Error("Error reading Excel file", logger.String("path", r.path), logger.Error(err))
		return nil, errors.SourceValidationError(fmt.Errorf("error reading excel file %s: %w", r.path, err)).
			FileContext(r.path, info.Size()).
			Build()
	}
	defer func() {
		if err := book.Close(); err != nil {
			r.log.Warn("Error closing workbook", logger.Error(err))
		}
	}()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.SourceValidationError(fmt.Errorf("excel file %s has no sheets", r.path)).
			FileContext(r.path, info.Size()).
			Build()
	}
	sheet := sheets[0]
	r.log.Info(fmt.Sprintf("Using first sheet: '%s'", sheet))

	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.SourceValidationError(fmt.Errorf("error reading sheet %q: %w", sheet, err)).
			FileContext(r.path, info.Size()).
			Build()
	}

	date1904 := false
	if props, err := book.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	table, err := r.buildTable(sheet, rows, first, last, date1904)
	if err != nil {
		return nil, err
	}

	if table.Len() == 0 {
		r.log.Warn("Excel sheet is empty", logger.String("sheet", sheet))
	}
	r.log.Debug("Sheet read",
		logger.String("sheet", sheet),
		logger.Int("rows", table.Len()))

	return table, nil
}

func (r *ExcelReader) buildTable(sheet string, rows [][]string, first, last int, date1904 bool) (*model.Table, error) {
	var header []string
	if len(rows) > 0 {
		header = window(rows[0], first, last)
	}

	index := make(map[string]int, len(RequiredColumns))
	for i, name := range header {
		if _, dup := index[name]; !dup && name != "" {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		found := slices.DeleteFunc(slices.Clone(header), func(s string) bool { return s == "" })
		r.log.Error("Excel sheet missing required columns",
			logger.String("expected", strings.Join(RequiredColumns, ", ")),
			logger.String("found", strings.Join(found, ", ")))
		return nil, errors.SourceValidationError(
			fmt.Errorf("excel sheet missing required columns %v (found %v)", missing, found)).
			Context("sheet", sheet).
			Context("missing_columns", missing).
			Build()
	}

	table := &model.Table{Sheet: sheet, Columns: header}
	for i := 1; i < len(rows); i++ {
		cells := window(rows[i], first, last)
		if blank(cells) {
			continue
		}
		rec, err := parseRecord(cells, index, i+1, date1904)
		if err != nil {
			return nil, errors.SourceValidationError(err).
				Context("sheet", sheet).
				Context("row", i+1).
				Build()
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// parseRecord converts the cells of one sheet row into a SourceRecord.
func parseRecord(cells []string, index map[string]int, row int, date1904 bool) (model.SourceRecord, error) {
	rec := model.SourceRecord{
		Activity: cells[index[ColumnActivity]],
		Row:      row,
	}

	if raw := cells[index[ColumnStartTime]]; raw != "" {
		tod, err := parseTimeOfDay(raw)
		if err != nil {
			return rec, fmt.Errorf("row %d, column %s: %w", row, ColumnStartTime, err)
		}
		rec.StartTime = &tod
	}

	// Rows without a start time are dropped later whatever their date
	// holds, so an unreadable date only matters when a start time exists.
	if raw := cells[index[ColumnDate]]; raw != "" {
		d, err := parseDate(raw, date1904)
		switch {
		case err == nil:
			rec.Date = d
		case rec.StartTime != nil:
			return rec, fmt.Errorf("row %d, column %s: %w", row, ColumnDate, err)
		}
	}

	// Such a row cannot be ordered against the watermark.
	if rec.StartTime != nil && rec.Date.IsZero() {
		return rec, fmt.Errorf("row %d has start time %s but no date", row, rec.StartTime)
	}

	if raw := cells[index[ColumnNote]]; raw != "" {
		note := raw
		rec.Note = &note
	}

	return rec, nil
}
