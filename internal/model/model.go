// Package model defines the activity records read from the workbook and
// written to the destination table.
package model

import (
	"fmt"
	"time"
)

// Date is a calendar date without time of day or time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// TimeOfDayOf returns the wall-clock time of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// At combines a date and a time of day into one naive instant. The result
// is expressed in UTC so that equal wall-clock values compare equal
// regardless of the host's zone; no conversion is applied.
func At(d Date, t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}

// Naive re-labels t's wall-clock reading as UTC, dropping its zone. Drivers
// that return timestamps in time.Local are normalized with it.
func Naive(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// SourceRecord is one data row of the workbook.
type SourceRecord struct {
	Activity  string
	Date      Date       // zero when the cell is blank
	StartTime *TimeOfDay // nil when the cell is blank
	Note      *string    // nil when the cell is blank
	Row       int        // 1-based sheet row, for error context
}

// Table is the content of the sheet that was read.
type Table struct {
	Sheet   string
	Columns []string
	Records []SourceRecord
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Columns of the destination table, in insert order.
var Columns = []string{"activity", "act_datetime", "note", "insert_datetime", "insert_process"}

// Record is one destination row.
type Record struct {
	Activity       string    `gorm:"column:activity"`
	ActDatetime    time.Time `gorm:"column:act_datetime"`
	Note           *string   `gorm:"column:note"`
	InsertDatetime time.Time `gorm:"column:insert_datetime"`
	InsertProcess  string    `gorm:"column:insert_process"`
}

// Values returns the column values in the order of Columns.
func (r *Record) Values() []any {
	var note any
	if r.Note != nil {
		note = *r.Note
	}
	return []any{r.Activity, r.ActDatetime, note, r.InsertDatetime, r.InsertProcess}
}
