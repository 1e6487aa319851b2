package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tphakala/activity-loader/internal/model"
)

const secondsPerDay = 24 * 60 * 60

// maxDateSerial is the serial of 10000-01-01, the first day Excel cannot show.
const maxDateSerial = 2958466

// Text layouts accepted for date cells.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Text layouts accepted for start time cells.
var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// parseDate interprets a raw date cell: an Excel serial number or text.
func parseDate(raw string, date1904 bool) (model.Date, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(serial) || serial < 0 || serial >= maxDateSerial {
			return model.Date{}, fmt.Errorf("date serial %q is outside the range Excel can represent", raw)
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return model.Date{}, fmt.Errorf("invalid date serial %q: %w", raw, err)
		}
		return model.DateOf(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return model.DateOf(t), nil
		}
	}
	return model.Date{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseTimeOfDay interprets a raw start time cell: the fractional part of
// an Excel serial, or text.
func parseTimeOfDay(raw string) (model.TimeOfDay, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial < 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return model.TimeOfDay{}, fmt.Errorf("invalid time serial %q", raw)
		}
		_, frac := math.Modf(serial)
		secs := int(math.Round(frac * secondsPerDay))
		if secs >= secondsPerDay {
			secs = secondsPerDay - 1
		}
		return model.TimeOfDay{Hour: secs / 3600, Minute: secs % 3600 / 60, Second: secs % 60}, nil
	}

	upper := strings.ToUpper(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return model.TimeOfDayOf(t), nil
		}
	}
	return model.TimeOfDay{}, fmt.Errorf("unrecognized time %q", raw)
}

// parseColumnRange turns "A:D" into 1-based first and last column numbers.
func parseColumnRange(rng string) (first, last int, err error) {
	from, to, ok := strings.Cut(strings.TrimSpace(rng), ":")
	if !ok {
		return 0, 0, fmt.Errorf("column range %q must look like A:D", rng)
	}
	if first, err = excelize.ColumnNameToNumber(strings.TrimSpace(from)); err != nil {
		return 0, 0, fmt.Errorf("column range %q: %w", rng, err)
	}
	if last, err = excelize.ColumnNameToNumber(strings.TrimSpace(to)); err != nil {
		return 0, 0, fmt.Errorf("column range %q: %w", rng, err)
	}
	if last < first {
		return 0, 0, fmt.Errorf("column range %q is reversed", rng)
	}
	return first, last, nil
}

// window returns the cells of row between the 1-based columns first and
// last, padded with empty strings.
func window(row []string, first, last int) []string {
	cells := make([]string, last-first+1)
	for i := range cells {
		if idx := first - 1 + i; idx < len(row) {
			cells[i] = strings.TrimSpace(row[idx])
		}
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
