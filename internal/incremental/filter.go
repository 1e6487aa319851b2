package incremental

import (
	"fmt"
	"time"

	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/model"
)

// Filter selects the workbook rows newer than the watermark and turns them
// into destination records.
type Filter struct {
	InsertProcess string           // provenance tag stamped on every record
	Now           func() time.Time // load time source; time.Now when nil
}

// Result is the outcome of Filter.Apply.
type Result struct {
	Records    []model.Record
	Read       int       // data rows in the sheet
	Dropped    int       // rows without a start time
	Old        int       // rows at or below the watermark
	SourceMax  time.Time // latest act_datetime in the sheet, zero when none
	InsertedAt time.Time // load time shared by every record
}

// Apply keeps the records of table whose act_datetime is strictly after
// watermark, in sheet order. Rows without a start time are dropped. A row
// with a start time but no date is a source validation error.
func (f Filter) Apply(table *model.Table, watermark time.Time) (Result, error) {
	now := f.Now
	if now == nil {
		now = time.Now
	}

	res := Result{
		Read:       table.Len(),
		InsertedAt: model.Naive(now()),
	}
	if table == nil {
		return res, nil
	}

	for i := range table.Records {
		src := &table.Records[i]
		if src.StartTime == nil {
			res.Dropped++
			continue
		}
		if src.Date.IsZero() {
			return Result{}, errors.SourceValidationError(
				fmt.Errorf("row %d of sheet %q has start time %s but no date", src.Row, table.Sheet, src.StartTime)).
				Context("sheet", table.Sheet).
				Context("row", src.Row).
				Build()
		}

		actDt := model.At(src.Date, *src.StartTime)
		if actDt.After(res.SourceMax) {
			res.SourceMax = actDt
		}
		if !actDt.After(watermark) {
			res.Old++
			continue
		}

		res.Records = append(res.Records, model.Record{
			Activity:       src.Activity,
			ActDatetime:    actDt,
			Note:           src.Note,
			InsertDatetime: res.InsertedAt,
			InsertProcess:  f.InsertProcess,
		})
	}

	return res, nil
}
