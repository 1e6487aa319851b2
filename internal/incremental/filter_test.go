package incremental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/model"
)

var (
	jan1     = model.Date{Year: 2024, Month: time.January, Day: 1}
	loadTime = time.Date(2024, 2, 1, 12, 30, 0, 0, time.UTC)
)

func fixedNow() time.Time { return loadTime }

func tod(h, m int) *model.TimeOfDay {
	return &model.TimeOfDay{Hour: h, Minute: m}
}

func at(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
}

func sheet(records ...model.SourceRecord) *model.Table {
	for i := range records {
		records[i].Row = i + 2
	}
	return &model.Table{Sheet: "Tracker", Records: records}
}

func TestFilterScenario(t *testing.T) {
	t.Parallel()

	table := sheet(
		model.SourceRecord{Activity: "A", Date: jan1, StartTime: tod(8, 0)},
		model.SourceRecord{Activity: "B", Date: jan1, StartTime: tod(10, 0)},
		model.SourceRecord{Activity: "C", Date: jan1},
	)

	res, err := Filter{InsertProcess: "activity-loader", Now: fixedNow}.Apply(table, at(9, 0))
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	got := res.Records[0]
	assert.Equal(t, "B", got.Activity)
	assert.Equal(t, at(10, 0), got.ActDatetime)
	assert.Nil(t, got.Note)
	assert.Equal(t, loadTime, got.InsertDatetime)
	assert.Equal(t, "activity-loader", got.InsertProcess)

	assert.Equal(t, 3, res.Read)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, res.Old)
	assert.Equal(t, at(10, 0), res.SourceMax)
}

func TestFilterWatermarkIsStrict(t *testing.T) {
	t.Parallel()

	table := sheet(
		model.SourceRecord{Activity: "equal", Date: jan1, StartTime: tod(9, 0)},
		model.SourceRecord{Activity: "after", Date: jan1, StartTime: &model.TimeOfDay{Hour: 9, Second: 1}},
	)

	res, err := Filter{InsertProcess: "p", Now: fixedNow}.Apply(table, at(9, 0))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "after", res.Records[0].Activity)
}

func TestFilterMinWatermarkKeepsEverything(t *testing.T) {
	t.Parallel()

	note := "first"
	table := sheet(
		model.SourceRecord{Activity: "A", Date: model.Date{Year: 1900, Month: time.January, Day: 1}, StartTime: tod(0, 0)},
		model.SourceRecord{Activity: "B", Date: jan1, StartTime: tod(7, 15), Note: &note},
	)

	res, err := Filter{InsertProcess: "p", Now: fixedNow}.Apply(table, MinWatermark)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "A", res.Records[0].Activity, "sheet order kept")
	require.NotNil(t, res.Records[1].Note)
	assert.Equal(t, "first", *res.Records[1].Note)
}

func TestFilterDropsMissingStartTimeRegardlessOfDate(t *testing.T) {
	t.Parallel()

	table := sheet(
		model.SourceRecord{Activity: "dated", Date: jan1},
		model.SourceRecord{Activity: "undated"},
	)

	res, err := Filter{InsertProcess: "p", Now: fixedNow}.Apply(table, MinWatermark)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 2, res.Dropped)
	assert.True(t, res.SourceMax.IsZero())
}

func TestFilterStartTimeWithoutDate(t *testing.T) {
	t.Parallel()

	table := sheet(
		model.SourceRecord{Activity: "A", Date: jan1, StartTime: tod(8, 0)},
		model.SourceRecord{Activity: "B", StartTime: tod(9, 0)},
	)

	_, err := Filter{InsertProcess: "p", Now: fixedNow}.Apply(table, MinWatermark)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySourceValidation))
	assert.Contains(t, err.Error(), "row 3")
}

func TestFilterEmptyTable(t *testing.T) {
	t.Parallel()

	for _, table := range []*model.Table{nil, {Sheet: "Tracker"}} {
		res, err := Filter{InsertProcess: "p", Now: fixedNow}.Apply(table, MinWatermark)
		require.NoError(t, err)
		assert.Empty(t, res.Records)
		assert.Zero(t, res.Read)
	}
}

func TestFilterStampsOneLoadTime(t *testing.T) {
	t.Parallel()

	calls := 0
	now := func() time.Time {
		calls++
		return loadTime.Add(time.Duration(calls) * time.Second)
	}
	table := sheet(
		model.SourceRecord{Activity: "A", Date: jan1, StartTime: tod(8, 0)},
		model.SourceRecord{Activity: "B", Date: jan1, StartTime: tod(9, 0)},
	)

	res, err := Filter{InsertProcess: "p", Now: now}.Apply(table, MinWatermark)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, res.Records[0].InsertDatetime, res.Records[1].InsertDatetime)
}
