package prices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosdata/listings-cli/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func panelFor(t *testing.T, row model.PropertyRow) []DailyPrice {
	t.Helper()
	return BuildPanel([]model.PropertyRow{row}, Options{TargetStart: day(2025, 1, 1)})
}

func TestBuildPanel_CarriesPriceForward(t *testing.T) {
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2025, 5, 1),
		History: []model.PriceEvent{
			{At: at(2025, 5, 1, 10), Price: 100},
			{At: at(2025, 5, 3, 9), Price: 120},
		},
	}

	panel := panelFor(t, row)
	require.Len(t, panel, 3)
	assert.Equal(t, DailyPrice{"p1", day(2025, 5, 1), 100}, panel[0])
	assert.Equal(t, DailyPrice{"p1", day(2025, 5, 2), 100}, panel[1])
	assert.Equal(t, DailyPrice{"p1", day(2025, 5, 3), 120}, panel[2])
}

func TestBuildPanel_LastChangePerDayWins(t *testing.T) {
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2025, 5, 1),
		History: []model.PriceEvent{
			{At: at(2025, 5, 1, 9), Price: 100},
			{At: at(2025, 5, 1, 18), Price: 95},
		},
	}

	panel := panelFor(t, row)
	require.Len(t, panel, 1)
	assert.Equal(t, 95.0, panel[0].Price)
}

func TestBuildPanel_ClosedAdEndsDayBeforeEdit(t *testing.T) {
	edit := day(2025, 5, 5)
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2025, 5, 1),
		IsClosed:     true,
		EditDate:     &edit,
		History: []model.PriceEvent{
			{At: at(2025, 5, 1, 10), Price: 100},
		},
	}

	panel := panelFor(t, row)
	require.Len(t, panel, 4)
	assert.Equal(t, day(2025, 5, 4), panel[len(panel)-1].Date)
}

func TestBuildPanel_OpenAdEndsAtLastPriceDate(t *testing.T) {
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2025, 5, 1),
		History: []model.PriceEvent{
			{At: at(2025, 5, 1, 10), Price: 100},
			{At: at(2025, 5, 10, 10), Price: 110},
		},
	}

	panel := panelFor(t, row)
	require.Len(t, panel, 10)
	assert.Equal(t, day(2025, 5, 10), panel[len(panel)-1].Date)
	assert.Equal(t, 110.0, panel[len(panel)-1].Price)
}

func TestBuildPanel_TargetStartClipsWindow(t *testing.T) {
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2024, 12, 1),
		History: []model.PriceEvent{
			{At: at(2024, 12, 1, 10), Price: 100},
			{At: at(2025, 1, 3, 10), Price: 110},
		},
	}

	panel := panelFor(t, row)
	require.NotEmpty(t, panel)
	assert.Equal(t, day(2025, 1, 1), panel[0].Date)
	// The pre-window price is still in force on the clipped start day.
	assert.Equal(t, 100.0, panel[0].Price)
}

func TestBuildPanel_DropsDaysBeforeFirstPrice(t *testing.T) {
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2025, 5, 1),
		History: []model.PriceEvent{
			{At: at(2025, 5, 3, 10), Price: 100},
		},
	}

	panel := panelFor(t, row)
	require.Len(t, panel, 1)
	assert.Equal(t, day(2025, 5, 3), panel[0].Date)
}

func TestBuildPanel_EmptyHistorySkipped(t *testing.T) {
	row := model.PropertyRow{PropertyID: "p1", CreationDate: day(2025, 5, 1)}
	assert.Empty(t, panelFor(t, row))
}

func TestBuildPanel_WindowClosedBeforeStart(t *testing.T) {
	edit := day(2025, 1, 1)
	row := model.PropertyRow{
		PropertyID:   "p1",
		CreationDate: day(2024, 12, 1),
		IsClosed:     true,
		EditDate:     &edit,
		History: []model.PriceEvent{
			{At: at(2024, 12, 1, 10), Price: 100},
		},
	}

	// End (day before edit) falls before the clipped start.
	panel := BuildPanel([]model.PropertyRow{row}, Options{TargetStart: day(2025, 1, 1)})
	assert.Empty(t, panel)
}

func TestBuildPanel_SortedByDateThenProperty(t *testing.T) {
	rows := []model.PropertyRow{
		{
			PropertyID:   "b",
			CreationDate: day(2025, 5, 1),
			History:      []model.PriceEvent{{At: at(2025, 5, 1, 10), Price: 1}},
		},
		{
			PropertyID:   "a",
			CreationDate: day(2025, 5, 1),
			History:      []model.PriceEvent{{At: at(2025, 5, 1, 10), Price: 2}},
		},
	}

	panel := BuildPanel(rows, Options{TargetStart: day(2025, 1, 1)})
	require.Len(t, panel, 2)
	assert.Equal(t, "a", panel[0].PropertyID)
	assert.Equal(t, "b", panel[1].PropertyID)
}
