// Package prices builds the daily price panel: one row per property per
// calendar day the ad was open, carrying the price in force that day.
package prices

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mosdata/listings-cli/internal/model"
)

// DailyPrice is one row of the panel.
type DailyPrice struct {
	PropertyID string
	Date       time.Time // UTC midnight
	Price      float64
}

// Options configures panel generation.
type Options struct {
	// TargetStart clips every property's window: days earlier are ignored.
	TargetStart time.Time
}

// DefaultTargetStart is the earliest day the panel covers.
var DefaultTargetStart = time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)

type change struct {
	date  time.Time
	ts    time.Time
	price float64
}

// BuildPanel explodes merged histories into daily rows. For days with
// multiple price changes the last change wins. A property's window opens at
// its creation date and closes the day before editDate for closed ads, or
// at the last price date otherwise. Days before the first price are dropped.
func BuildPanel(rows []model.PropertyRow, opts Options) []DailyPrice {
	targetStart := opts.TargetStart
	if targetStart.IsZero() {
		targetStart = DefaultTargetStart
	}

	var out []DailyPrice
	for _, row := range rows {
		changes := lastChangePerDay(row.History)
		if len(changes) == 0 {
			continue
		}

		start := floorDay(row.CreationDate)
		if start.Before(targetStart) {
			start = targetStart
		}

		end := changes[len(changes)-1].date
		if row.IsClosed && row.EditDate != nil {
			end = floorDay(*row.EditDate).AddDate(0, 0, -1)
		}
		if end.Before(start) {
			continue
		}

		// Walk days, carrying the latest change at or before each day.
		idx := -1
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			for idx+1 < len(changes) && !changes[idx+1].date.After(day) {
				idx++
			}
			if idx < 0 {
				continue // before the first price
			}
			out = append(out, DailyPrice{
				PropertyID: row.PropertyID,
				Date:       day,
				Price:      changes[idx].price,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].PropertyID < out[j].PropertyID
	})

	zap.L().Debug("daily price panel built", zap.Int("rows", len(out)))
	return out
}

// lastChangePerDay collapses a history to one change per calendar day,
// keeping the change with the latest timestamp, sorted by day.
func lastChangePerDay(events []model.PriceEvent) []change {
	byDay := make(map[time.Time]change, len(events))
	for _, e := range events {
		d := floorDay(e.At)
		cur, ok := byDay[d]
		if !ok || !e.At.Before(cur.ts) {
			byDay[d] = change{date: d, ts: e.At, price: e.Price}
		}
	}

	out := make([]change, 0, len(byDay))
	for _, c := range byDay {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

func floorDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
