package forecast

import (
	"sort"
	"time"

	"FinRisk/internal/domain/models"
)

// DefaultStep is the bucket width used when no better step is known.
const DefaultStep = time.Hour

// Merge joins the three sources into one timeline sorted by time. Each
// distinct timestamp appears once; a source with no value at a timestamp
// leaves its field nil. Within one source a later duplicate timestamp wins.
//
// User points carry no timestamps of their own; point i is placed at
// anchor + i*step where anchor is the series anchor or else the last actual
// candle time, and step is the series step or else the spacing of the last
// two actual candles. Without an anchor the points then follow the latest
// actual candle, and with no actual series either they are left out.
// Submissions always carry an anchor and a step.
func Merge(actual *models.ActualSeries, ai *models.AISeries, user *models.UserSeries) []models.TimelineEntry {
	rows := make(map[int64]*models.TimelineEntry)
	row := func(t time.Time) *models.TimelineEntry {
		t = t.UTC()
		k := t.UnixNano()
		if r, ok := rows[k]; ok {
			return r
		}
		r := &models.TimelineEntry{Time: t}
		rows[k] = r
		return r
	}

	if actual != nil {
		for _, c := range actual.Candles {
			row(c.Time).Actual = models.Float(c.Close)
		}
	}
	if ai != nil {
		for _, p := range ai.Points {
			r := row(p.Time)
			r.AIClose = models.Float(p.Close)
			r.AIUpper = copyFloat(p.UpperBound)
			r.AILower = copyFloat(p.LowerBound)
		}
	}
	if user != nil {
		anchor, step := userAxis(actual, user)
		if !anchor.IsZero() {
			for i, p := range user.Points {
				idx := p.Index
				if idx <= 0 {
					idx = i + 1
				}
				row(anchor.Add(time.Duration(idx) * step)).UserClose = models.Float(p.Close)
			}
		}
	}

	out := make([]models.TimelineEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func userAxis(actual *models.ActualSeries, user *models.UserSeries) (time.Time, time.Duration) {
	anchor, step := user.Anchor, user.Step
	if anchor.IsZero() {
		anchor = lastActualTime(actual)
	}
	if step <= 0 {
		step = InferStep(actual)
	}
	return anchor, step
}

// InferStep returns the spacing of the two latest actual candles, or
// DefaultStep when fewer than two distinct timestamps exist.
func InferStep(actual *models.ActualSeries) time.Duration {
	if actual == nil || len(actual.Candles) < 2 {
		return DefaultStep
	}
	times := make([]time.Time, len(actual.Candles))
	for i, c := range actual.Candles {
		times[i] = c.Time
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	last := times[len(times)-1]
	for i := len(times) - 2; i >= 0; i-- {
		if d := last.Sub(times[i]); d > 0 {
			return d
		}
	}
	return DefaultStep
}

func lastActualTime(actual *models.ActualSeries) time.Time {
	if actual == nil {
		return time.Time{}
	}
	var last time.Time
	for _, c := range actual.Candles {
		if c.Time.After(last) {
			last = c.Time
		}
	}
	return last
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}
