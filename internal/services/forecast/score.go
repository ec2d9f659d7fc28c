package forecast

import (
	"math"

	"FinRisk/internal/domain/models"
)

// Score computes the mean absolute error of the user and AI forecasts
// against realized closes. Only entries holding both an actual value and the
// respective prediction are counted; an MAE is nil when nothing is scorable.
// SampleCount is the number of entries scorable for at least one source.
func Score(entries []models.TimelineEntry) models.AccuracyReport {
	var (
		rep            models.AccuracyReport
		userSum, aiSum float64
	)
	for _, e := range entries {
		if e.Actual == nil {
			continue
		}
		scorable := false
		if e.UserClose != nil {
			userSum += math.Abs(*e.Actual - *e.UserClose)
			rep.UserSamples++
			scorable = true
		}
		if e.AIClose != nil {
			aiSum += math.Abs(*e.Actual - *e.AIClose)
			rep.AISamples++
			scorable = true
		}
		if scorable {
			rep.SampleCount++
		}
	}
	if rep.UserSamples > 0 {
		rep.UserMAE = models.Float(userSum / float64(rep.UserSamples))
	}
	if rep.AISamples > 0 {
		rep.AIMAE = models.Float(aiSum / float64(rep.AISamples))
	}
	return rep
}
