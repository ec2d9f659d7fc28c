package models

import "time"

// Source names one of the independently produced series being reconciled.
type Source string

const (
	SourceActual Source = "actual"
	SourceAI     Source = "ai"
	SourceUser   Source = "user"
)

// OHLC is a complete open/high/low/close quadruple.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Candle is a realized, time-bucketed price record.
type Candle struct {
	Time time.Time `json:"time"`
	OHLC
	Volume float64 `json:"volume,omitempty"`
}

// AIForecastPoint is one step of the AI forecast. Bounds are optional.
type AIForecastPoint struct {
	Time time.Time `json:"time"`
	Step int       `json:"step"`
	OHLC
	UpperBound *float64 `json:"upper_bound,omitempty"`
	LowerBound *float64 `json:"lower_bound,omitempty"`
}

// UserForecastPoint is one submitted user candle. Index is 1-based.
type UserForecastPoint struct {
	Index int `json:"index"`
	OHLC
}

// ActualSeries holds realized candles for a symbol, ordered by time.
type ActualSeries struct {
	Symbol    string    `json:"symbol"`
	Candles   []Candle  `json:"candles"`
	LastPrice float64   `json:"last_price"`
	LastTime  time.Time `json:"last_time"`
}

// AISeries holds the AI forecast for a symbol.
type AISeries struct {
	Symbol string            `json:"symbol"`
	Points []AIForecastPoint `json:"points"`
}

// UserSeries holds a submitted user forecast. Point i is placed at
// Anchor + i*Step; a zero Anchor falls back to the last actual timestamp.
type UserSeries struct {
	Symbol string              `json:"symbol"`
	Anchor time.Time           `json:"anchor"`
	Step   time.Duration       `json:"step"`
	Points []UserForecastPoint `json:"points"`
}

// TimelineEntry is one row of the merged comparison timeline.
// Absent sources leave their fields nil, never zero.
type TimelineEntry struct {
	Time      time.Time `json:"time"`
	Actual    *float64  `json:"actual,omitempty"`
	AIClose   *float64  `json:"ai_close,omitempty"`
	AIUpper   *float64  `json:"ai_upper,omitempty"`
	AILower   *float64  `json:"ai_lower,omitempty"`
	UserClose *float64  `json:"user_close,omitempty"`
}

// AccuracyReport compares user and AI forecasts against realized closes.
// A nil MAE means no scorable observation exists yet.
type AccuracyReport struct {
	UserMAE     *float64 `json:"user_mae,omitempty"`
	AIMAE       *float64 `json:"ai_mae,omitempty"`
	UserSamples int      `json:"user_samples"`
	AISamples   int      `json:"ai_samples"`
	SampleCount int      `json:"sample_count"`
}

// Winner returns "user", "ai" or "tie", or "" while either MAE is undefined.
func (r AccuracyReport) Winner() string {
	if r.UserMAE == nil || r.AIMAE == nil {
		return ""
	}
	switch {
	case *r.UserMAE < *r.AIMAE:
		return string(SourceUser)
	case *r.AIMAE < *r.UserMAE:
		return string(SourceAI)
	default:
		return "tie"
	}
}

// Submission is the persisted user forecast for a symbol. Only the latest
// submission per symbol is kept.
type Submission struct {
	ID          string              `json:"id"`
	Symbol      string              `json:"symbol"`
	CreatedAt   time.Time           `json:"created_at"`
	BasePrice   float64             `json:"base_price"`
	BaseTime    time.Time           `json:"base_time"`
	Step        time.Duration       `json:"step"`
	Predictions []UserForecastPoint `json:"predictions"`
}

// UserSeries converts the submission into the user source series.
func (s *Submission) UserSeries() *UserSeries {
	pts := make([]UserForecastPoint, len(s.Predictions))
	copy(pts, s.Predictions)
	return &UserSeries{Symbol: s.Symbol, Anchor: s.BaseTime, Step: s.Step, Points: pts}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
