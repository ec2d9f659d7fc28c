package api

import (
	"errors"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/services/forecast"
	"FinRisk/internal/usecase"
	"FinRisk/pkg/util"

	"github.com/shopspring/decimal"
)

// Prices and errors leave the API rounded to cents.
const pricePlaces = 2

type SlotError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type SlotResponse struct {
	Index int        `json:"index"`
	Open  *float64   `json:"open"`
	High  *float64   `json:"high"`
	Low   *float64   `json:"low"`
	Close *float64   `json:"close"`
	Saved bool       `json:"saved"`
	Error *SlotError `json:"error,omitempty"`
}

type TimelineRow struct {
	Time      string   `json:"time"`
	Actual    *float64 `json:"actual"`
	AIClose   *float64 `json:"ai_close"`
	AIUpper   *float64 `json:"ai_upper"`
	AILower   *float64 `json:"ai_lower"`
	UserClose *float64 `json:"user_close"`
}

type ReportResponse struct {
	UserMAE     *float64 `json:"user_mae"`
	AIMAE       *float64 `json:"ai_mae"`
	UserSamples int      `json:"user_samples"`
	AISamples   int      `json:"ai_samples"`
	SampleCount int      `json:"sample_count"`
	Winner      string   `json:"winner"`
}

type SubmittedResponse struct {
	SubmittedAt time.Time     `json:"submitted_at"`
	Candles     []models.OHLC `json:"candles"`
}

type BoardResponse struct {
	ID        string                   `json:"id"`
	Symbol    string                   `json:"symbol"`
	State     string                   `json:"state"`
	Epoch     uint64                   `json:"epoch"`
	BasePrice float64                  `json:"base_price"`
	BaseTime  string                   `json:"base_time,omitempty"`
	Slots     []SlotResponse           `json:"slots"`
	Submitted *SubmittedResponse       `json:"submitted,omitempty"`
	Sources   map[models.Source]bool   `json:"sources"`
	Errors    map[models.Source]string `json:"errors,omitempty"`
	Timeline  []TimelineRow            `json:"timeline"`
	Report    ReportResponse           `json:"report"`
	UpdatedAt time.Time                `json:"updated_at"`
}

type ComparisonResponse struct {
	Symbol   string         `json:"symbol"`
	Timeline []TimelineRow  `json:"timeline"`
	Report   ReportResponse `json:"report"`
}

func boardResponse(v usecase.View) BoardResponse {
	out := BoardResponse{
		ID:        v.ID,
		Symbol:    v.Symbol,
		State:     v.State.String(),
		Epoch:     v.Ticket.Epoch,
		BasePrice: round(v.BasePrice),
		Slots:     make([]SlotResponse, 0, len(v.Slots)),
		Sources:   v.Sources,
		Errors:    v.Errors,
		Timeline:  timelineRows(v.Timeline),
		Report:    reportResponse(v.Report),
		UpdatedAt: v.UpdatedAt,
	}
	if !v.BaseTime.IsZero() {
		out.BaseTime = util.FormatMinute(v.BaseTime)
	}
	for _, s := range v.Slots {
		out.Slots = append(out.Slots, SlotResponse{
			Index: s.Index,
			Open:  roundPtr(s.Draft.Open),
			High:  roundPtr(s.Draft.High),
			Low:   roundPtr(s.Draft.Low),
			Close: roundPtr(s.Draft.Close),
			Saved: s.Saved,
			Error: slotError(s.Err),
		})
	}
	if v.Submitted != nil {
		out.Submitted = &SubmittedResponse{SubmittedAt: v.Submitted.SubmittedAt, Candles: v.Submitted.Candles}
	}
	return out
}

func comparisonResponse(c usecase.Comparison, minSamples int) ComparisonResponse {
	rep := reportResponse(c.Report)
	if c.Report.SampleCount < minSamples {
		rep.Winner = ""
	}
	return ComparisonResponse{Symbol: c.Symbol, Timeline: timelineRows(c.Timeline), Report: rep}
}

func timelineRows(entries []models.TimelineEntry) []TimelineRow {
	rows := make([]TimelineRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, TimelineRow{
			Time:      util.FormatMinute(e.Time),
			Actual:    roundPtr(e.Actual),
			AIClose:   roundPtr(e.AIClose),
			AIUpper:   roundPtr(e.AIUpper),
			AILower:   roundPtr(e.AILower),
			UserClose: roundPtr(e.UserClose),
		})
	}
	return rows
}

func reportResponse(r models.AccuracyReport) ReportResponse {
	return ReportResponse{
		UserMAE:     roundPtr(r.UserMAE),
		AIMAE:       roundPtr(r.AIMAE),
		UserSamples: r.UserSamples,
		AISamples:   r.AISamples,
		SampleCount: r.SampleCount,
		Winner:      r.Winner(),
	}
}

func slotError(err error) *SlotError {
	if err == nil {
		return nil
	}
	se := &SlotError{Code: errorCode(err), Message: err.Error()}
	var ve *forecast.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		se.Field = string(ve.Field)
		se.Message = ve.Err.Error()
	}
	return se
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, forecast.ErrIncomplete):
		return "ERR_INCOMPLETE"
	case errors.Is(err, forecast.ErrInconsistentBounds):
		return "ERR_INCONSISTENT_BOUNDS"
	case errors.Is(err, forecast.ErrUnsaved):
		return "ERR_UNSAVED"
	default:
		return "ERR_INVALID"
	}
}

func round(f float64) float64 {
	return decimal.NewFromFloat(f).Round(pricePlaces).InexactFloat64()
}

func roundPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	r := round(*f)
	return &r
}
