package analytics

import (
	"context"
	"net/url"

	"FinRisk/internal/domain/models"
	domsvc "FinRisk/internal/domain/service"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"
)

const endpointPredict = "hourly_predict"

// HTTPAIForecaster reads the model forecast from GET /api/hourly-predict/{symbol}.
type HTTPAIForecaster struct{ base *HTTPServiceBase }

func NewHTTPAIForecaster(base *HTTPServiceBase) *HTTPAIForecaster {
	return &HTTPAIForecaster{base: base}
}

type predictionDTO struct {
	Time       string   `json:"time"`
	Hour       int      `json:"hour"`
	Open       float64  `json:"open"`
	High       float64  `json:"high"`
	Low        float64  `json:"low"`
	Close      float64  `json:"close"`
	UpperBound *float64 `json:"upper_bound"`
	LowerBound *float64 `json:"lower_bound"`
}

type predictResponse struct {
	Symbol      string          `json:"symbol"`
	Predictions []predictionDTO `json:"predictions"`
}

func (f *HTTPAIForecaster) Forecast(ctx context.Context, symbol string) (*models.AISeries, error) {
	var resp predictResponse
	if err := f.base.GetJSON(ctx, endpointPredict, "/api/hourly-predict/"+url.PathEscape(symbol), &resp); err != nil {
		return nil, err
	}

	out := &models.AISeries{Symbol: symbol, Points: make([]models.AIForecastPoint, 0, len(resp.Predictions))}
	for i, p := range resp.Predictions {
		t, ok := util.ParseTime(p.Time)
		if !ok {
			f.base.log.Warn("analytics prediction without time",
				applogger.String("symbol", symbol),
				applogger.Int("index", i),
			)
			continue
		}
		step := p.Hour
		if step <= 0 {
			step = i + 1
		}
		out.Points = append(out.Points, models.AIForecastPoint{
			Time:       t,
			Step:       step,
			OHLC:       models.OHLC{Open: p.Open, High: p.High, Low: p.Low, Close: p.Close},
			UpperBound: p.UpperBound,
			LowerBound: p.LowerBound,
		})
	}
	return out, nil
}

var _ domsvc.AIForecaster = (*HTTPAIForecaster)(nil)
