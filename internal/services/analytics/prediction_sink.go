package analytics

import (
	"context"
	"net/url"

	"FinRisk/internal/domain/models"
	domsvc "FinRisk/internal/domain/service"
)

const endpointUserPredict = "user_predict"

// HTTPPredictionSink forwards accepted user forecasts to POST /api/user-predict/{symbol}.
type HTTPPredictionSink struct{ base *HTTPServiceBase }

func NewHTTPPredictionSink(base *HTTPServiceBase) *HTTPPredictionSink {
	return &HTTPPredictionSink{base: base}
}

type userPredictRequest struct {
	Predictions []models.OHLC `json:"predictions"`
}

func (s *HTTPPredictionSink) SubmitPrediction(ctx context.Context, symbol string, candles []models.OHLC) error {
	return s.base.PostJSON(ctx, endpointUserPredict, "/api/user-predict/"+url.PathEscape(symbol),
		userPredictRequest{Predictions: candles}, nil)
}

var _ domsvc.PredictionSink = (*HTTPPredictionSink)(nil)
