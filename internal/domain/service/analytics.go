package service

import (
	"context"

	"FinRisk/internal/domain/models"
)

// MarketData fetches the realized candle series for a symbol.
type MarketData interface {
	Hourly(ctx context.Context, symbol string) (*models.ActualSeries, error)
}

// AIForecaster fetches the model forecast for a symbol.
type AIForecaster interface {
	Forecast(ctx context.Context, symbol string) (*models.AISeries, error)
}

// PredictionSink forwards an accepted user forecast to the analytics service.
type PredictionSink interface {
	SubmitPrediction(ctx context.Context, symbol string, candles []models.OHLC) error
}
