package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/internal/services/forecast"
	pkgkafka "FinRisk/pkg/kafka"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"
)

// ActualCandlesHandler consumes realized candles pushed on Kafka or the Redis
// queue and upserts them into every open board for the symbol.
type ActualCandlesHandler struct {
	topic   string
	uc      *ForecastUseCase
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewActualCandlesHandler(topic string, uc *ForecastUseCase, metrics domrepo.Metrics, log *applogger.Logger) *ActualCandlesHandler {
	return &ActualCandlesHandler{topic: topic, uc: uc, metrics: metrics, log: log}
}

func (h *ActualCandlesHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, time, open, high, low, close, volume}
// where time is RFC3339, "YYYY-MM-DD HH:MM" or unix seconds.
type actualCandleMessage struct {
	Symbol string          `json:"symbol"`
	Time   json.RawMessage `json:"time"`
	Open   float64         `json:"open"`
	High   float64         `json:"high"`
	Low    float64         `json:"low"`
	Close  float64         `json:"close"`
	Volume float64         `json:"volume"`
}

func (h *ActualCandlesHandler) Handle(_ context.Context, b []byte) error {
	var m actualCandleMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode candle: %v", pkgkafka.ErrPermanent, err)
	}
	symbol := util.NormalizeSymbol(m.Symbol)
	if symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("%w: candle without symbol", pkgkafka.ErrPermanent)
	}
	ts, ok := parseMessageTime(m.Time)
	if !ok {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("%w: candle for %s has bad time %s", pkgkafka.ErrPermanent, symbol, string(m.Time))
	}
	c := models.Candle{
		Time:   ts,
		OHLC:   models.OHLC{Open: m.Open, High: m.High, Low: m.Low, Close: m.Close},
		Volume: m.Volume,
	}
	if err := forecast.ValidateOHLC(c.OHLC); err != nil {
		h.log.Warn("actual.candle inconsistent", applogger.String("symbol", symbol), applogger.Error(err))
	}

	h.metrics.RecordLatency("actual_push_lag", time.Since(ts).Seconds())
	n := h.uc.ApplyActualCandle(symbol, c)
	h.log.Debug("actual.candle applied", applogger.String("symbol", symbol), applogger.Int("boards", n))
	return nil
}

func parseMessageTime(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return util.ParseTime(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		if n > 1e11 { // ms
			n /= 1000
		}
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}

var _ pkgkafka.MessageHandler = (*ActualCandlesHandler)(nil)
