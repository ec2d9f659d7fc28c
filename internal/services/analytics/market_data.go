package analytics

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"FinRisk/internal/domain/models"
	domsvc "FinRisk/internal/domain/service"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/util"
)

const endpointHourly = "hourly"

// HTTPMarketData reads realized hourly candles from GET /api/hourly/{symbol}.
type HTTPMarketData struct{ base *HTTPServiceBase }

func NewHTTPMarketData(base *HTTPServiceBase) *HTTPMarketData { return &HTTPMarketData{base: base} }

type candleDTO struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type hourlyResponse struct {
	Symbol    string      `json:"symbol"`
	Data      []candleDTO `json:"data"`
	LastPrice *float64    `json:"last_price"`
	LastTime  string      `json:"last_time"`
}

func (m *HTTPMarketData) Hourly(ctx context.Context, symbol string) (*models.ActualSeries, error) {
	var resp hourlyResponse
	if err := m.base.GetJSON(ctx, endpointHourly, "/api/hourly/"+url.PathEscape(symbol), &resp); err != nil {
		return nil, err
	}

	out := &models.ActualSeries{Symbol: symbol, Candles: make([]models.Candle, 0, len(resp.Data))}
	skipped := 0
	for _, d := range resp.Data {
		t, ok := util.ParseTime(d.Time)
		if !ok {
			skipped++
			continue
		}
		out.Candles = append(out.Candles, models.Candle{
			Time:   t,
			OHLC:   models.OHLC{Open: d.Open, High: d.High, Low: d.Low, Close: d.Close},
			Volume: d.Volume,
		})
	}
	if skipped > 0 {
		m.base.log.Warn("analytics hourly rows skipped",
			applogger.String("symbol", symbol),
			applogger.Int("skipped", skipped),
		)
	}
	sort.SliceStable(out.Candles, func(i, j int) bool { return out.Candles[i].Time.Before(out.Candles[j].Time) })

	n := len(out.Candles)
	if n > 0 {
		out.LastPrice, out.LastTime = out.Candles[n-1].Close, out.Candles[n-1].Time
	}
	if resp.LastPrice != nil {
		out.LastPrice = *resp.LastPrice
	}
	if t, ok := util.ParseTime(resp.LastTime); ok {
		out.LastTime = t
	}
	if n == 0 && resp.LastPrice == nil {
		return nil, &UpstreamError{Endpoint: endpointHourly, Err: fmt.Errorf("%w: %s", ErrNoData, symbol)}
	}
	return out, nil
}

var _ domsvc.MarketData = (*HTTPMarketData)(nil)
