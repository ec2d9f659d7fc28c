package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FinRisk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBase(t *testing.T, h http.HandlerFunc, opts ...Option) *HTTPServiceBase {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBackoff(time.Millisecond)}, opts...)
	return NewHTTPServiceBaseURL(srv.URL+"/", time.Second, opts...)
}

func TestHourly_ParsesCandles(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hourly/AAPL", r.URL.Path)
		_, _ = io.WriteString(w, `{"symbol":"AAPL","data":[
			{"time":"2024-03-01 11:00","open":101,"high":103,"low":100,"close":102,"volume":10},
			{"time":"2024-03-01 10:00","open":100,"high":102,"low":99,"close":101,"volume":12},
			{"time":"garbage","open":1,"high":1,"low":1,"close":1,"volume":1}
		],"last_price":102.5,"last_time":"2024-03-01 11:30"}`)
	})

	series, err := NewHTTPMarketData(base).Hourly(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, series.Candles, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), series.Candles[0].Time)
	assert.Equal(t, 102.0, series.Candles[1].Close)
	assert.Equal(t, 102.5, series.LastPrice)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC), series.LastTime)
}

func TestHourly_LastFallsBackToFinalCandle(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"symbol":"X","data":[{"time":"2024-03-01 10:00","open":1,"high":2,"low":0.5,"close":1.5,"volume":0}]}`)
	})

	series, err := NewHTTPMarketData(base).Hourly(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 1.5, series.LastPrice)
	assert.Equal(t, series.Candles[0].Time, series.LastTime)
}

func TestHourly_NotFound(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"no data for ZZZ"}`)
	})

	_, err := NewHTTPMarketData(base).Hourly(context.Background(), "ZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Equal(t, "no data for ZZZ", ue.Message)
}

func TestHourly_EmptyIsNoData(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"symbol":"X","data":[]}`)
	})

	_, err := NewHTTPMarketData(base).Hourly(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestForecast_RepairsPythonLiterals(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hourly-predict/AAPL", r.URL.Path)
		_, _ = io.WriteString(w, `{"symbol":"AAPL","predictions":[
			{"time":"2024-03-01 12:00","hour":1,"open":102,"high":104,"low":101,"close":103,"upper_bound":105,"lower_bound":None},
			{"time":"2024-03-01 13:00","hour":2,"open":103,"high":105,"low":102,"close":104,"upper_bound":106,"lower_bound":None},
		]}`)
	})

	series, err := NewHTTPAIForecaster(base).Forecast(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.Equal(t, 1, series.Points[0].Step)
	assert.Equal(t, 103.0, series.Points[0].Close)
	require.NotNil(t, series.Points[0].UpperBound)
	assert.Equal(t, 105.0, *series.Points[0].UpperBound)
	assert.Nil(t, series.Points[1].LowerBound)
}

func TestForecast_RetriesServerErrors(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"symbol":"X","predictions":[]}`)
	}, WithRetries(2))

	series, err := NewHTTPAIForecaster(base).Forecast(context.Background(), "X")
	require.NoError(t, err)
	assert.Empty(t, series.Points)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestForecast_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad symbol"}`)
	}, WithRetries(3))

	_, err := NewHTTPAIForecaster(base).Forecast(context.Background(), "X")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad symbol", ue.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSubmitPrediction_PostsCandles(t *testing.T) {
	var got userPredictRequest
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/user-predict/AAPL", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	candles := []models.OHLC{{Open: 100, High: 105, Low: 95, Close: 102}}
	require.NoError(t, NewHTTPPredictionSink(base).SubmitPrediction(context.Background(), "AAPL", candles))
	assert.Equal(t, candles, got.Predictions)
}

func TestBase_MissingURL(t *testing.T) {
	base := NewHTTPServiceBaseURL("", time.Second)
	err := base.GetJSON(context.Background(), "hourly", "/api/hourly/X", &struct{}{})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "hourly", ue.Endpoint)
}
