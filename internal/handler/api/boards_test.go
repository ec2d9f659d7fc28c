package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/service/ratelimit"
	"FinRisk/internal/services/analytics"
	"FinRisk/internal/services/forecast"
	"FinRisk/internal/usecase"
	xlogger "FinRisk/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardID = "3f1c6f0e-8f2b-4c59-9a57-3b0a2f7d1e11"

type fakeBoards struct {
	view      usecase.View
	err       error
	editArgs  []string
	submitted int
}

func (f *fakeBoards) Open(_ context.Context, symbol string) (usecase.View, error) {
	v := f.view
	v.Symbol = symbol
	return v, f.err
}

func (f *fakeBoards) ChangeSymbol(_ context.Context, _ string, symbol string) (usecase.View, error) {
	v := f.view
	v.Symbol = symbol
	return v, f.err
}

func (f *fakeBoards) Reload(context.Context, string) (usecase.View, error) { return f.view, f.err }
func (f *fakeBoards) Close(string) error                                  { return f.err }

func (f *fakeBoards) Edit(_ context.Context, _ string, index int, field, value string) (usecase.View, error) {
	f.editArgs = []string{fmt.Sprint(index), field, value}
	return f.view, f.err
}

func (f *fakeBoards) SaveSlot(context.Context, string, int) (usecase.View, error) {
	return f.view, f.err
}

func (f *fakeBoards) Submit(context.Context, string) (usecase.View, error) {
	f.submitted++
	return f.view, f.err
}

func (f *fakeBoards) View(string) (usecase.View, error) { return f.view, f.err }

func (f *fakeBoards) Comparison(string) (usecase.Comparison, error) {
	return usecase.Comparison{Symbol: f.view.Symbol, Timeline: f.view.Timeline, Report: f.view.Report}, f.err
}

func (f *fakeBoards) Subscribe(string) (<-chan usecase.View, func(), error) {
	return nil, nil, f.err
}

func sampleView() usecase.View {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return usecase.View{
		ID:        boardID,
		Symbol:    "AAPL",
		State:     forecast.StateEditing,
		Ticket:    forecast.Ticket{Symbol: "AAPL", Epoch: 1},
		BasePrice: 100.129,
		BaseTime:  t0,
		Slots: []forecast.Slot{
			{Index: 1, Draft: forecast.Draft{Open: models.Float(100.129)}},
		},
		Sources: map[models.Source]bool{models.SourceActual: true},
		Timeline: []models.TimelineEntry{
			{Time: t0, Actual: models.Float(100.129), AIClose: models.Float(101.004)},
		},
		Report: models.AccuracyReport{UserMAE: models.Float(0.5), AIMAE: models.Float(1.5), SampleCount: 3, UserSamples: 3, AISamples: 3},
	}
}

func newTestServer(fb *fakeBoards, perMin int) *echo.Echo {
	e := echo.New()
	h := NewBoardsHandler(xlogger.Nop(), fb, ratelimit.New(), perMin)
	h.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	h.RegisterRoutes(e)
	return e
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestOpenBoard(t *testing.T) {
	e := newTestServer(&fakeBoards{view: sampleView()}, 10)

	code, env := do(t, e, http.MethodPost, "/api/boards", `{"symbol":"AAPL"}`)
	require.Equal(t, http.StatusCreated, code)

	var got BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "editing", got.State)
	assert.Equal(t, 100.13, got.BasePrice)
	assert.Equal(t, "2024-03-01 10:00", got.BaseTime)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, 100.13, *got.Slots[0].Open)
	assert.Nil(t, got.Slots[0].Close)
	assert.Equal(t, 101.0, *got.Timeline[0].AIClose)
	assert.Equal(t, "user", got.Report.Winner)
}

func TestOpenBoard_RequiresSymbol(t *testing.T) {
	e := newTestServer(&fakeBoards{view: sampleView()}, 10)

	code, env := do(t, e, http.MethodPost, "/api/boards", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED")
}

func TestGetBoard_NotFound(t *testing.T) {
	e := newTestServer(&fakeBoards{err: usecase.ErrBoardNotFound}, 10)

	code, env := do(t, e, http.MethodGet, "/api/boards/"+boardID, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(env.Data), "ERR_BOARD_NOT_FOUND")
}

func TestGetBoard_RejectsBadID(t *testing.T) {
	e := newTestServer(&fakeBoards{view: sampleView()}, 10)

	code, _ := do(t, e, http.MethodGet, "/api/boards/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEditSlot(t *testing.T) {
	fb := &fakeBoards{view: sampleView()}
	e := newTestServer(fb, 10)

	code, _ := do(t, e, http.MethodPatch, "/api/boards/"+boardID+"/slots/2", `{"field":"close","value":101.5}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"2", "close", "101.5"}, fb.editArgs)

	code, _ = do(t, e, http.MethodPatch, "/api/boards/"+boardID+"/slots/2", `{"field":"close","value":null}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"2", "close", ""}, fb.editArgs)

	code, env := do(t, e, http.MethodPatch, "/api/boards/"+boardID+"/slots/2", `{"field":"volume","value":"1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")
}

func TestEditSlot_InvalidValue(t *testing.T) {
	fb := &fakeBoards{view: sampleView(), err: fmt.Errorf("%w: %q", usecase.ErrInvalidValue, "abc")}
	e := newTestServer(fb, 10)

	code, env := do(t, e, http.MethodPatch, "/api/boards/"+boardID+"/slots/1", `{"field":"open","value":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_NUMERIC")
}

func TestSaveSlot_ValidationError(t *testing.T) {
	verr := &forecast.ValidationError{Slot: 1, Field: forecast.FieldHigh, Err: forecast.ErrInconsistentBounds}
	e := newTestServer(&fakeBoards{view: sampleView(), err: verr}, 10)

	code, env := do(t, e, http.MethodPost, "/api/boards/"+boardID+"/slots/1/save", "")
	require.Equal(t, http.StatusBadRequest, code)

	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_INCONSISTENT_BOUNDS", errs[0]["code"])
	assert.Equal(t, "high", errs[0]["field"])
}

func TestSubmit_IncompleteSession(t *testing.T) {
	se := &forecast.SessionError{Slots: []*forecast.ValidationError{
		{Slot: 2, Err: forecast.ErrUnsaved},
		{Slot: 4, Field: forecast.FieldClose, Err: forecast.ErrIncomplete},
	}}
	e := newTestServer(&fakeBoards{view: sampleView(), err: se}, 10)

	code, env := do(t, e, http.MethodPost, "/api/boards/"+boardID+"/submit", "")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_UNSAVED")
	assert.Contains(t, string(env.Data), "ERR_INCOMPLETE")
}

func TestSubmit_UpstreamFailure(t *testing.T) {
	err := fmt.Errorf("%w: %w", usecase.ErrDelivery, &analytics.UpstreamError{Endpoint: "user_predict", Status: 500, Message: "model offline"})
	e := newTestServer(&fakeBoards{view: sampleView(), err: err}, 10)

	code, env := do(t, e, http.MethodPost, "/api/boards/"+boardID+"/submit", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, string(env.Data), "model offline")
}

func TestSubmit_RateLimited(t *testing.T) {
	fb := &fakeBoards{view: sampleView()}
	e := newTestServer(fb, 1)

	code, _ := do(t, e, http.MethodPost, "/api/boards/"+boardID+"/submit", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, e, http.MethodPost, "/api/boards/"+boardID+"/submit", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, 1, fb.submitted)
}

func TestComparison(t *testing.T) {
	e := newTestServer(&fakeBoards{view: sampleView()}, 10)

	code, env := do(t, e, http.MethodGet, "/api/boards/"+boardID+"/comparison", "")
	require.Equal(t, http.StatusOK, code)
	var got ComparisonResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 0.5, *got.Report.UserMAE)
	assert.Equal(t, 3, got.Report.SampleCount)
	assert.Equal(t, "user", got.Report.Winner)
}

func TestComparison_MinSamplesDefaultsToTwo(t *testing.T) {
	view := sampleView()
	view.Report.SampleCount = 1
	e := newTestServer(&fakeBoards{view: view}, 10)

	code, env := do(t, e, http.MethodGet, "/api/boards/"+boardID+"/comparison", "")
	require.Equal(t, http.StatusOK, code)
	var got ComparisonResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.Report.SampleCount)
	assert.Empty(t, got.Report.Winner)

	code, env = do(t, e, http.MethodGet, "/api/boards/"+boardID+"/comparison?min_samples=1", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "user", got.Report.Winner)
}

func TestComparison_MinSamplesAboveCountHidesWinner(t *testing.T) {
	e := newTestServer(&fakeBoards{view: sampleView()}, 10)

	code, env := do(t, e, http.MethodGet, "/api/boards/"+boardID+"/comparison?min_samples=5", "")
	require.Equal(t, http.StatusOK, code)
	var got ComparisonResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Empty(t, got.Report.Winner)
}

func TestComparison_RejectsNegativeMinSamples(t *testing.T) {
	e := newTestServer(&fakeBoards{view: sampleView()}, 10)

	code, env := do(t, e, http.MethodGet, "/api/boards/"+boardID+"/comparison?min_samples=-1", "")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "min_samples")
}

func TestNoSessionIsConflict(t *testing.T) {
	e := newTestServer(&fakeBoards{err: forecast.ErrNoSession}, 10)
	code, _ := do(t, e, http.MethodPost, "/api/boards/"+boardID+"/slots/1/save", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	e := newTestServer(&fakeBoards{err: errors.New("boom")}, 10)
	code, _ := do(t, e, http.MethodPost, "/api/boards/"+boardID+"/reload", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(&fakeBoards{}, 10)
	code, env := do(t, e, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}
