package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("b1", 2, 1))
	assert.True(t, l.Allow("b1", 2, 1))
	assert.False(t, l.Allow("b1", 2, 1))
	assert.True(t, l.Allow("b2", 2, 1), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("b1", 2, 1))
	assert.False(t, l.Allow("b1", 2, 1))
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	e := echo.New()
	l := New()
	h := Middleware(l, 1, ByParam("id"))(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	call := func() int {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues("board-1")
		_ = h(c)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, call())
	assert.Equal(t, http.StatusTooManyRequests, call())
}
