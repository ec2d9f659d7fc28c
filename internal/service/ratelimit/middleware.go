package ratelimit

import (
	xhttp "FinRisk/pkg/http"

	"github.com/labstack/echo/v4"
)

// KeyFunc picks the bucket for a request.
type KeyFunc func(c echo.Context) string

// ByParam buckets requests by a path parameter, such as the board id.
func ByParam(name string) KeyFunc {
	return func(c echo.Context) string { return c.Param(name) }
}

// Middleware rejects requests over perMinute for their key with 429.
// A non-positive perMinute disables limiting.
func Middleware(l *Limiter, perMinute int, key KeyFunc) echo.MiddlewareFunc {
	capacity, refill := PerMinute(perMinute)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if perMinute <= 0 {
				return next(c)
			}
			k := key(c)
			if k == "" {
				k = c.RealIP()
			}
			if !l.Allow(k, capacity, refill) {
				return xhttp.Fail(c, xhttp.TooManyRequests("too many submissions, slow down"))
			}
			return next(c)
		}
	}
}
