package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope every JSON endpoint writes.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError is one rejected field of a request or candle.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Respond writes data inside the envelope.
func Respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{Status: status, Message: http.StatusText(status), Data: data})
}

func OK(c echo.Context, data interface{}) error { return Respond(c, http.StatusOK, data) }

func Created(c echo.Context, data interface{}) error { return Respond(c, http.StatusCreated, data) }

// Invalid writes field-level validation failures with 400.
func Invalid(c echo.Context, errs []ValidationError) error {
	return Respond(c, http.StatusBadRequest, errs)
}

// Fail writes err with the status of the AppError it wraps. Anything else is
// reported as an opaque 500.
func Fail(c echo.Context, err error) error {
	var ae *AppError
	if !errors.As(err, &ae) {
		ae = Internal("internal error")
	}
	return Respond(c, ae.Status, []*AppError{ae})
}
