package api

import (
	"errors"

	"FinRisk/internal/services/analytics"
	"FinRisk/internal/services/forecast"
	"FinRisk/internal/usecase"
	xhttp "FinRisk/pkg/http"
)

// toAppError maps use case errors onto API errors.
func toAppError(err error) *xhttp.AppError {
	var ae *xhttp.AppError
	if errors.As(err, &ae) {
		return ae
	}
	var ue *analytics.UpstreamError
	switch {
	case errors.Is(err, usecase.ErrBoardNotFound):
		return xhttp.NotFound("ERR_BOARD_NOT_FOUND", "id", "board not found").WithError(err)
	case errors.Is(err, usecase.ErrInvalidSymbol):
		return xhttp.InvalidField("ERR_REQUIRED", "symbol", "symbol is required")
	case errors.Is(err, usecase.ErrInvalidValue):
		return xhttp.InvalidField("ERR_NUMERIC", "value", "value must be a number").WithError(err)
	case errors.Is(err, forecast.ErrUnknownField):
		return xhttp.InvalidField("ERR_ONEOF", "field", "field must be one of: open, high, low, close")
	case errors.Is(err, forecast.ErrSlotOutOfRange):
		return xhttp.InvalidField("ERR_MAX", "index", err.Error())
	case errors.Is(err, forecast.ErrNoSession):
		return xhttp.Conflict("board has no open session yet").WithError(err)
	case errors.Is(err, usecase.ErrDelivery):
		ae := xhttp.BadGateway("forecast could not be delivered").WithError(err)
		if errors.As(err, &ue) && ue.Message != "" {
			ae.WithParam("upstream", ue.Message)
		}
		return ae
	case errors.As(err, &ue):
		return xhttp.BadGateway("analytics service unavailable").WithError(err)
	default:
		return xhttp.Internal("something went wrong").WithError(err)
	}
}

// validationErrors expands forecast validation failures into field errors.
// ok is false when err is not a validation failure.
func validationErrors(err error) (out []xhttp.ValidationError, ok bool) {
	var se *forecast.SessionError
	if errors.As(err, &se) {
		for _, ve := range se.Slots {
			out = append(out, fieldError(ve))
		}
		return out, true
	}
	var ve *forecast.ValidationError
	if errors.As(err, &ve) {
		return []xhttp.ValidationError{fieldError(ve)}, true
	}
	return nil, false
}

func fieldError(ve *forecast.ValidationError) xhttp.ValidationError {
	return xhttp.ValidationError{
		Code:    errorCode(ve),
		Field:   string(ve.Field),
		Message: ve.Error(),
		Params:  map[string]interface{}{"slot": ve.Slot},
	}
}
