package usecase

import "errors"

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrInvalidSymbol = errors.New("symbol is required")
	ErrInvalidValue  = errors.New("value is not a number")
	// ErrDelivery wraps failures to hand an accepted forecast to analytics
	// or storage; the session is left unsubmitted.
	ErrDelivery = errors.New("submission delivery failed")
)
