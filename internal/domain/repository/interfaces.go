package repository

import (
	"context"
	"errors"

	"FinRisk/internal/domain/models"
)

// ErrNotFound is returned when no submission exists for a symbol.
var ErrNotFound = errors.New("not found")

// SubmissionStore keeps the latest user submission per symbol.
type SubmissionStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, s *models.Submission) error
	Latest(ctx context.Context, symbol string) (*models.Submission, error)
	Close() error
}

// EventPublisher announces accepted submissions to downstream consumers.
type EventPublisher interface {
	PublishSubmission(ctx context.Context, s *models.Submission) error
	Close() error
}

type Metrics interface {
	RecordSubmission(symbol string)
	RecordValidationFailure(kind string)
	RecordStaleDrop(source string)
	RecordAccuracy(symbol, source string, mae float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
