package repository

import (
	"context"
	"time"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	pkgkafka "FinRisk/pkg/kafka"
)

// SubmissionEvent is the payload published on the submissions topic.
type SubmissionEvent struct {
	Type        string                     `json:"type"`
	ID          string                     `json:"id"`
	Symbol      string                     `json:"symbol"`
	SubmittedAt time.Time                  `json:"submitted_at"`
	BasePrice   float64                    `json:"base_price"`
	BaseTime    time.Time                  `json:"base_time"`
	StepSeconds int64                      `json:"step_seconds"`
	Predictions []models.UserForecastPoint `json:"predictions"`
}

// EventSubmitted is the event type of accepted submissions.
const EventSubmitted = "forecast.submitted"

func newSubmissionEvent(s *models.Submission) SubmissionEvent {
	return SubmissionEvent{
		Type:        EventSubmitted,
		ID:          s.ID,
		Symbol:      s.Symbol,
		SubmittedAt: s.CreatedAt,
		BasePrice:   s.BasePrice,
		BaseTime:    s.BaseTime,
		StepSeconds: int64(s.Step / time.Second),
		Predictions: s.Predictions,
	}
}

// publisher is the subset of pkg/kafka.Producer used here.
type publisher interface {
	PublishEvent(ctx context.Context, topic string, key []byte, eventType string, value interface{}) error
	Close() error
}

// KafkaEventPublisher announces submissions keyed by symbol so events for a
// symbol stay ordered on one partition.
type KafkaEventPublisher struct {
	p     publisher
	topic string
}

func NewKafkaEventPublisher(p *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{p: p, topic: topic}
}

func (k *KafkaEventPublisher) PublishSubmission(ctx context.Context, s *models.Submission) error {
	return k.p.PublishEvent(ctx, k.topic, []byte(s.Symbol), EventSubmitted, newSubmissionEvent(s))
}

func (k *KafkaEventPublisher) Close() error { return k.p.Close() }

// NopEventPublisher is used when no event transport is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishSubmission(context.Context, *models.Submission) error { return nil }
func (NopEventPublisher) Close() error                                             { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopEventPublisher{}
)
