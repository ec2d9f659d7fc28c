package repository

import (
	"context"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	"FinRisk/pkg/queue"
)

// QueueEventPublisher pushes submission events onto a Redis list when Kafka
// is not available. The queue itself is closed by its owner.
type QueueEventPublisher struct {
	q queue.Publisher
}

func NewQueueEventPublisher(q queue.Publisher) *QueueEventPublisher {
	return &QueueEventPublisher{q: q}
}

func (p *QueueEventPublisher) PublishSubmission(ctx context.Context, s *models.Submission) error {
	return p.q.Publish(ctx, EventSubmitted, newSubmissionEvent(s))
}

func (p *QueueEventPublisher) Close() error { return nil }

var _ domrepo.EventPublisher = (*QueueEventPublisher)(nil)
