// Package queue moves typed JSON messages through Redis lists with delayed
// retries and a dead-letter list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FinRisk/pkg/id"
)

// Publisher enqueues a message of the given type.
type Publisher interface {
	Publish(ctx context.Context, msgType string, payload interface{}) error
}

// HandlerFunc processes one message payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Config tunes the consumer side.
type Config struct {
	Workers    int           // per registered type
	RetryLimit int           // attempts after the first before dead-lettering
	RetryDelay time.Duration // delay before a failed message is retried
	MaxPending int64         // list length cap, 0 means unbounded
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
	LastError string          `json:"last_error,omitempty"`
}

// NewMessage wraps payload. Byte slices and raw JSON are stored as-is.
func NewMessage(msgType string, payload interface{}, now time.Time) (Message, error) {
	if msgType == "" {
		return Message{}, errors.New("message type is required")
	}
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = json.RawMessage(p)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return Message{}, errors.New("payload is not valid JSON")
	}
	return Message{
		ID:        id.New(now),
		Type:      msgType,
		Payload:   raw,
		Timestamp: now.UTC(),
	}, nil
}

// ParsePayload decodes a message payload into T.
func ParsePayload[T any](m Message) (*T, error) {
	var out T
	if err := json.Unmarshal(m.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return &out, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
	outcomeRequeue
)

// disposition decides what happens to a message after its handler ran.
func disposition(m Message, err error, retryLimit int, permanent []error) outcome {
	if err == nil {
		return outcomeDone
	}
	if errors.Is(err, context.Canceled) {
		return outcomeRequeue
	}
	for _, p := range permanent {
		if errors.Is(err, p) {
			return outcomeDead
		}
	}
	if m.Attempts < retryLimit {
		return outcomeRetry
	}
	return outcomeDead
}
