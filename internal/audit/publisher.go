// Package audit provides lifecycle event capture and processing.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modelvault/modelvault/internal/metrics"
	"github.com/modelvault/modelvault/internal/model"
)

const (
	// StreamKey is the Redis stream for audit events.
	StreamKey = "stream:audit_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:audit_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// EventPayload is the compressed event format for the Redis stream.
type EventPayload struct {
	Action        string `json:"a"`            // action
	ActorID       string `json:"act"`          // actor_id
	SubjectUserID string `json:"su,omitempty"` // subject_user_id
	ModelID       string `json:"m,omitempty"`  // model_id
	OccurredAt    int64  `json:"t"`            // Unix milliseconds
}

// ValidateEventPayload rejects events that would be useless rows.
func ValidateEventPayload(p EventPayload) error {
	if p.Action == "" {
		return errors.New("action is required")
	}
	if p.ActorID == "" {
		return errors.New("actor_id is required")
	}
	if p.OccurredAt <= 0 {
		return errors.New("occurred_at must be positive")
	}
	return nil
}

// Publisher enqueues audit events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new audit event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Publish adds an audit event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event EventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// RecordAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) RecordAsync(event model.AuditEvent) {
	payload := EventPayload{
		Action:        event.Action,
		ActorID:       event.ActorID,
		SubjectUserID: event.SubjectUserID,
		ModelID:       event.ModelID,
		OccurredAt:    event.OccurredAt.UnixMilli(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish audit event",
				"action", payload.Action,
				"error", err,
			)
			p.metrics.IncAuditEventPublished("dropped")
			return
		}

		p.logger.Debug("audit event published",
			"action", payload.Action,
			"stream_id", streamID,
		)
		p.metrics.IncAuditEventPublished("success")
	}()
}
