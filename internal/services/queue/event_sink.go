package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/yags-engine/pkg/eventlog"
)

// EventSink streams session events to a per-session Redis list, so external
// consumers can follow a run while it is in progress. It implements
// eventlog.Sink; publish failures are surfaced to the caller and the
// in-memory log remains authoritative.
type EventSink struct {
	client *Client
	logger *slog.Logger
}

var _ eventlog.Sink = (*EventSink)(nil)

// NewEventSink creates a sink on an existing queue client
func NewEventSink(client *Client, logger *slog.Logger) *EventSink {
	return &EventSink{
		client: client,
		logger: logger,
	}
}

// streamKey returns the Redis key for a session's event stream
func (s *EventSink) streamKey(sessionID string) string {
	return fmt.Sprintf("events:%s", sessionID)
}

// Publish appends one event to the session's stream
func (s *EventSink) Publish(ctx context.Context, event eventlog.Event) error {
	key := s.streamKey(event.SessionID.String())

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := s.client.rdb.RPush(ctx, key, data).Err(); err != nil {
		s.logger.Error("Failed to publish event",
			"error", err,
			"key", key,
			"event_type", string(event.Type))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	s.logger.Debug("Published event",
		"key", key,
		"event_type", string(event.Type),
		"seq", event.Seq)

	return nil
}

// Read returns up to limit events from a session's stream without removing
// them. limit <= 0 reads the whole stream.
func (s *EventSink) Read(ctx context.Context, sessionID string, limit int) ([]eventlog.Event, error) {
	key := s.streamKey(sessionID)

	end := int64(limit - 1)
	if limit <= 0 {
		end = -1
	}

	lines, err := s.client.rdb.LRange(ctx, key, 0, end).Result()
	if err != nil && err != redis.Nil {
		s.logger.Error("Failed to read event stream",
			"error", err,
			"key", key)
		return nil, fmt.Errorf("failed to read event stream: %w", err)
	}

	events := make([]eventlog.Event, 0, len(lines))
	for _, line := range lines {
		var event eventlog.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			s.logger.Warn("Skipping unparseable event record",
				"key", key,
				"error", err)
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// Depth returns the number of events streamed for a session
func (s *EventSink) Depth(ctx context.Context, sessionID string) (int, error) {
	key := s.streamKey(sessionID)

	count, err := s.client.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get stream depth: %w", err)
	}

	return int(count), nil
}

// Clear removes a session's event stream
func (s *EventSink) Clear(ctx context.Context, sessionID string) error {
	key := s.streamKey(sessionID)

	if err := s.client.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear event stream: %w", err)
	}

	s.logger.Debug("Cleared event stream", "key", key)
	return nil
}
