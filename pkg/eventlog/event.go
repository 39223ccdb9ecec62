// Package eventlog defines the session event stream: typed, ordered JSONL
// records that are the sole durable output of a session run, plus the
// post-hoc schema validator.
package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of record in the stream.
type EventType string

const (
	EventSessionStart      EventType = "session_start"
	EventSessionEnd        EventType = "session_end"
	EventActionDeclaration EventType = "action_declaration"
	EventActionResolution  EventType = "action_resolution"
	EventCharacterState    EventType = "character_state"
	EventEnemySpawn        EventType = "enemy_spawn"
	EventEnemyDefeat       EventType = "enemy_defeat"
	EventClockAdvancement  EventType = "clock_advancement"
	EventRoundSummary      EventType = "round_summary"
	EventVoidSpike         EventType = "void_spike"
	EventBondChange        EventType = "bond_change"
)

// Event is one record in the stream. Data carries the per-type payload.
type Event struct {
	Type      EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID uuid.UUID      `json:"session_id"`
	Seq       int            `json:"seq"`
	Round     int            `json:"round"`
	Data      map[string]any `json:"data,omitempty"`
}

// Sink receives events as they are appended, for out-of-process consumers.
// Publish failures are logged and never block the session.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Log is the append-only event stream for one session.
type Log struct {
	sessionID uuid.UUID
	events    []Event
	seq       int
	sink      Sink
	logger    *slog.Logger
}

// NewLog creates an empty log for a session. sink may be nil.
func NewLog(sessionID uuid.UUID, sink Sink, logger *slog.Logger) *Log {
	return &Log{
		sessionID: sessionID,
		sink:      sink,
		logger:    logger,
	}
}

// SessionID returns the owning session's id.
func (l *Log) SessionID() uuid.UUID { return l.sessionID }

// Append adds an event to the stream, assigning its sequence number and
// timestamp, and publishes it to the sink if one is configured.
func (l *Log) Append(ctx context.Context, eventType EventType, round int, data map[string]any) Event {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: l.sessionID,
		Seq:       l.seq,
		Round:     round,
		Data:      data,
	}
	l.seq++
	l.events = append(l.events, event)

	if l.sink != nil {
		if err := l.sink.Publish(ctx, event); err != nil && l.logger != nil {
			// Sink failures must not abort the round; the in-memory log is
			// still complete.
			l.logger.Error("Failed to publish event to sink",
				"error", err,
				"event_type", string(eventType),
				"seq", event.Seq)
		}
	}

	return event
}

// Events returns the stream in order.
func (l *Log) Events() []Event { return l.events }

// MarshalJSONL serializes the stream as newline-delimited JSON.
func (l *Log) MarshalJSONL() ([]byte, error) {
	var out []byte
	for _, event := range l.events {
		line, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}
