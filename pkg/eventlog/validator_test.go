package eventlog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStream(t *testing.T) []Event {
	t.Helper()
	log := NewLog(uuid.New(), nil, nil)
	ctx := context.Background()

	log.Append(ctx, EventSessionStart, 0, map[string]any{"scenario": "test"})
	log.Append(ctx, EventActionDeclaration, 1, map[string]any{
		"character": "kael", "action": "pick the lock",
	})
	log.Append(ctx, EventActionResolution, 1, map[string]any{
		"agent": "kael", "roll": map[string]any{"d20": 14, "total": 22, "dc": 18, "margin": 4},
	})
	log.Append(ctx, EventCharacterState, 1, map[string]any{
		"character": "kael", "health": 10, "void_score": 0, "soulcredit": 0, "position": "near",
	})
	log.Append(ctx, EventClockAdvancement, 1, map[string]any{
		"clock_name": "alarm", "old_value": 0, "new_value": 1, "maximum": 6, "filled": false,
	})
	log.Append(ctx, EventRoundSummary, 1, map[string]any{"success_rate": 1.0})
	log.Append(ctx, EventSessionEnd, 1, map[string]any{"outcome": "success"})

	return log.Events()
}

func TestValidate_CleanStream(t *testing.T) {
	errs := NewValidator().Validate(validStream(t))
	assert.Empty(t, errs)
}

func TestValidate_EmptyStream(t *testing.T) {
	errs := NewValidator().Validate(nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "empty")
}

func TestValidate_SeqGap(t *testing.T) {
	events := validStream(t)
	events[3].Seq = 99

	errs := NewValidator().Validate(events)
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "; "), "seq gap")
}

func TestValidate_RoundJump(t *testing.T) {
	events := validStream(t)
	events[5].Round = 4

	errs := NewValidator().Validate(events)
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "; "), "round sequence jumps")
}

func TestValidate_BadStartingRound(t *testing.T) {
	events := validStream(t)
	for i := range events {
		events[i].Round = 2
	}

	errs := NewValidator().Validate(events)
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "; "), "starts at 2")
}

func TestValidate_MissingRequiredField(t *testing.T) {
	events := validStream(t)
	delete(events[2].Data, "roll")

	errs := NewValidator().Validate(events)
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "; "), `missing required field "roll"`)
}

func TestValidate_DeclarationAfterResolution(t *testing.T) {
	events := validStream(t)
	// swap the declaration after the resolution but keep seq dense
	events[1], events[2] = events[2], events[1]
	events[1].Seq = 1
	events[2].Seq = 2

	errs := NewValidator().Validate(events)
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "; "), "declaration at seq 2 after resolution at seq 1")
}

func TestValidate_DoubleFillDispatch(t *testing.T) {
	log := NewLog(uuid.New(), nil, nil)
	ctx := context.Background()
	log.Append(ctx, EventSessionStart, 0, nil)
	log.Append(ctx, EventClockAdvancement, 1, map[string]any{
		"clock_name": "ritual", "old_value": 3, "new_value": 4, "maximum": 4,
		"filled": true, "consequence": map[string]any{"kind": "ADVANCE_STORY"},
	})
	log.Append(ctx, EventClockAdvancement, 1, map[string]any{
		"clock_name": "ritual", "old_value": 4, "new_value": 4, "maximum": 4,
		"filled": true, "consequence": map[string]any{"kind": "ADVANCE_STORY"},
	})

	errs := NewValidator().Validate(log.Events())
	require.NotEmpty(t, errs)
	assert.Contains(t, strings.Join(errs, "; "), "dispatched fill consequence twice")
}

func TestValidate_RegressReArmsFill(t *testing.T) {
	log := NewLog(uuid.New(), nil, nil)
	ctx := context.Background()
	log.Append(ctx, EventSessionStart, 0, nil)
	log.Append(ctx, EventClockAdvancement, 1, map[string]any{
		"clock_name": "ritual", "old_value": 3, "new_value": 4, "maximum": 4,
		"filled": true, "consequence": map[string]any{"kind": "ADVANCE_STORY"},
	})
	log.Append(ctx, EventClockAdvancement, 1, map[string]any{
		"clock_name": "ritual", "old_value": 4, "new_value": 2, "maximum": 4, "filled": false,
	})
	log.Append(ctx, EventClockAdvancement, 1, map[string]any{
		"clock_name": "ritual", "old_value": 2, "new_value": 4, "maximum": 4,
		"filled": true, "consequence": map[string]any{"kind": "ADVANCE_STORY"},
	})

	errs := NewValidator().Validate(log.Events())
	assert.Empty(t, errs)
}

func TestValidateJSONL(t *testing.T) {
	log := NewLog(uuid.New(), nil, nil)
	ctx := context.Background()
	log.Append(ctx, EventSessionStart, 0, nil)
	log.Append(ctx, EventRoundSummary, 0, map[string]any{"success_rate": 0.5})

	data, err := log.MarshalJSONL()
	require.NoError(t, err)

	errs := NewValidator().ValidateJSONL(data)
	assert.Empty(t, errs)

	// garbage line is reported, remaining records still validated
	garbled := append([]byte("not json at all\n"), data...)
	errs = NewValidator().ValidateJSONL(garbled)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "invalid JSON")
}

func TestLogAppendAssignsSeqAndTimestamp(t *testing.T) {
	log := NewLog(uuid.New(), nil, nil)
	ctx := context.Background()

	before := time.Now().UTC()
	a := log.Append(ctx, EventSessionStart, 0, nil)
	b := log.Append(ctx, EventRoundSummary, 0, map[string]any{"success_rate": 1.0})

	assert.Equal(t, 0, a.Seq)
	assert.Equal(t, 1, b.Seq)
	assert.False(t, a.Timestamp.Before(before.Add(-time.Second)))
	assert.Equal(t, log.SessionID(), a.SessionID)
}
