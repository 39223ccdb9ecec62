package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// requiredDataFields lists the data fields each event type must carry.
var requiredDataFields = map[EventType][]string{
	EventActionDeclaration: {"character", "action"},
	EventActionResolution:  {"agent", "roll"},
	EventCharacterState:    {"character", "health", "void_score", "soulcredit", "position"},
	EventEnemySpawn:        {"enemy", "stats"},
	EventEnemyDefeat:       {"enemy", "defeat_reason"},
	EventClockAdvancement:  {"clock_name", "old_value", "new_value", "maximum", "filled"},
	EventRoundSummary:      {"success_rate"},
}

// Validator performs post-hoc schema and ordering validation over an event
// stream. All problems are collected rather than failing fast; a truncated
// log from a cancelled session is still valid input and simply reports
// incompleteness for its final round.
type Validator struct {
	errors []string
}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks an ordered event stream and returns all problems found.
func (v *Validator) Validate(events []Event) []string {
	v.errors = nil

	if len(events) == 0 {
		v.addError("event stream is empty")
		return v.errors
	}

	v.checkSequence(events)
	v.checkRounds(events)
	v.checkRequiredFields(events)
	v.checkDeclarationOrdering(events)
	v.checkClockFills(events)

	return v.errors
}

// ValidateJSONL parses newline-delimited records and validates them.
// Unparseable lines are schema errors, not fatal.
func (v *Validator) ValidateJSONL(data []byte) []string {
	var events []Event
	var parseErrors []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: invalid JSON: %v", lineNo, err))
			continue
		}
		if event.Type == "" {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: missing event_type", lineNo))
			continue
		}
		events = append(events, event)
	}

	errs := v.Validate(events)
	return append(parseErrors, errs...)
}

func (v *Validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

// checkSequence requires seq values 0..n-1 with no gaps.
func (v *Validator) checkSequence(events []Event) {
	for i, event := range events {
		if event.Seq != i {
			v.addError("seq gap at position %d: got seq %d", i, event.Seq)
			return
		}
	}
}

// checkRounds requires round numbers to start at 0 or 1 and increment by
// exactly 1 with no gaps.
func (v *Validator) checkRounds(events []Event) {
	first := events[0].Round
	if first != 0 && first != 1 {
		v.addError("round numbering starts at %d, want 0 or 1", first)
	}

	prev := first
	for _, event := range events {
		switch {
		case event.Round == prev || event.Round == prev+1:
			prev = event.Round
		default:
			v.addError("round sequence jumps from %d to %d at seq %d", prev, event.Round, event.Seq)
			return
		}
	}
}

func (v *Validator) checkRequiredFields(events []Event) {
	for _, event := range events {
		required, known := requiredDataFields[event.Type]
		if !known {
			continue
		}
		for _, field := range required {
			if _, ok := event.Data[field]; !ok {
				v.addError("seq %d: %s missing required field %q", event.Seq, event.Type, field)
			}
		}
		if event.SessionID.String() == "00000000-0000-0000-0000-000000000000" {
			v.addError("seq %d: missing session_id", event.Seq)
		}
		if event.Timestamp.IsZero() {
			v.addError("seq %d: missing timestamp", event.Seq)
		}
	}
}

// checkDeclarationOrdering enforces the hard phase invariant: within a
// round, every declaration must appear at an earlier sequence position than
// every resolution.
func (v *Validator) checkDeclarationOrdering(events []Event) {
	firstResolution := make(map[int]int)
	for _, event := range events {
		if event.Type == EventActionResolution {
			if _, seen := firstResolution[event.Round]; !seen {
				firstResolution[event.Round] = event.Seq
			}
		}
	}
	for _, event := range events {
		if event.Type != EventActionDeclaration {
			continue
		}
		if res, ok := firstResolution[event.Round]; ok && event.Seq > res {
			v.addError("round %d: declaration at seq %d after resolution at seq %d",
				event.Round, event.Seq, res)
		}
	}
}

// checkClockFills requires each clock to dispatch its fill exactly once per
// fill: a second filled advancement without an intervening regress below max
// is a violation.
func (v *Validator) checkClockFills(events []Event) {
	filled := make(map[string]bool)
	for _, event := range events {
		if event.Type != EventClockAdvancement {
			continue
		}
		name, _ := event.Data["clock_name"].(string)
		isFilled, _ := event.Data["filled"].(bool)
		dispatched, hasDispatch := event.Data["consequence"]

		if isFilled && hasDispatch && dispatched != nil {
			if filled[name] {
				v.addError("seq %d: clock %q dispatched fill consequence twice without regress",
					event.Seq, name)
			}
			filled[name] = true
		}
		if !isFilled {
			filled[name] = false
		}
	}
}
