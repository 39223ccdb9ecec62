package clock

import (
	"errors"
	"testing"
)

func TestParseConsequence(t *testing.T) {
	tests := []struct {
		text string
		kind ConsequenceKind
		arg  string
	}{
		{"The wards fail. [SPAWN_ENEMY:void_husk]", ConsequenceSpawnEnemy, "void_husk"},
		{"[ADVANCE_STORY:act_two] The gate opens.", ConsequenceAdvanceStory, "act_two"},
		{"[NEW_CLOCK:pursuit:6]", ConsequenceNewClock, "pursuit:6"},
		{"Nothing machine-readable here.", ConsequenceNone, ""},
	}

	for _, tt := range tests {
		got := ParseConsequence(tt.text)
		if got.Kind != tt.kind {
			t.Errorf("ParseConsequence(%q).Kind = %q, want %q", tt.text, got.Kind, tt.kind)
		}
		if got.Arg != tt.arg {
			t.Errorf("ParseConsequence(%q).Arg = %q, want %q", tt.text, got.Arg, tt.arg)
		}
		if got.Raw != tt.text {
			t.Errorf("ParseConsequence(%q).Raw = %q, want original text", tt.text, got.Raw)
		}
	}
}

func TestAddValidation(t *testing.T) {
	r := NewRegistry(nil)

	if _, err := r.Add("alarm", 2, Semantics{}); !errors.Is(err, ErrInvalidTicks) {
		t.Errorf("Add max_ticks 2 error = %v, want ErrInvalidTicks", err)
	}
	if _, err := r.Add("alarm", 13, Semantics{}); !errors.Is(err, ErrInvalidTicks) {
		t.Errorf("Add max_ticks 13 error = %v, want ErrInvalidTicks", err)
	}
	if _, err := r.Add("alarm", 6, Semantics{}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := r.Add("alarm", 6, Semantics{}); !errors.Is(err, ErrDuplicateClock) {
		t.Errorf("duplicate Add error = %v, want ErrDuplicateClock", err)
	}
}

func TestAdvanceFillDispatchedOnce(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Add("alarm", 6, Semantics{
		FilledConsequence: "Guards arrive. [SPAWN_ENEMY:temple_guard]",
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// 5 ticks in, then overshoot by 1: clamps to 6, dispatches once
	if _, err := r.Advance("alarm", 5, "noise"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	u, err := r.Advance("alarm", 2, "shouting")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if u.New != 6 {
		t.Errorf("New = %d, want clamped 6", u.New)
	}
	if !u.Filled {
		t.Error("Filled = false, want true")
	}
	if u.Consequence == nil {
		t.Fatal("Consequence = nil, want dispatch on fill")
	}
	if u.Consequence.Kind != ConsequenceSpawnEnemy || u.Consequence.Arg != "temple_guard" {
		t.Errorf("Consequence = %+v, want SPAWN_ENEMY temple_guard", u.Consequence)
	}

	// re-advance while filled: value stays, no second dispatch
	u, _ = r.Advance("alarm", 1, "more noise")
	if u.Consequence != nil {
		t.Error("re-advance dispatched consequence again")
	}
	if u.New != 6 {
		t.Errorf("re-advance New = %d, want 6", u.New)
	}
}

func TestRegressReArmsDispatch(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Add("ritual", 4, Semantics{
		FilledConsequence: "[ADVANCE_STORY:summoning_complete]",
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	u, _ := r.Advance("ritual", 4, "chanting")
	if u.Consequence == nil {
		t.Fatal("first fill did not dispatch")
	}

	u, _ = r.Regress("ritual", 2, "disruption")
	if u.New != 2 || u.Filled {
		t.Errorf("after regress New = %d Filled = %v, want 2 false", u.New, u.Filled)
	}

	u, _ = r.Advance("ritual", 2, "chanting resumes")
	if u.Consequence == nil {
		t.Error("re-fill after regress did not re-dispatch")
	}
}

func TestRegressFloorsAtZero(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Add("pursuit", 6, Semantics{}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := r.Advance("pursuit", 1, "spotted"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	u, err := r.Regress("pursuit", 3, "lost them")
	if err != nil {
		t.Fatalf("Regress() error = %v", err)
	}
	if u.New != 0 {
		t.Errorf("New = %d, want 0", u.New)
	}
}

func TestNotFound(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Advance("ghost", 1, "x"); !errors.Is(err, ErrClockNotFound) {
		t.Errorf("Advance error = %v, want ErrClockNotFound", err)
	}
	if _, err := r.Regress("ghost", 1, "x"); !errors.Is(err, ErrClockNotFound) {
		t.Errorf("Regress error = %v, want ErrClockNotFound", err)
	}
	if _, err := r.Get("ghost"); !errors.Is(err, ErrClockNotFound) {
		t.Errorf("Get error = %v, want ErrClockNotFound", err)
	}
}
