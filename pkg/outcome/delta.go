// Package outcome converts agent resolution payloads, structured or
// free-text, into validated state deltas for the economy, clock and bond
// registries.
package outcome

import (
	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/dice"
)

// VoidDelta is a pending void change for one character.
type VoidDelta struct {
	Character string `json:"character"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// SoulcreditDelta is a pending soulcredit change for one character.
type SoulcreditDelta struct {
	Character string `json:"character"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// ClockDelta is a pending clock movement. Negative Delta regresses.
type ClockDelta struct {
	Clock  string `json:"clock"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// ConditionDelta adds or removes a condition on a character.
type ConditionDelta struct {
	Character string `json:"character"`
	Condition string `json:"condition"`
	Duration  int    `json:"duration,omitempty"`
	Remove    bool   `json:"remove,omitempty"`
}

// DamageDelta is pending damage against a target id or agent id.
type DamageDelta struct {
	Target string `json:"target"`
	Amount int    `json:"amount"`
}

// PositionDelta moves a character to a new range band.
type PositionDelta struct {
	Character string             `json:"character"`
	To        character.Position `json:"to"`
}

// StateDeltas is the full set of state changes extracted from one
// resolution.
type StateDeltas struct {
	VoidChanges       []VoidDelta       `json:"void_changes,omitempty"`
	SoulcreditChanges []SoulcreditDelta `json:"soulcredit_changes,omitempty"`
	ClockUpdates      []ClockDelta      `json:"clock_updates,omitempty"`
	Conditions        []ConditionDelta  `json:"conditions,omitempty"`
	Damage            []DamageDelta     `json:"damage,omitempty"`
	PositionChange    *PositionDelta    `json:"position_change,omitempty"`
}

// IsEmpty checks if the delta set carries no changes.
func (sd *StateDeltas) IsEmpty() bool {
	return sd == nil || (len(sd.VoidChanges) == 0 &&
		len(sd.SoulcreditChanges) == 0 &&
		len(sd.ClockUpdates) == 0 &&
		len(sd.Conditions) == 0 &&
		len(sd.Damage) == 0 &&
		sd.PositionChange == nil)
}

// ResolutionPayload is what the upstream agent collaborator hands back for
// one resolved action. Structured is the preferred path; when it is absent
// the parser falls back to scanning Narration.
type ResolutionPayload struct {
	ActorID    string           `json:"actor_id"`
	TargetID   string           `json:"target_id,omitempty"`
	Narration  string           `json:"narration,omitempty"`
	Resolution *dice.Resolution `json:"resolution,omitempty"`
	Structured *StateDeltas     `json:"structured,omitempty"`
}

// Extraction is the explicit result of one extraction attempt. Failure is
// never fatal: an extraction that finds nothing yields an empty delta set
// plus a warning.
type Extraction struct {
	Deltas            StateDeltas `json:"deltas"`
	FallbackTriggered bool        `json:"fallback_triggered"`
	Warnings          []string    `json:"validation_warnings,omitempty"`
	// Completeness estimates how much of the expected schema was populated,
	// in [0,1]. Telemetry only.
	Completeness float64 `json:"completeness_score"`
}
