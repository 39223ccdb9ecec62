// Package economy tracks the shared mutable economy of a session: per-character
// Void corruption and the Soulcredit ledger, with full audit entries for
// training-feature extraction.
package economy

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jwebster45206/yags-engine/pkg/character"
)

// ErrCharacterNotFound indicates an economy operation referenced an
// unregistered character. Mutations never silently no-op.
var ErrCharacterNotFound = errors.New("character not found")

// VoidSpikeThreshold is the single-call void delta that triggers a spike.
const VoidSpikeThreshold = 2

// SpikeStunRounds is how long a void spike leaves the character stunned.
const SpikeStunRounds = 1

// ThresholdLevel describes the ambient disruption band for a void score.
type ThresholdLevel string

const (
	ThresholdNone        ThresholdLevel = "none"        // 0-4
	ThresholdMinor       ThresholdLevel = "minor"       // 5-6: ambient disruption
	ThresholdSignificant ThresholdLevel = "significant" // 7-8: disruption, bonds dormant
	ThresholdSevere      ThresholdLevel = "severe"      // 9
	ThresholdClaimed     ThresholdLevel = "claimed"     // 10: terminal
)

// ThresholdFor returns the disruption band for a void score.
func ThresholdFor(score int) ThresholdLevel {
	switch {
	case score >= 10:
		return ThresholdClaimed
	case score >= 9:
		return ThresholdSevere
	case score >= 7:
		return ThresholdSignificant
	case score >= 5:
		return ThresholdMinor
	default:
		return ThresholdNone
	}
}

// BondDormancyThreshold is the void score at or above which all of a
// character's bonds go dormant.
const BondDormancyThreshold = 7

// Entry is one audit record in the ledger. Zero-amount entries are recorded,
// so downstream consumers can distinguish "no change" from a logged
// zero-amount event.
type Entry struct {
	Character string    `json:"character"`
	Kind      string    `json:"kind"` // "void" or "soulcredit"
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	NewValue  int       `json:"new_value"`
	At        time.Time `json:"at"`
}

// VoidChange is the caller-visible result of a void mutation.
type VoidChange struct {
	Character    string         `json:"character"`
	Amount       int            `json:"amount"`
	Reason       string         `json:"reason"`
	OldScore     int            `json:"old_score"`
	NewScore     int            `json:"new_score"`
	Spike        bool           `json:"spike"`
	Threshold    ThresholdLevel `json:"threshold"`
	BondsDormant bool           `json:"bonds_dormant"`
	Claimed      bool           `json:"claimed"`
}

// SoulcreditChange is the caller-visible result of a soulcredit mutation.
type SoulcreditChange struct {
	Character string `json:"character"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
	OldValue  int    `json:"old_value"`
	NewValue  int    `json:"new_value"`
}

// Ledger is the per-session economy state. The round orchestrator is the
// only writer, during the resolve phase, so no locking is needed.
type Ledger struct {
	characters map[string]*character.CharacterState
	entries    []Entry
	lastSource map[string]string // last contributing reason per character
	logger     *slog.Logger
}

// NewLedger creates an empty economy ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	return &Ledger{
		characters: make(map[string]*character.CharacterState),
		lastSource: make(map[string]string),
		logger:     logger,
	}
}

// Register adds a character to the ledger.
func (l *Ledger) Register(c *character.CharacterState) {
	l.characters[c.ID] = c
}

// Character returns a registered character.
func (l *Ledger) Character(id string) (*character.CharacterState, error) {
	c, ok := l.characters[id]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return c, nil
}

// AddVoid applies a void delta, clamped to [0,10]. A single-call delta of 2
// or more triggers a Void Spike: the character is stunned for a short
// duration on top of the score change. Thresholds are evaluated after every
// mutation, not only on crossings.
func (l *Ledger) AddVoid(id string, amount int, reason string) (VoidChange, error) {
	c, ok := l.characters[id]
	if !ok {
		return VoidChange{}, ErrCharacterNotFound
	}

	old := c.VoidScore
	next := old + amount
	if next < character.VoidMin {
		next = character.VoidMin
	}
	if next > character.VoidMax {
		next = character.VoidMax
	}
	c.VoidScore = next

	change := VoidChange{
		Character: id,
		Amount:    amount,
		Reason:    reason,
		OldScore:  old,
		NewScore:  next,
		Threshold: ThresholdFor(next),
	}

	if amount >= VoidSpikeThreshold {
		change.Spike = true
		c.StunRounds = SpikeStunRounds
	}
	if next >= BondDormancyThreshold {
		change.BondsDormant = true
	}
	if next >= character.VoidMax {
		change.Claimed = true
		c.VoidClaimed = true
	}

	l.record(id, "void", amount, reason, next)

	if l.logger != nil {
		l.logger.Debug("Void changed",
			"character", id,
			"amount", amount,
			"reason", reason,
			"new_score", next,
			"spike", change.Spike,
			"threshold", change.Threshold)
	}

	return change, nil
}

// AddSoulcredit applies a soulcredit delta. Soulcredit has no hard clamp;
// every change, including zero, requires a reason and is recorded.
func (l *Ledger) AddSoulcredit(id string, amount int, reason string) (SoulcreditChange, error) {
	c, ok := l.characters[id]
	if !ok {
		return SoulcreditChange{}, ErrCharacterNotFound
	}

	old := c.Soulcredit
	c.Soulcredit = old + amount

	l.record(id, "soulcredit", amount, reason, c.Soulcredit)

	if l.logger != nil {
		l.logger.Debug("Soulcredit changed",
			"character", id,
			"amount", amount,
			"reason", reason,
			"new_value", c.Soulcredit)
	}

	return SoulcreditChange{
		Character: id,
		Amount:    amount,
		Reason:    reason,
		OldValue:  old,
		NewValue:  c.Soulcredit,
	}, nil
}

// VoidScore returns a character's current void score. Implements
// bond.VoidReader.
func (l *Ledger) VoidScore(id string) (int, error) {
	c, ok := l.characters[id]
	if !ok {
		return 0, ErrCharacterNotFound
	}
	return c.VoidScore, nil
}

// Soulcredit returns a character's current soulcredit balance.
func (l *Ledger) Soulcredit(id string) (int, error) {
	c, ok := l.characters[id]
	if !ok {
		return 0, ErrCharacterNotFound
	}
	return c.Soulcredit, nil
}

// LastSource returns the last contributing reason for a character, if any.
func (l *Ledger) LastSource(id string) (string, bool) {
	s, ok := l.lastSource[id]
	return s, ok
}

// Entries returns the full audit trail in order.
func (l *Ledger) Entries() []Entry {
	return l.entries
}

func (l *Ledger) record(id, kind string, amount int, reason string, newValue int) {
	l.entries = append(l.entries, Entry{
		Character: id,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		NewValue:  newValue,
		At:        time.Now().UTC(),
	})
	l.lastSource[id] = reason
}
