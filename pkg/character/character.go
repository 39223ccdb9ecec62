// Package character defines the typed combatant model: player character
// state, enemies, conditions, tactical positions and the sealed combatant
// discrimination used by the targeting and orchestration layers.
package character

import (
	"errors"
	"fmt"
)

// Position is a tactical range band.
type Position string

const (
	PositionEngaged Position = "engaged"
	PositionNear    Position = "near"
	PositionFar     Position = "far"
	PositionDistant Position = "distant"
)

// Positions lists the valid tactical range bands.
var Positions = []Position{PositionEngaged, PositionNear, PositionFar, PositionDistant}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	for _, known := range Positions {
		if p == known {
			return true
		}
	}
	return false
}

// Condition is a temporary state affecting a character.
// Duration is rounds remaining; -1 means until removed.
type Condition struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

// Void score bounds.
const (
	VoidMin = 0
	VoidMax = 10
)

// Bond limits per character.
const (
	BondLimitStandard = 3
	BondLimitFreeborn = 1
)

// ErrInvalidVoidScore indicates a void score outside 0-10.
var ErrInvalidVoidScore = errors.New("void score must be between 0 and 10")

// ErrInvalidPosition indicates an unknown tactical position.
var ErrInvalidPosition = errors.New("unknown tactical position")

// CharacterState is the full mutable state of one player character.
// It is owned by exactly one combatant and mutated only during the resolve
// phase, through the economy ledger and the outcome committer.
type CharacterState struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Attributes map[string]int `json:"attributes,omitempty"` // conventionally 1-10
	Skills     map[string]int `json:"skills,omitempty"`     // 0-10

	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`

	VoidScore  int `json:"void_score"`
	Soulcredit int `json:"soulcredit"`

	// Freeborn characters may hold at most one bond.
	Freeborn bool `json:"freeborn,omitempty"`

	Position   Position    `json:"position,omitempty"`
	Inventory  []string    `json:"inventory,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`

	// StunRounds counts the remaining rounds of void-spike stun. The
	// character loses its action while it is above zero.
	StunRounds int `json:"stun_rounds,omitempty"`

	// VoidClaimed is the terminal narrative flag set at void score 10.
	VoidClaimed bool `json:"void_claimed,omitempty"`
}

// NewCharacter builds a validated CharacterState.
func NewCharacter(id, name string) (*CharacterState, error) {
	if id == "" {
		return nil, fmt.Errorf("character id cannot be empty")
	}
	return &CharacterState{
		ID:         id,
		Name:       name,
		Attributes: make(map[string]int),
		Skills:     make(map[string]int),
		Health:     10,
		MaxHealth:  10,
		Position:   PositionNear,
	}, nil
}

// Validate checks the constructor-time invariants.
func (c *CharacterState) Validate() error {
	if c.VoidScore < VoidMin || c.VoidScore > VoidMax {
		return ErrInvalidVoidScore
	}
	if c.Position != "" && !c.Position.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPosition, c.Position)
	}
	return nil
}

// BondLimit returns the maximum number of active bonds this character
// may hold.
func (c *CharacterState) BondLimit() int {
	if c.Freeborn {
		return BondLimitFreeborn
	}
	return BondLimitStandard
}

// Attribute returns a named attribute, or 0 when absent.
func (c *CharacterState) Attribute(name string) int {
	return c.Attributes[name]
}

// Skill returns a named skill value and whether the character has it at all.
// A missing skill means the check is unskilled, which is different from
// having the skill at 0.
func (c *CharacterState) Skill(name string) (int, bool) {
	v, ok := c.Skills[name]
	return v, ok
}

// ApplyDamage reduces health, flooring at 0.
func (c *CharacterState) ApplyDamage(amount int) {
	if amount <= 0 {
		return
	}
	c.Health -= amount
	if c.Health < 0 {
		c.Health = 0
	}
}

// AddCondition appends a condition unless an identical name is present.
func (c *CharacterState) AddCondition(cond Condition) {
	for _, existing := range c.Conditions {
		if existing.Name == cond.Name {
			return
		}
	}
	c.Conditions = append(c.Conditions, cond)
}

// RemoveCondition removes a condition by name.
func (c *CharacterState) RemoveCondition(name string) {
	for i, existing := range c.Conditions {
		if existing.Name == name {
			c.Conditions = append(c.Conditions[:i], c.Conditions[i+1:]...)
			return
		}
	}
}

// TickConditions decrements condition durations and drops expired ones.
// Called once per round during synthesis.
func (c *CharacterState) TickConditions() {
	kept := c.Conditions[:0]
	for _, cond := range c.Conditions {
		if cond.Duration < 0 {
			kept = append(kept, cond)
			continue
		}
		cond.Duration--
		if cond.Duration > 0 {
			kept = append(kept, cond)
		}
	}
	c.Conditions = kept
}

// Stunned reports whether the character currently loses its action.
func (c *CharacterState) Stunned() bool { return c.StunRounds > 0 }

// TickStun burns one round of stun at the end of a round.
func (c *CharacterState) TickStun() {
	if c.StunRounds > 0 {
		c.StunRounds--
	}
}

// CombatantID implements Combatant.
func (c *CharacterState) CombatantID() string { return c.ID }

// CombatantKind implements Combatant.
func (c *CharacterState) CombatantKind() Kind { return KindPlayer }

// IsActive implements Combatant. A claimed or downed character no longer
// participates in combat.
func (c *CharacterState) IsActive() bool {
	return c.Health > 0 && !c.VoidClaimed
}
