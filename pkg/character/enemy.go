package character

import (
	"fmt"

	"github.com/jwebster45206/d20"
)

// EnemySpec is the serializable definition of an enemy, typically produced
// by a [SPAWN_ENEMY:...] clock consequence.
type EnemySpec struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	HP         int            `json:"hp"`
	AC         int            `json:"ac"`
	Attributes map[string]int `json:"attributes,omitempty"`
	CombatMods map[string]int `json:"combat_modifiers,omitempty"`
	Position   Position       `json:"position,omitempty"`
}

// Enemy is the runtime representation of a hostile combatant. Combat
// bookkeeping (HP, AC, attributes) is carried by a d20.Actor built from
// the spec.
type Enemy struct {
	Spec  *EnemySpec
	Actor *d20.Actor

	defeated bool
}

// NewEnemy builds an Enemy and its d20.Actor from a spec.
func NewEnemy(spec *EnemySpec) (*Enemy, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("enemy id cannot be empty")
	}
	if spec.HP <= 0 {
		return nil, fmt.Errorf("enemy %s must have positive hp", spec.ID)
	}
	if spec.Position == "" {
		spec.Position = PositionNear
	}

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.HP).
		WithAC(spec.AC).
		WithAttributes(spec.Attributes).
		WithCombatModifiers(spec.CombatMods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	return &Enemy{
		Spec:  spec,
		Actor: actor,
	}, nil
}

// HP returns the enemy's current hit points.
func (e *Enemy) HP() int {
	if e.defeated {
		return 0
	}
	return e.Actor.HP()
}

// ApplyDamage reduces the enemy's hit points and marks it defeated at 0.
// Returns true when this call defeated the enemy.
func (e *Enemy) ApplyDamage(amount int) bool {
	if amount <= 0 || e.defeated {
		return false
	}
	hp := e.Actor.HP() - amount
	if hp <= 0 {
		e.defeated = true
		return true
	}
	if err := e.Actor.SetHP(hp); err != nil {
		// The actor rejects the value; the defeat flag is still authoritative.
		e.defeated = true
		return true
	}
	return false
}

// Agility returns the enemy's agility attribute for initiative, or 0.
func (e *Enemy) Agility() int {
	if v, ok := e.Actor.Attribute("agility"); ok {
		return v
	}
	return 0
}

// CombatantID implements Combatant.
func (e *Enemy) CombatantID() string { return e.Spec.ID }

// CombatantKind implements Combatant.
func (e *Enemy) CombatantKind() Kind { return KindEnemy }

// IsActive implements Combatant.
func (e *Enemy) IsActive() bool { return !e.defeated }
