// Package combat provides the anonymized targeting layer: per-encounter
// bidirectional target-id assignment that masks combatant allegiance.
package combat

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/jwebster45206/yags-engine/pkg/character"
)

// Target id format: "tgt_" plus 4 lowercase-alphanumeric characters.
const (
	targetIDPrefix = "tgt_"
	targetIDLen    = 4
	maxIDRetries   = 10
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ErrTargetNotFound indicates an id lookup failed, including every lookup
// while anonymized targeting is disabled (never fall back to real ids).
var ErrTargetNotFound = errors.New("target not found")

// ErrIDCollision indicates id generation exhausted its retries for one
// combatant. That single assignment is dropped; the batch continues.
var ErrIDCollision = errors.New("target id generation exhausted retries")

// Mapper assigns anonymized target ids to combatants for one encounter.
// Mutations happen only at combat start/end; reads are lock-free in between.
type Mapper struct {
	enabled bool
	rng     *rand.Rand
	byID    map[string]character.Combatant
	byAgent map[string]string
	logger  *slog.Logger
}

// NewMapper creates a disabled mapper. The random source is injected for
// replayable shuffles and id generation.
func NewMapper(rng *rand.Rand, logger *slog.Logger) *Mapper {
	return &Mapper{
		rng:     rng,
		byID:    make(map[string]character.Combatant),
		byAgent: make(map[string]string),
		logger:  logger,
	}
}

// Enabled reports whether anonymized targeting is on.
func (m *Mapper) Enabled() bool { return m.enabled }

// SetEnabled toggles the mode. Any toggle clears all mappings.
func (m *Mapper) SetEnabled(enabled bool) {
	m.enabled = enabled
	m.clear()
}

// Assign pools the eligible combatants, shuffles them to destroy positional
// correlation, and issues a fresh id to each. Prior mappings are fully
// cleared first, so a combat restart carries no id over. A combatant whose
// id generation collides 10 times is skipped and logged, not fatal.
func (m *Mapper) Assign(combatants []character.Combatant) (map[string]character.Combatant, error) {
	if !m.enabled {
		return nil, fmt.Errorf("anonymized targeting disabled")
	}
	m.clear()

	pool := make([]character.Combatant, 0, len(combatants))
	for _, c := range combatants {
		if c.IsActive() {
			pool = append(pool, c)
		}
	}
	m.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for _, c := range pool {
		id, err := m.generateID()
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("Skipping target id assignment",
					"combatant", c.CombatantID(),
					"error", err)
			}
			continue
		}
		m.byID[id] = c
		m.byAgent[c.CombatantID()] = id
	}

	out := make(map[string]character.Combatant, len(m.byID))
	for id, c := range m.byID {
		out[id] = c
	}
	return out, nil
}

// Assigned reports whether an encounter mapping is live.
func (m *Mapper) Assigned() bool { return len(m.byAgent) > 0 }

// Extend issues ids to combatants that joined after the encounter started.
// Existing mappings are never reissued; an id holds for the whole encounter.
func (m *Mapper) Extend(combatants []character.Combatant) error {
	if !m.enabled {
		return fmt.Errorf("anonymized targeting disabled")
	}
	for _, c := range combatants {
		if !c.IsActive() {
			continue
		}
		if _, mapped := m.byAgent[c.CombatantID()]; mapped {
			continue
		}
		id, err := m.generateID()
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("Skipping target id assignment",
					"combatant", c.CombatantID(),
					"error", err)
			}
			continue
		}
		m.byID[id] = c
		m.byAgent[c.CombatantID()] = id
	}
	return nil
}

// Resolve returns the combatant behind a target id.
func (m *Mapper) Resolve(id string) (character.Combatant, error) {
	if !m.enabled {
		return nil, ErrTargetNotFound
	}
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrTargetNotFound
	}
	return c, nil
}

// TargetID returns the anonymized id for an agent.
func (m *Mapper) TargetID(agentID string) (string, error) {
	if !m.enabled {
		return "", ErrTargetNotFound
	}
	id, ok := m.byAgent[agentID]
	if !ok {
		return "", ErrTargetNotFound
	}
	return id, nil
}

// IsPlayer reports whether a target id belongs to a player combatant.
func (m *Mapper) IsPlayer(id string) (bool, error) {
	c, err := m.Resolve(id)
	if err != nil {
		return false, err
	}
	return c.CombatantKind() == character.KindPlayer, nil
}

// IsEnemy reports whether a target id belongs to an enemy combatant.
func (m *Mapper) IsEnemy(id string) (bool, error) {
	c, err := m.Resolve(id)
	if err != nil {
		return false, err
	}
	return c.CombatantKind() == character.KindEnemy, nil
}

// Clear removes all mappings, for combat end.
func (m *Mapper) Clear() { m.clear() }

func (m *Mapper) clear() {
	m.byID = make(map[string]character.Combatant)
	m.byAgent = make(map[string]string)
}

func (m *Mapper) generateID() (string, error) {
	for attempt := 0; attempt < maxIDRetries; attempt++ {
		buf := make([]byte, targetIDLen)
		for i := range buf {
			buf[i] = idAlphabet[m.rng.Intn(len(idAlphabet))]
		}
		id := targetIDPrefix + string(buf)
		if _, exists := m.byID[id]; !exists {
			return id, nil
		}
	}
	return "", ErrIDCollision
}
