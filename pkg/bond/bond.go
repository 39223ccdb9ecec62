// Package bond manages leveled relationships between characters: formation,
// limits, ritual/defense bonuses, void-driven dormancy and sacrifice.
package bond

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/economy"
)

// Level bounds for a bond.
const (
	MinLevel = 1
	MaxLevel = 3
)

// Bonus values.
const (
	RitualAssistBonded  = 2 // bonded assistant on a ritual
	RitualAssistSkilled = 1 // skilled but unbonded assistant
	SoakBonded          = 1 // defending a bonded partner
)

// Status of a bond. A bond is Dormant iff either participant's void score is
// at or above the dormancy threshold.
type Status string

const (
	StatusActive  Status = "active"
	StatusDormant Status = "dormant"
)

// ErrBondLimit indicates a participant is at their bond limit.
var ErrBondLimit = errors.New("bond limit reached")

// ErrConsentRequired indicates both parties must consent to a bond.
var ErrConsentRequired = errors.New("both parties must consent")

// ErrBondNotFound indicates the bond is not in the registry.
var ErrBondNotFound = errors.New("bond not found")

// ErrSelfBond indicates a character cannot bond with itself.
var ErrSelfBond = errors.New("cannot form a bond with oneself")

// ErrDuplicateBond indicates the pair is already bonded.
var ErrDuplicateBond = errors.New("bond already exists between these characters")

// VoidReader supplies void scores for dormancy checks. Implemented by
// economy.Ledger.
type VoidReader interface {
	VoidScore(id string) (int, error)
}

var _ VoidReader = (*economy.Ledger)(nil)

// Bond is a leveled relationship between two characters. Level is monotonic
// non-decreasing; the bond is removed only by sacrifice.
type Bond struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Level  int    `json:"level"`
	Status Status `json:"status"`
}

// Involves reports whether id is a participant.
func (b *Bond) Involves(id string) bool {
	return b.A == id || b.B == id
}

// Partner returns the other participant, or "".
func (b *Bond) Partner(id string) string {
	switch id {
	case b.A:
		return b.B
	case b.B:
		return b.A
	default:
		return ""
	}
}

// SacrificeBoon is the opaque capability returned by a sacrifice. The
// mechanical effect is decided by the caller, not by this package.
type SacrificeBoon struct {
	Level        int       `json:"level"`
	Participants [2]string `json:"participants"`
}

// Registry tracks the bonds of one session.
type Registry struct {
	bonds  []*Bond
	limits map[string]int
	voids  VoidReader
	logger *slog.Logger
}

// NewRegistry creates an empty bond registry. voids may be nil, in which
// case dormancy refresh is a no-op.
func NewRegistry(voids VoidReader, logger *slog.Logger) *Registry {
	return &Registry{
		limits: make(map[string]int),
		voids:  voids,
		logger: logger,
	}
}

// SetLimit overrides the bond limit for a character. Characters default to
// the standard limit; register Freeborn characters with limit 1.
func (r *Registry) SetLimit(id string, limit int) {
	r.limits[id] = limit
}

// RegisterCharacter records the character's own limit (standard or Freeborn).
func (r *Registry) RegisterCharacter(c *character.CharacterState) {
	r.limits[c.ID] = c.BondLimit()
}

func (r *Registry) limit(id string) int {
	if l, ok := r.limits[id]; ok {
		return l
	}
	return character.BondLimitStandard
}

// Count returns the number of bonds involving id, active or dormant.
func (r *Registry) Count(id string) int {
	n := 0
	for _, b := range r.bonds {
		if b.Involves(id) {
			n++
		}
	}
	return n
}

// For returns all bonds involving id.
func (r *Registry) For(id string) []*Bond {
	var out []*Bond
	for _, b := range r.bonds {
		if b.Involves(id) {
			out = append(out, b)
		}
	}
	return out
}

// Between returns the bond between two characters, if any.
func (r *Registry) Between(a, b string) (*Bond, bool) {
	for _, bond := range r.bonds {
		if bond.Involves(a) && bond.Involves(b) {
			return bond, true
		}
	}
	return nil, false
}

// Form creates a new level-1 bond. Both parties must consent and neither may
// exceed their limit; a failed formation mutates nothing.
func (r *Registry) Form(a, b string, consentA, consentB bool) (*Bond, error) {
	if a == b {
		return nil, ErrSelfBond
	}
	if !consentA || !consentB {
		return nil, ErrConsentRequired
	}
	if _, exists := r.Between(a, b); exists {
		return nil, ErrDuplicateBond
	}
	if r.Count(a) >= r.limit(a) {
		return nil, fmt.Errorf("%w: %s", ErrBondLimit, a)
	}
	if r.Count(b) >= r.limit(b) {
		return nil, fmt.Errorf("%w: %s", ErrBondLimit, b)
	}

	bond := &Bond{A: a, B: b, Level: MinLevel, Status: StatusActive}
	r.refreshBond(bond)
	r.bonds = append(r.bonds, bond)

	if r.logger != nil {
		r.logger.Info("Bond formed", "a", a, "b", b)
	}
	return bond, nil
}

// AdvanceLevel raises a bond's level by one, capped at MaxLevel.
func (r *Registry) AdvanceLevel(b *Bond) error {
	if !r.contains(b) {
		return ErrBondNotFound
	}
	if b.Level < MaxLevel {
		b.Level++
	}
	return nil
}

// Sacrifice permanently removes the bond from both participants and returns
// the boon capability for the caller to apply.
func (r *Registry) Sacrifice(b *Bond) (SacrificeBoon, error) {
	for i, existing := range r.bonds {
		if existing == b {
			r.bonds = append(r.bonds[:i], r.bonds[i+1:]...)
			if r.logger != nil {
				r.logger.Info("Bond sacrificed", "a", b.A, "b", b.B, "level", b.Level)
			}
			return SacrificeBoon{
				Level:        b.Level,
				Participants: [2]string{b.A, b.B},
			}, nil
		}
	}
	return SacrificeBoon{}, ErrBondNotFound
}

// RefreshDormancy recomputes the status of every bond involving id.
// Called after void mutations.
func (r *Registry) RefreshDormancy(id string) {
	for _, b := range r.bonds {
		if b.Involves(id) {
			r.refreshBond(b)
		}
	}
}

func (r *Registry) refreshBond(b *Bond) {
	if r.voids == nil {
		return
	}
	b.Status = StatusActive
	for _, id := range []string{b.A, b.B} {
		score, err := r.voids.VoidScore(id)
		if err != nil {
			continue
		}
		if score >= economy.BondDormancyThreshold {
			b.Status = StatusDormant
			return
		}
	}
}

// AssistBonus is the contribution an assistant adds to the primary
// ritualist's ability total: +2 for an active bonded partner, +1 for a
// skilled but unbonded assistant, 0 otherwise.
func (r *Registry) AssistBonus(primary, assistant string, assistantSkilled bool) int {
	if b, ok := r.Between(primary, assistant); ok && b.Status == StatusActive {
		return RitualAssistBonded
	}
	if assistantSkilled {
		return RitualAssistSkilled
	}
	return 0
}

// SoakBonus is the extra Soak granted when defending a bonded partner,
// for that defense only.
func (r *Registry) SoakBonus(defender, protected string) int {
	if b, ok := r.Between(defender, protected); ok && b.Status == StatusActive {
		return SoakBonded
	}
	return 0
}

func (r *Registry) contains(b *Bond) bool {
	for _, existing := range r.bonds {
		if existing == b {
			return true
		}
	}
	return false
}
