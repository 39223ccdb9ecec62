// Package dice implements the YAGS check resolution mechanics:
// ability computation, d20 rolls, margins, outcome tiers and initiative.
package dice

import (
	"errors"
	"math/rand"
)

// Difficulty tiers, ascending. Callers pick a tier by narrative context;
// combat defaults to Routine or Challenging.
const (
	Trivial       = 10
	Easy          = 15
	Routine       = 18
	Moderate      = 20
	Challenging   = 22
	Difficult     = 26
	VeryDifficult = 30
	Formidable    = 35
	Legendary     = 40
)

// Ritual difficulty tiers.
const (
	RitualMinor     = 16
	RitualStandard  = 18
	RitualMajor     = 20
	RitualForbidden = 26
)

// DifficultyTiers lists the named difficulty tiers in ascending order.
var DifficultyTiers = []int{
	Trivial, Easy, Routine, Moderate, Challenging,
	Difficult, VeryDifficult, Formidable, Legendary,
}

// UnskilledPenalty is subtracted from the raw attribute when a check has no
// supporting skill. The rulebook also documents a "pure attribute x4"
// unskilled formula; both are kept available and deliberately not unified.
// See Unskilled and UnskilledByAttribute.
const UnskilledPenalty = 5

// Unskilled returns the ability for an unskilled check. No floor: a weak
// attribute yields a negative ability.
func Unskilled(attribute int) int {
	return attribute - UnskilledPenalty
}

// UnskilledByAttribute is the alternative attribute-only formula documented
// in the rulebook. The resolver does not use it; rule variants may.
func UnskilledByAttribute(attribute int) int {
	return attribute * 4
}

// Tier is the named success/failure bucket derived from a roll's margin.
type Tier string

const (
	TierExceptional     Tier = "exceptional"
	TierExcellent       Tier = "excellent"
	TierGood            Tier = "good"
	TierModerate        Tier = "moderate"
	TierFailure         Tier = "failure"
	TierCriticalFailure Tier = "critical_failure"
)

// TierForMargin maps a margin to its outcome tier. Pure step function.
func TierForMargin(margin int) Tier {
	switch {
	case margin >= 15:
		return TierExceptional
	case margin >= 10:
		return TierExcellent
	case margin >= 5:
		return TierGood
	case margin >= 0:
		return TierModerate
	case margin > -10:
		return TierFailure
	default:
		return TierCriticalFailure
	}
}

// ErrInvalidRoll indicates a d20 value outside 1-20.
var ErrInvalidRoll = errors.New("roll must be between 1 and 20")

// ErrInvalidDifficulty indicates a non-positive difficulty.
var ErrInvalidDifficulty = errors.New("difficulty must be positive")

// Check describes an action check before any dice are rolled.
// SkillValue nil means the check is unskilled.
type Check struct {
	Attribute      string
	AttributeValue int
	Skill          string
	SkillValue     *int
	Difficulty     int
}

// Ability returns the fixed portion of the check total:
// attribute * skill when skilled, attribute - 5 when not.
func (c Check) Ability() int {
	if c.SkillValue == nil {
		return Unskilled(c.AttributeValue)
	}
	return c.AttributeValue * *c.SkillValue
}

// Resolution is the immutable outcome of a resolved check.
type Resolution struct {
	Attribute      string `json:"attribute"`
	AttributeValue int    `json:"attribute_value"`
	Skill          string `json:"skill,omitempty"`
	SkillValue     *int   `json:"skill_value,omitempty"`
	Ability        int    `json:"ability"`
	Difficulty     int    `json:"difficulty"`
	Roll           int    `json:"roll"`
	Total          int    `json:"total"`
	Margin         int    `json:"margin"`
	Success        bool   `json:"success"`
	Fumble         bool   `json:"fumble"`
	Tier           Tier   `json:"outcome_tier"`
}

// Evaluate deterministically resolves a check for a known d20 value.
//
// A roll of 1 is a fumble: the action fails regardless of ability and the
// margin is recorded as difficulty - ability - roll, unclamped, so narration
// can still show a near-miss magnitude.
func Evaluate(c Check, roll int) (Resolution, error) {
	if roll < 1 || roll > 20 {
		return Resolution{}, ErrInvalidRoll
	}
	if c.Difficulty <= 0 {
		return Resolution{}, ErrInvalidDifficulty
	}

	ability := c.Ability()
	res := Resolution{
		Attribute:      c.Attribute,
		AttributeValue: c.AttributeValue,
		Skill:          c.Skill,
		SkillValue:     c.SkillValue,
		Ability:        ability,
		Difficulty:     c.Difficulty,
		Roll:           roll,
	}

	if roll == 1 {
		res.Fumble = true
		res.Success = false
		res.Total = ability + roll
		res.Margin = c.Difficulty - ability - roll
		res.Tier = TierFailure
		if res.Margin >= 10 {
			res.Tier = TierCriticalFailure
		}
		return res, nil
	}

	res.Total = ability + roll
	res.Margin = res.Total - c.Difficulty
	res.Success = res.Margin >= 0
	res.Tier = TierForMargin(res.Margin)
	return res, nil
}

// Resolve rolls a d20 from the provided source and evaluates the check.
// The random source is injected so sessions are replayable from a seed.
func Resolve(rng *rand.Rand, c Check) (Resolution, error) {
	return Evaluate(c, rollD20(rng))
}

// Initiative computes a combatant's initiative for the round: agility*4 + d20.
// It orders simultaneous declarations within the resolve phase and never
// gates whether an action may be declared.
func Initiative(rng *rand.Rand, agility int) int {
	return agility*4 + rollD20(rng)
}

func rollD20(rng *rand.Rand) int {
	return rng.Intn(20) + 1
}
