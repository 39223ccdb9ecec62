package outcome

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwebster45206/yags-engine/pkg/character"
)

// Narration markers the fallback path understands. Amounts carry an
// optional sign; the trailing segment is an optional reason.
//
//	[VOID:kael:+2:ritual backlash]
//	[SOULCREDIT:kael:-1:broken oath]
//	[CLOCK:alarm:+1]
//	[CONDITION:kael:dazed]
//	[DAMAGE:tgt_x4k2:3]
//	[POSITION:kael:far]
var (
	voidMarkerRe       = regexp.MustCompile(`\[VOID:([^:\]]+):([+-]?\d+)(?::([^\]]*))?\]`)
	soulcreditMarkerRe = regexp.MustCompile(`\[(?:SOULCREDIT|SC):([^:\]]+):([+-]?\d+)(?::([^\]]*))?\]`)
	clockMarkerRe      = regexp.MustCompile(`\[CLOCK:([^:\]]+):([+-]?\d+)\]`)
	conditionMarkerRe  = regexp.MustCompile(`\[CONDITION:([^:\]]+):(-?)([^\]]+)\]`)
	damageMarkerRe     = regexp.MustCompile(`\[DAMAGE:([^:\]]+):(\d+)\]`)
	positionMarkerRe   = regexp.MustCompile(`\[POSITION:([^:\]]+):([a-z]+)\]`)
)

// Keyword cues for the low-confidence heuristic path.
var (
	voidCues   = []string{"void corruption", "the void claws", "void seeps"}
	damageCues = []string{"damage", "wound", "bleeding"}
)

// Parser extracts state deltas from resolution payloads.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Extract converts a resolution payload into deltas. The structured path is
// preferred and counts as success for telemetry; otherwise markers embedded
// in the narration are parsed, and failing that, natural-language cues are
// scanned for a low-confidence inference. Extract never fails: the worst
// case is an empty delta set with warnings.
func (p *Parser) Extract(payload ResolutionPayload) Extraction {
	ext := Extraction{}

	if payload.Structured != nil {
		ext.Deltas = *payload.Structured
		p.validateAgainstNarration(payload, &ext)
		ext.Completeness = p.completeness(payload, &ext, 1.0)
		return ext
	}

	ext.FallbackTriggered = true

	if payload.Narration == "" {
		ext.Warnings = append(ext.Warnings, "no structured resolution and no narration to parse")
		ext.Completeness = p.completeness(payload, &ext, 0)
		return ext
	}

	if p.extractMarkers(payload.Narration, &ext.Deltas) {
		p.validateAgainstNarration(payload, &ext)
		ext.Completeness = p.completeness(payload, &ext, 0.75)
		return ext
	}

	if p.extractHeuristics(payload, &ext) {
		ext.Warnings = append(ext.Warnings, "deltas inferred from narration keywords; low confidence")
		ext.Completeness = p.completeness(payload, &ext, 0.4)
		return ext
	}

	ext.Warnings = append(ext.Warnings, "narration contained no extractable state changes")
	ext.Completeness = p.completeness(payload, &ext, 0)

	if p.logger != nil {
		p.logger.Debug("Extraction found nothing",
			"actor", payload.ActorID,
			"narration_length", len(payload.Narration))
	}
	return ext
}

// ExtractMarkers parses the machine-readable markers in text into deltas,
// reporting whether any matched. Exposed for callers that compose structured
// payloads from marker-bearing text instead of parsing narration after the
// fact.
func ExtractMarkers(text string) (StateDeltas, bool) {
	var deltas StateDeltas
	p := Parser{}
	found := p.extractMarkers(text, &deltas)
	return deltas, found
}

// extractMarkers parses machine-readable markers out of prose. Returns true
// if any marker matched.
func (p *Parser) extractMarkers(narration string, deltas *StateDeltas) bool {
	found := false

	for _, m := range voidMarkerRe.FindAllStringSubmatch(narration, -1) {
		amount, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		deltas.VoidChanges = append(deltas.VoidChanges, VoidDelta{
			Character: m[1],
			Amount:    amount,
			Reason:    strings.TrimSpace(m[3]),
		})
		found = true
	}

	for _, m := range soulcreditMarkerRe.FindAllStringSubmatch(narration, -1) {
		amount, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		deltas.SoulcreditChanges = append(deltas.SoulcreditChanges, SoulcreditDelta{
			Character: m[1],
			Amount:    amount,
			Reason:    strings.TrimSpace(m[3]),
		})
		found = true
	}

	for _, m := range clockMarkerRe.FindAllStringSubmatch(narration, -1) {
		delta, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		deltas.ClockUpdates = append(deltas.ClockUpdates, ClockDelta{
			Clock: m[1],
			Delta: delta,
		})
		found = true
	}

	for _, m := range conditionMarkerRe.FindAllStringSubmatch(narration, -1) {
		deltas.Conditions = append(deltas.Conditions, ConditionDelta{
			Character: m[1],
			Condition: strings.TrimSpace(m[3]),
			Remove:    m[2] == "-",
		})
		found = true
	}

	for _, m := range damageMarkerRe.FindAllStringSubmatch(narration, -1) {
		amount, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		deltas.Damage = append(deltas.Damage, DamageDelta{
			Target: m[1],
			Amount: amount,
		})
		found = true
	}

	if m := positionMarkerRe.FindStringSubmatch(narration); m != nil {
		pos := character.Position(m[2])
		if pos.Valid() {
			deltas.PositionChange = &PositionDelta{Character: m[1], To: pos}
			found = true
		}
	}

	return found
}

// extractHeuristics infers deltas from natural-language cues. Returns true
// if anything was inferred.
func (p *Parser) extractHeuristics(payload ResolutionPayload, ext *Extraction) bool {
	lower := strings.ToLower(payload.Narration)
	found := false

	for _, cue := range voidCues {
		if strings.Contains(lower, cue) {
			ext.Deltas.VoidChanges = append(ext.Deltas.VoidChanges, VoidDelta{
				Character: payload.ActorID,
				Amount:    1,
				Reason:    "inferred from narration",
			})
			found = true
			break
		}
	}

	for _, cue := range damageCues {
		if strings.Contains(lower, cue) && payload.TargetID != "" {
			ext.Deltas.Damage = append(ext.Deltas.Damage, DamageDelta{
				Target: payload.TargetID,
				Amount: 1,
			})
			found = true
			break
		}
	}

	return found
}

// validateAgainstNarration cross-checks narration cues against the
// extracted deltas and records schema warnings.
func (p *Parser) validateAgainstNarration(payload ResolutionPayload, ext *Extraction) {
	lower := strings.ToLower(payload.Narration)

	if len(ext.Deltas.Damage) == 0 {
		for _, cue := range damageCues {
			if strings.Contains(lower, cue) {
				ext.Warnings = append(ext.Warnings,
					"narration mentions damage but no damage delta present")
				break
			}
		}
	}
	if len(ext.Deltas.VoidChanges) == 0 && strings.Contains(lower, "void corruption") {
		ext.Warnings = append(ext.Warnings,
			"narration mentions void corruption but no void delta present")
	}
}

// completeness scores how much of the expected payload schema was
// populated: the dice resolution, the narration, and the deltas weighted by
// extraction confidence.
func (p *Parser) completeness(payload ResolutionPayload, ext *Extraction, deltaConfidence float64) float64 {
	score := 0.0
	if payload.Resolution != nil {
		score += 0.4
	}
	if payload.Narration != "" {
		score += 0.2
	}
	if !ext.Deltas.IsEmpty() {
		score += 0.4 * deltaConfidence
	}
	if score > 1 {
		score = 1
	}
	return score
}
