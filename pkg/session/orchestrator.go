// Package session implements the round-based phase state machine that
// sequences agent declarations, resolution and synthesis, and is the single
// writer for all shared session state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/yags-engine/pkg/bond"
	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/clock"
	"github.com/jwebster45206/yags-engine/pkg/combat"
	"github.com/jwebster45206/yags-engine/pkg/dice"
	"github.com/jwebster45206/yags-engine/pkg/economy"
	"github.com/jwebster45206/yags-engine/pkg/eventlog"
	"github.com/jwebster45206/yags-engine/pkg/outcome"
)

// Declaration is one agent's declared action for the round.
type Declaration struct {
	AgentID string `json:"agent_id"`
	Action  string `json:"action"`
	// TargetID is an anonymized target id when targeting is enabled,
	// otherwise a real combatant id.
	TargetID string `json:"target_id,omitempty"`
	// Check describes the mechanical roll, nil for purely narrative actions.
	Check *dice.Check `json:"check,omitempty"`
	// Pass marks an explicit (or timeout-converted) pass.
	Pass bool `json:"pass,omitempty"`
}

// NarrationRequest is handed to the external collaborator that narrates a
// resolved action.
type NarrationRequest struct {
	SessionID   uuid.UUID
	Round       int
	Declaration Declaration
	Resolution  *dice.Resolution
}

// Narrator is the external LLM/DM collaborator that supplies narration and,
// preferably, structured deltas for each resolution.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (outcome.ResolutionPayload, error)
}

// Config holds the session-level knobs.
type Config struct {
	MaxRounds           int
	AnonymizedTargeting bool
	Seed                int64
}

// RoundSummary is the aggregate emitted during synthesis.
type RoundSummary struct {
	Round          int     `json:"round"`
	Attempts       int     `json:"attempts"`
	Successes      int     `json:"successes"`
	SuccessRate    float64 `json:"success_rate"`
	DamageDealt    int     `json:"damage_dealt"`
	DamageTaken    int     `json:"damage_taken"`
	VoidGained     int     `json:"void_gained"`
	VoidLost       int     `json:"void_lost"`
	ClocksAdvanced int     `json:"clocks_advanced"`
	ClocksFilled   int     `json:"clocks_filled"`
}

// followOn is a consequence detected during resolve and dispatched at the
// start of the next round, never mid-resolve.
type followOn struct {
	spawn        *character.EnemySpec
	defeatID     string
	defeatReason string
	storyAdvance string
	newClock     string
}

// Orchestrator drives one session. It is the only mutator of the economy,
// clock and bond state, and only during the resolve phase.
type Orchestrator struct {
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger

	characters map[string]*character.CharacterState
	charOrder  []string
	enemies    map[string]*character.Enemy
	enemyOrder []string
	templates  map[string]*character.EnemySpec

	Economy *economy.Ledger
	Clocks  *clock.Registry
	Bonds   *bond.Registry
	Targets *combat.Mapper
	Pool    *SharedPool

	parser *outcome.Parser
	log    *eventlog.Log

	phase   Phase
	round   int
	outcome Outcome

	objectiveClock string
	storyAdvances  []string

	declarations map[string]Declaration
	declOrder    []string
	pending      []followOn

	summary RoundSummary
}

// New creates an orchestrator for one session. sink may be nil.
func New(cfg Config, sink eventlog.Sink, logger *slog.Logger) *Orchestrator {
	sessionID := uuid.New()
	rng := rand.New(rand.NewSource(cfg.Seed))

	ledger := economy.NewLedger(logger)
	bonds := bond.NewRegistry(ledger, logger)
	targets := combat.NewMapper(rng, logger)
	targets.SetEnabled(cfg.AnonymizedTargeting)

	return &Orchestrator{
		cfg:          cfg,
		rng:          rng,
		logger:       logger,
		characters:   make(map[string]*character.CharacterState),
		enemies:      make(map[string]*character.Enemy),
		templates:    make(map[string]*character.EnemySpec),
		Economy:      ledger,
		Clocks:       clock.NewRegistry(logger),
		Bonds:        bonds,
		Targets:      targets,
		Pool:         NewSharedPool(),
		parser:       outcome.NewParser(logger),
		log:          eventlog.NewLog(sessionID, sink, logger),
		phase:        PhaseIdle,
		round:        0,
		declarations: make(map[string]Declaration),
	}
}

// SessionID returns this session's id.
func (o *Orchestrator) SessionID() uuid.UUID { return o.log.SessionID() }

// Log returns the session's event log.
func (o *Orchestrator) Log() *eventlog.Log { return o.log }

// Round returns the current round number.
func (o *Orchestrator) Round() int { return o.round }

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Outcome returns the terminal outcome, or OutcomeNone while running.
func (o *Orchestrator) Outcome() Outcome { return o.outcome }

// AddCharacter registers a player character before or between rounds.
func (o *Orchestrator) AddCharacter(c *character.CharacterState) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid character %s: %w", c.ID, err)
	}
	o.characters[c.ID] = c
	o.charOrder = append(o.charOrder, c.ID)
	o.Economy.Register(c)
	o.Bonds.RegisterCharacter(c)
	return nil
}

// RegisterEnemyTemplate registers a spawnable enemy template for
// [SPAWN_ENEMY:...] consequences.
func (o *Orchestrator) RegisterEnemyTemplate(name string, spec *character.EnemySpec) {
	o.templates[name] = spec
}

// SetObjectiveClock names the clock whose fill means mission success.
func (o *Orchestrator) SetObjectiveClock(name string) {
	o.objectiveClock = name
}

// StoryAdvances returns the narrative advances dispatched so far.
func (o *Orchestrator) StoryAdvances() []string { return o.storyAdvances }

// Start emits the session_start event. Round 0 is scenario setup; callers
// may declare and resolve setup actions in it or move straight to round 1
// with BeginRound.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.phase != PhaseIdle || o.round != 0 {
		return fmt.Errorf("%w: Start in phase %s round %d", ErrPhaseViolation, o.phase, o.round)
	}
	names := make([]string, 0, len(o.charOrder))
	for _, id := range o.charOrder {
		names = append(names, o.characters[id].Name)
	}
	o.log.Append(ctx, eventlog.EventSessionStart, 0, map[string]any{
		"characters":           names,
		"max_rounds":           o.cfg.MaxRounds,
		"anonymized_targeting": o.cfg.AnonymizedTargeting,
	})
	o.phase = PhaseDeclare
	return nil
}

// BeginRound advances to the next round, dispatching any follow-on events
// queued during the previous resolve phase.
func (o *Orchestrator) BeginRound(ctx context.Context) error {
	if o.phase == PhaseTerminal {
		return fmt.Errorf("%w: session already terminal", ErrPhaseViolation)
	}
	// Legal from Idle (post-synthesis) or from an empty round-0 declare.
	if o.phase == PhaseDeclare && (o.round != 0 || len(o.declarations) > 0) {
		return fmt.Errorf("%w: BeginRound during declare phase", ErrPhaseViolation)
	}
	if o.phase == PhaseResolve || o.phase == PhaseSynthesize {
		return fmt.Errorf("%w: BeginRound in phase %s", ErrPhaseViolation, o.phase)
	}

	o.round++
	o.declarations = make(map[string]Declaration)
	o.declOrder = nil
	o.summary = RoundSummary{Round: o.round}

	o.dispatchFollowOns(ctx)

	// Target ids are issued once per encounter. Later rounds only extend
	// the mapping for combatants that joined mid-combat; existing ids hold
	// until the session ends.
	if o.Targets.Enabled() {
		var err error
		if o.Targets.Assigned() {
			err = o.Targets.Extend(o.combatants())
		} else {
			_, err = o.Targets.Assign(o.combatants())
		}
		if err != nil && o.logger != nil {
			o.logger.Warn("Target assignment failed", "error", err)
		}
	}

	o.phase = PhaseDeclare
	if o.logger != nil {
		o.logger.Debug("Round started", "session_id", o.SessionID().String(), "round", o.round)
	}
	return nil
}

// Declare records one agent's declaration. Every eligible agent submits
// exactly one per round; the DM is not an agent and enemies declare through
// their controller.
func (o *Orchestrator) Declare(ctx context.Context, d Declaration) error {
	if o.phase != PhaseDeclare {
		return fmt.Errorf("%w: Declare in phase %s", ErrPhaseViolation, o.phase)
	}
	if !o.isEligible(d.AgentID) {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, d.AgentID)
	}
	if _, exists := o.declarations[d.AgentID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDeclaration, d.AgentID)
	}

	o.declarations[d.AgentID] = d
	o.declOrder = append(o.declOrder, d.AgentID)

	action := d.Action
	if d.Pass {
		action = "pass"
	}
	o.log.Append(ctx, eventlog.EventActionDeclaration, o.round, map[string]any{
		"character": d.AgentID,
		"action":    action,
		"pass":      d.Pass,
		"target":    d.TargetID,
	})
	return nil
}

// MissingDeclarations lists eligible agents that have not yet declared.
func (o *Orchestrator) MissingDeclarations() []string {
	var missing []string
	for _, id := range o.eligibleAgents() {
		if _, ok := o.declarations[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// CompleteDeclarations closes the declare phase. It fails unless every
// eligible agent has declared or passed; this barrier is the hard ordering
// invariant between declarations and resolutions.
func (o *Orchestrator) CompleteDeclarations() error {
	if o.phase != PhaseDeclare {
		return fmt.Errorf("%w: CompleteDeclarations in phase %s", ErrPhaseViolation, o.phase)
	}
	if missing := o.MissingDeclarations(); len(missing) > 0 {
		return fmt.Errorf("%w: waiting on %s", ErrIncompleteDeclarations, strings.Join(missing, ", "))
	}
	o.phase = PhaseResolve
	return nil
}

// Resolve processes every declaration in initiative order, committing the
// extracted deltas to shared state. A narrator failure or malformed payload
// degrades to heuristic extraction, never aborts the round.
func (o *Orchestrator) Resolve(ctx context.Context, narrator Narrator) error {
	if o.phase != PhaseResolve {
		return fmt.Errorf("%w: Resolve in phase %s", ErrPhaseViolation, o.phase)
	}

	for _, agentID := range o.initiativeOrder() {
		d := o.declarations[agentID]
		if d.Pass {
			continue
		}
		o.resolveOne(ctx, narrator, d)
	}

	o.phase = PhaseSynthesize
	return nil
}

// Synthesize emits the round summary and checks terminal conditions. It runs
// for every round that contained any action, including round 0.
func (o *Orchestrator) Synthesize(ctx context.Context) (RoundSummary, error) {
	if o.phase != PhaseSynthesize {
		return RoundSummary{}, fmt.Errorf("%w: Synthesize in phase %s", ErrPhaseViolation, o.phase)
	}

	s := o.summary
	if s.Attempts > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
	}
	o.summary = s

	o.log.Append(ctx, eventlog.EventRoundSummary, o.round, map[string]any{
		"success_rate":    s.SuccessRate,
		"attempts":        s.Attempts,
		"successes":       s.Successes,
		"damage_dealt":    s.DamageDealt,
		"damage_taken":    s.DamageTaken,
		"void_gained":     s.VoidGained,
		"void_lost":       s.VoidLost,
		"clocks_advanced": s.ClocksAdvanced,
		"clocks_filled":   s.ClocksFilled,
	})

	// Stun from a void spike lasts through the round it landed in.
	for _, c := range o.characters {
		c.TickStun()
		c.TickConditions()
	}

	o.checkTerminal(ctx)
	if o.phase != PhaseTerminal {
		o.phase = PhaseIdle
	}
	return s, nil
}

// resolveOne turns a single declaration into a resolution, extraction and
// state commit.
func (o *Orchestrator) resolveOne(ctx context.Context, narrator Narrator, d Declaration) {
	if c, ok := o.characters[d.AgentID]; ok && c.Stunned() {
		// Void spike stun: the action is lost.
		o.log.Append(ctx, eventlog.EventActionResolution, o.round, map[string]any{
			"agent":   d.AgentID,
			"roll":    nil,
			"stunned": true,
		})
		return
	}

	var res *dice.Resolution
	if d.Check != nil {
		r, err := dice.Resolve(o.rng, *d.Check)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("Invalid check in declaration",
					"agent", d.AgentID, "error", err)
			}
		} else {
			res = &r
			o.summary.Attempts++
			if r.Success {
				o.summary.Successes++
			}
		}
	}

	payload := outcome.ResolutionPayload{ActorID: d.AgentID, TargetID: d.TargetID, Resolution: res}
	if narrator != nil {
		p, err := narrator.Narrate(ctx, NarrationRequest{
			SessionID:   o.SessionID(),
			Round:       o.round,
			Declaration: d,
			Resolution:  res,
		})
		if err != nil {
			if o.logger != nil {
				o.logger.Error("Narrator failed; falling back to empty extraction",
					"agent", d.AgentID, "error", err)
			}
		} else {
			payload = p
			if payload.ActorID == "" {
				payload.ActorID = d.AgentID
			}
			if payload.Resolution == nil {
				payload.Resolution = res
			}
			if payload.TargetID == "" {
				payload.TargetID = d.TargetID
			}
		}
	}

	ext := o.parser.Extract(payload)
	econData, clockData, effects := o.commit(ctx, d, ext.Deltas)

	rollData := map[string]any(nil)
	if res != nil {
		rollData = map[string]any{
			"attr":   res.AttributeValue,
			"skill":  res.SkillValue,
			"d20":    res.Roll,
			"total":  res.Total,
			"dc":     res.Difficulty,
			"margin": res.Margin,
			"tier":   string(res.Tier),
			"fumble": res.Fumble,
		}
	}
	o.log.Append(ctx, eventlog.EventActionResolution, o.round, map[string]any{
		"agent":              d.AgentID,
		"action":             d.Action,
		"roll":               rollData,
		"economy":            econData,
		"clocks":             clockData,
		"effects":            effects,
		"narration":          payload.Narration,
		"fallback_triggered": ext.FallbackTriggered,
		"warnings":           ext.Warnings,
		"completeness":       ext.Completeness,
	})

	if c, ok := o.characters[d.AgentID]; ok {
		o.logCharacterState(ctx, c)
	}
}

// commit applies extracted deltas to the economy, clocks, bonds, conditions
// and combatants. Unknown references are logged and skipped, never fatal.
func (o *Orchestrator) commit(ctx context.Context, d Declaration, deltas outcome.StateDeltas) (map[string]any, []map[string]any, []string) {
	econ := map[string]any{
		"void_delta":       0,
		"soulcredit_delta": 0,
		"sources":          []string{},
	}
	sources := make([]string, 0)
	var clockData []map[string]any
	var effects []string

	for _, vc := range deltas.VoidChanges {
		change, err := o.Economy.AddVoid(vc.Character, vc.Amount, vc.Reason)
		if err != nil {
			o.warnSkip("void change", vc.Character, err)
			continue
		}
		econ["void_delta"] = econ["void_delta"].(int) + vc.Amount
		sources = append(sources, vc.Reason)
		if vc.Amount > 0 {
			o.summary.VoidGained += change.NewScore - change.OldScore
		} else {
			o.summary.VoidLost += change.OldScore - change.NewScore
		}
		// Re-evaluate dormancy in both directions: a recovery below the
		// threshold reactivates bonds.
		o.Bonds.RefreshDormancy(vc.Character)
		if change.Spike {
			o.log.Append(ctx, eventlog.EventVoidSpike, o.round, map[string]any{
				"character": vc.Character,
				"amount":    vc.Amount,
				"new_score": change.NewScore,
				"threshold": string(change.Threshold),
			})
		}
	}

	for _, sc := range deltas.SoulcreditChanges {
		if _, err := o.Economy.AddSoulcredit(sc.Character, sc.Amount, sc.Reason); err != nil {
			o.warnSkip("soulcredit change", sc.Character, err)
			continue
		}
		econ["soulcredit_delta"] = econ["soulcredit_delta"].(int) + sc.Amount
		sources = append(sources, sc.Reason)
	}
	econ["sources"] = sources

	for _, cu := range deltas.ClockUpdates {
		var update clock.Update
		var err error
		if cu.Delta < 0 {
			update, err = o.Clocks.Regress(cu.Clock, -cu.Delta, cu.Reason)
		} else {
			update, err = o.Clocks.Advance(cu.Clock, cu.Delta, cu.Reason)
		}
		if err != nil {
			o.warnSkip("clock update", cu.Clock, err)
			continue
		}
		o.summary.ClocksAdvanced++
		data := map[string]any{
			"clock_name": update.Name,
			"old_value":  update.Old,
			"new_value":  update.New,
			"maximum":    update.Max,
			"filled":     update.Filled,
			"reason":     update.Reason,
		}
		if update.Consequence != nil {
			o.summary.ClocksFilled++
			data["consequence"] = map[string]any{
				"kind": string(update.Consequence.Kind),
				"arg":  update.Consequence.Arg,
			}
			o.queueConsequence(*update.Consequence)
		}
		clockData = append(clockData, data)
		o.log.Append(ctx, eventlog.EventClockAdvancement, o.round, data)
	}

	for _, cd := range deltas.Conditions {
		c, ok := o.characters[cd.Character]
		if !ok {
			o.warnSkip("condition", cd.Character, economy.ErrCharacterNotFound)
			continue
		}
		if cd.Remove {
			c.RemoveCondition(cd.Condition)
			effects = append(effects, "-"+cd.Condition)
			continue
		}
		duration := cd.Duration
		if duration == 0 {
			duration = 1
		}
		c.AddCondition(character.Condition{Name: cd.Condition, Duration: duration})
		effects = append(effects, cd.Condition)
	}

	for _, dmg := range deltas.Damage {
		effects = append(effects, o.applyDamage(dmg))
	}

	if pc := deltas.PositionChange; pc != nil {
		if c, ok := o.characters[pc.Character]; ok && pc.To.Valid() {
			c.Position = pc.To
			effects = append(effects, "position:"+string(pc.To))
		} else {
			o.warnSkip("position change", pc.Character, economy.ErrCharacterNotFound)
		}
	}

	return econ, clockData, effects
}

// applyDamage routes damage through the target mapper when the reference is
// an anonymized id, otherwise to the combatant directly.
func (o *Orchestrator) applyDamage(dmg outcome.DamageDelta) string {
	targetID := dmg.Target
	if o.Targets.Enabled() && strings.HasPrefix(targetID, "tgt_") {
		c, err := o.Targets.Resolve(targetID)
		if err != nil {
			o.warnSkip("damage", targetID, err)
			return "damage:unresolved"
		}
		targetID = c.CombatantID()
	}

	if e, ok := o.enemies[targetID]; ok {
		if e.ApplyDamage(dmg.Amount) {
			o.pending = append(o.pending, followOn{
				defeatID:     targetID,
				defeatReason: "damage",
			})
		}
		o.summary.DamageDealt += dmg.Amount
		return fmt.Sprintf("damage:%s:%d", targetID, dmg.Amount)
	}
	if c, ok := o.characters[targetID]; ok {
		c.ApplyDamage(dmg.Amount)
		o.summary.DamageTaken += dmg.Amount
		return fmt.Sprintf("damage:%s:%d", targetID, dmg.Amount)
	}

	o.warnSkip("damage", targetID, combat.ErrTargetNotFound)
	return "damage:unresolved"
}

// queueConsequence schedules a filled clock's marker for the next round.
func (o *Orchestrator) queueConsequence(cons clock.Consequence) {
	switch cons.Kind {
	case clock.ConsequenceSpawnEnemy:
		spec := o.templates[cons.Arg]
		if spec == nil {
			spec = &character.EnemySpec{Name: cons.Arg, HP: 6, AC: 12}
		}
		instance := *spec
		instance.ID = fmt.Sprintf("%s_%s", cons.Arg, uuid.New().String()[:8])
		o.pending = append(o.pending, followOn{spawn: &instance})
	case clock.ConsequenceAdvanceStory:
		o.pending = append(o.pending, followOn{storyAdvance: cons.Arg})
	case clock.ConsequenceNewClock:
		o.pending = append(o.pending, followOn{newClock: cons.Arg})
	}
}

// dispatchFollowOns applies the consequences queued by the previous round.
func (o *Orchestrator) dispatchFollowOns(ctx context.Context) {
	pending := o.pending
	o.pending = nil

	for _, f := range pending {
		switch {
		case f.spawn != nil:
			e, err := character.NewEnemy(f.spawn)
			if err != nil {
				o.warnSkip("enemy spawn", f.spawn.Name, err)
				continue
			}
			o.enemies[e.CombatantID()] = e
			o.enemyOrder = append(o.enemyOrder, e.CombatantID())
			o.log.Append(ctx, eventlog.EventEnemySpawn, o.round, map[string]any{
				"enemy": e.CombatantID(),
				"name":  f.spawn.Name,
				"stats": map[string]any{"hp": f.spawn.HP, "ac": f.spawn.AC},
			})
		case f.defeatID != "":
			o.log.Append(ctx, eventlog.EventEnemyDefeat, o.round, map[string]any{
				"enemy":         f.defeatID,
				"defeat_reason": f.defeatReason,
			})
		case f.storyAdvance != "":
			o.storyAdvances = append(o.storyAdvances, f.storyAdvance)
			if o.logger != nil {
				o.logger.Info("Story advanced", "marker", f.storyAdvance)
			}
		case f.newClock != "":
			name, maxTicks := parseNewClockArg(f.newClock)
			if _, err := o.Clocks.Add(name, maxTicks, clock.Semantics{}); err != nil {
				o.warnSkip("new clock", name, err)
			}
		}
	}
}

// SpawnEnemy adds an enemy immediately, for scenario setup.
func (o *Orchestrator) SpawnEnemy(ctx context.Context, spec *character.EnemySpec) (*character.Enemy, error) {
	e, err := character.NewEnemy(spec)
	if err != nil {
		return nil, err
	}
	o.enemies[e.CombatantID()] = e
	o.enemyOrder = append(o.enemyOrder, e.CombatantID())
	o.log.Append(ctx, eventlog.EventEnemySpawn, o.round, map[string]any{
		"enemy": e.CombatantID(),
		"name":  spec.Name,
		"stats": map[string]any{"hp": spec.HP, "ac": spec.AC},
	})
	return e, nil
}

// End closes the session with an explicit outcome if it has not already
// terminated.
func (o *Orchestrator) End(ctx context.Context, result Outcome) {
	if o.phase == PhaseTerminal {
		return
	}
	o.terminate(ctx, result)
}

func (o *Orchestrator) terminate(ctx context.Context, result Outcome) {
	o.flushDefeats(ctx)
	o.outcome = result
	o.phase = PhaseTerminal
	o.Targets.Clear()
	o.log.Append(ctx, eventlog.EventSessionEnd, o.round, map[string]any{
		"outcome": string(result),
		"rounds":  o.round,
	})
	if o.logger != nil {
		o.logger.Info("Session ended",
			"session_id", o.SessionID().String(),
			"outcome", string(result),
			"rounds", o.round)
	}
}

// flushDefeats writes out defeat records still queued for a round that will
// never start. Other pending follow-ons die with the session; defeats are
// part of the permanent record.
func (o *Orchestrator) flushDefeats(ctx context.Context) {
	pending := o.pending
	o.pending = nil
	for _, f := range pending {
		if f.defeatID == "" {
			continue
		}
		o.log.Append(ctx, eventlog.EventEnemyDefeat, o.round, map[string]any{
			"enemy":         f.defeatID,
			"defeat_reason": f.defeatReason,
		})
	}
}

// checkTerminal evaluates the terminal conditions at the end of synthesis.
func (o *Orchestrator) checkTerminal(ctx context.Context) {
	if o.objectiveClock != "" {
		if c, err := o.Clocks.Get(o.objectiveClock); err == nil && c.Filled() {
			o.terminate(ctx, OutcomeSuccess)
			return
		}
	}

	if len(o.characters) > 0 {
		allDown := true
		for _, c := range o.characters {
			if c.IsActive() {
				allDown = false
				break
			}
		}
		if allDown {
			o.terminate(ctx, OutcomeDefeat)
			return
		}
	}

	if o.objectiveClock == "" && len(o.enemyOrder) > 0 {
		allDefeated := true
		for _, id := range o.enemyOrder {
			if o.enemies[id].IsActive() {
				allDefeated = false
				break
			}
		}
		if allDefeated {
			o.terminate(ctx, OutcomeSuccess)
			return
		}
	}

	if o.cfg.MaxRounds > 0 && o.round >= o.cfg.MaxRounds {
		o.terminate(ctx, OutcomeMaxRounds)
	}
}

// logCharacterState snapshots a character after its resolution.
func (o *Orchestrator) logCharacterState(ctx context.Context, c *character.CharacterState) {
	conditions := make([]string, 0, len(c.Conditions))
	for _, cond := range c.Conditions {
		conditions = append(conditions, cond.Name)
	}
	o.log.Append(ctx, eventlog.EventCharacterState, o.round, map[string]any{
		"character":  c.ID,
		"name":       c.Name,
		"health":     c.Health,
		"void_score": c.VoidScore,
		"soulcredit": c.Soulcredit,
		"position":   string(c.Position),
		"conditions": conditions,
	})
}

// initiativeOrder sorts this round's declarants by initiative, descending,
// with declaration order breaking ties.
func (o *Orchestrator) initiativeOrder() []string {
	type entry struct {
		id         string
		initiative int
		order      int
	}
	entries := make([]entry, 0, len(o.declOrder))
	for i, id := range o.declOrder {
		entries = append(entries, entry{
			id:         id,
			initiative: dice.Initiative(o.rng, o.agility(id)),
			order:      i,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].initiative != entries[j].initiative {
			return entries[i].initiative > entries[j].initiative
		}
		return entries[i].order < entries[j].order
	})
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.id)
	}
	return out
}

func (o *Orchestrator) agility(id string) int {
	if c, ok := o.characters[id]; ok {
		return c.Attribute("agility")
	}
	if e, ok := o.enemies[id]; ok {
		return e.Agility()
	}
	return 0
}

// VisibleTargets lists the target references an agent may declare against:
// anonymized ids when targeting is masked, real combatant ids otherwise.
// The agent itself is never in the list.
func (o *Orchestrator) VisibleTargets(agentID string) []string {
	var out []string
	for _, c := range o.combatants() {
		if !c.IsActive() || c.CombatantID() == agentID {
			continue
		}
		if o.Targets.Enabled() {
			if id, err := o.Targets.TargetID(c.CombatantID()); err == nil {
				out = append(out, id)
			}
			continue
		}
		out = append(out, c.CombatantID())
	}
	return out
}

// eligibleAgents lists the combatants expected to declare this round.
func (o *Orchestrator) eligibleAgents() []string {
	var out []string
	for _, id := range o.charOrder {
		if o.characters[id].IsActive() {
			out = append(out, id)
		}
	}
	for _, id := range o.enemyOrder {
		if o.enemies[id].IsActive() {
			out = append(out, id)
		}
	}
	return out
}

func (o *Orchestrator) isEligible(id string) bool {
	for _, eligible := range o.eligibleAgents() {
		if eligible == id {
			return true
		}
	}
	return false
}

func (o *Orchestrator) combatants() []character.Combatant {
	var out []character.Combatant
	for _, id := range o.charOrder {
		out = append(out, o.characters[id])
	}
	for _, id := range o.enemyOrder {
		out = append(out, o.enemies[id])
	}
	return out
}

func (o *Orchestrator) warnSkip(what, ref string, err error) {
	if o.logger != nil {
		o.logger.Warn("Skipping "+what, "ref", ref, "error", err)
	}
}

// parseNewClockArg parses "name" or "name:max" consequence arguments.
func parseNewClockArg(arg string) (string, int) {
	maxTicks := 6
	name := arg
	if idx := strings.LastIndex(arg, ":"); idx > 0 {
		if n, err := strconv.Atoi(arg[idx+1:]); err == nil {
			name = arg[:idx]
			maxTicks = n
		}
	}
	return name, maxTicks
}
