// Package runner drives sessions end to end: it collects declarations from
// agent services, feeds the round orchestrator, and produces the final
// event log. The batch runner layers Success@N sampling on top.
package runner

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/yags-engine/internal/config"
	"github.com/jwebster45206/yags-engine/internal/services"
	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/clock"
	"github.com/jwebster45206/yags-engine/pkg/eventlog"
	"github.com/jwebster45206/yags-engine/pkg/outcome"
	"github.com/jwebster45206/yags-engine/pkg/session"
	"github.com/jwebster45206/yags-engine/pkg/textfilter"
)

// defaultDeclarationTimeout bounds how long one agent may take to declare
// before its action converts to a pass.
const defaultDeclarationTimeout = 30 * time.Second

// ClockSpec describes one scene clock in a scenario.
type ClockSpec struct {
	Name      string          `json:"name"`
	MaxTicks  int             `json:"max_ticks"`
	Semantics clock.Semantics `json:"semantics"`
}

// Scenario is the static setup for a session run.
type Scenario struct {
	Name           string                            `json:"name"`
	Characters     []*character.CharacterState       `json:"characters"`
	Enemies        []*character.EnemySpec            `json:"enemies,omitempty"`
	Clocks         []ClockSpec                       `json:"clocks,omitempty"`
	ObjectiveClock string                            `json:"objective_clock,omitempty"`
	EnemyTemplates map[string]*character.EnemySpec   `json:"enemy_templates,omitempty"`
	// Seed overrides the configured seed for this run. 0 defers to config.
	Seed int64 `json:"seed,omitempty"`
}

// Result is the outcome of one completed session.
type Result struct {
	SessionID uuid.UUID       `json:"session_id"`
	Outcome   session.Outcome `json:"outcome"`
	Rounds    int             `json:"rounds"`
	TimedOut  bool            `json:"timed_out,omitempty"`

	Log *eventlog.Log `json:"-"`
}

// Runner runs sessions against a set of agent services and a narrator.
type Runner struct {
	cfg      *config.Config
	narrator services.NarratorService
	sink     eventlog.Sink
	filter   *textfilter.Scrubber

	agents       map[string]services.AgentService
	defaultAgent services.AgentService

	declTimeout time.Duration
	log         *slog.Logger
}

// New creates a runner. sink may be nil to disable event streaming.
func New(cfg *config.Config, narrator services.NarratorService, sink eventlog.Sink, log *slog.Logger) *Runner {
	r := &Runner{
		cfg:         cfg,
		narrator:    narrator,
		sink:        sink,
		agents:      make(map[string]services.AgentService),
		declTimeout: defaultDeclarationTimeout,
		log:         log,
	}
	if cfg.ContentFilter {
		r.filter = textfilter.NewScrubber()
	}
	return r
}

// RegisterAgent binds an agent service to a combatant id.
func (r *Runner) RegisterAgent(id string, agent services.AgentService) {
	r.agents[id] = agent
}

// SetDefaultAgent sets the agent used for combatants with no explicit
// binding, typically enemy controllers.
func (r *Runner) SetDefaultAgent(agent services.AgentService) {
	r.defaultAgent = agent
}

// SetDeclarationTimeout overrides the per-agent declaration deadline.
func (r *Runner) SetDeclarationTimeout(d time.Duration) {
	r.declTimeout = d
}

// Run executes one session to termination. A cancelled or expired context
// aborts the run; the partial log is still returned with the error.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	seed := sc.Seed
	if seed == 0 {
		seed = r.cfg.RandomSeed
	}
	if seed == 0 {
		seed = entropySeed()
	}

	o := session.New(session.Config{
		MaxRounds:           r.cfg.MaxRounds,
		AnonymizedTargeting: r.cfg.AnonymizedTargeting,
		Seed:                seed,
	}, r.sink, r.log)

	for _, c := range sc.Characters {
		if err := o.AddCharacter(c); err != nil {
			return nil, fmt.Errorf("scenario setup: %w", err)
		}
	}
	for name, spec := range sc.EnemyTemplates {
		o.RegisterEnemyTemplate(name, spec)
	}
	for _, cs := range sc.Clocks {
		if _, err := o.Clocks.Add(cs.Name, cs.MaxTicks, cs.Semantics); err != nil {
			return nil, fmt.Errorf("scenario setup: %w", err)
		}
	}
	if sc.ObjectiveClock != "" {
		o.SetObjectiveClock(sc.ObjectiveClock)
	}

	if err := o.Start(ctx); err != nil {
		return nil, err
	}
	for _, spec := range sc.Enemies {
		if _, err := o.SpawnEnemy(ctx, spec); err != nil {
			return nil, fmt.Errorf("scenario setup: %w", err)
		}
	}

	narrator := r.wrapNarrator()
	result := &Result{SessionID: o.SessionID(), Log: o.Log()}

	r.log.Info("Session starting",
		"session_id", o.SessionID().String(),
		"scenario", sc.Name,
		"seed", seed)

	for o.Phase() != session.PhaseTerminal {
		if err := ctx.Err(); err != nil {
			result.TimedOut = true
			result.Rounds = o.Round()
			return result, fmt.Errorf("session aborted: %w", err)
		}

		if err := r.runRound(ctx, o, narrator); err != nil {
			result.Rounds = o.Round()
			return result, err
		}
	}

	result.Outcome = o.Outcome()
	result.Rounds = o.Round()

	r.log.Info("Session finished",
		"session_id", o.SessionID().String(),
		"outcome", string(result.Outcome),
		"rounds", result.Rounds)

	return result, nil
}

// runRound drives one declare/resolve/synthesize cycle.
func (r *Runner) runRound(ctx context.Context, o *session.Orchestrator, narrator session.Narrator) error {
	if err := o.BeginRound(ctx); err != nil {
		return err
	}

	for _, d := range r.collectDeclarations(ctx, o) {
		if err := o.Declare(ctx, d); err != nil {
			return err
		}
	}
	if err := o.CompleteDeclarations(); err != nil {
		return err
	}
	if err := o.Resolve(ctx, narrator); err != nil {
		return err
	}
	_, err := o.Synthesize(ctx)
	return err
}

// collectDeclarations queries every eligible agent concurrently. An agent
// error or deadline converts that agent's action to a pass; the round never
// stalls on one slow agent.
func (r *Runner) collectDeclarations(ctx context.Context, o *session.Orchestrator) []session.Declaration {
	pending := o.MissingDeclarations()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		decls = make([]session.Declaration, 0, len(pending))
	)

	for _, agentID := range pending {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()

			declCtx, cancel := context.WithTimeout(ctx, r.declTimeout)
			defer cancel()

			d, err := r.agentFor(agentID).DeclareAction(declCtx, services.DeclarationRequest{
				SessionID: o.SessionID(),
				Round:     o.Round(),
				AgentID:   agentID,
				Targets:   o.VisibleTargets(agentID),
				Clocks:    o.Clocks.All(),
			})
			if err != nil {
				r.log.Warn("Agent declaration failed, converting to pass",
					"agent", agentID,
					"error", err)
				d = session.Declaration{AgentID: agentID, Pass: true}
			}
			// The declaration speaks for the agent it was requested from.
			d.AgentID = agentID

			mu.Lock()
			decls = append(decls, d)
			mu.Unlock()
		}(agentID)
	}
	wg.Wait()

	// Stable submission order keeps seeded runs replayable.
	sort.Slice(decls, func(i, j int) bool { return decls[i].AgentID < decls[j].AgentID })
	return decls
}

func (r *Runner) agentFor(id string) services.AgentService {
	if agent, ok := r.agents[id]; ok {
		return agent
	}
	if r.defaultAgent != nil {
		return r.defaultAgent
	}
	return passAgent{}
}

// wrapNarrator applies the content filter to narration when enabled.
func (r *Runner) wrapNarrator() session.Narrator {
	if r.filter == nil {
		return r.narrator
	}
	return &filteringNarrator{inner: r.narrator, filter: r.filter}
}

// passAgent declares a pass for every request, the fallback when no agent
// service is bound to a combatant.
type passAgent struct{}

func (passAgent) DeclareAction(_ context.Context, req services.DeclarationRequest) (session.Declaration, error) {
	return session.Declaration{AgentID: req.AgentID, Pass: true}, nil
}

// filteringNarrator scrubs narration through the profanity filter before it
// reaches the event log.
type filteringNarrator struct {
	inner  session.Narrator
	filter *textfilter.Scrubber
}

func (f *filteringNarrator) Narrate(ctx context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error) {
	payload, err := f.inner.Narrate(ctx, req)
	if err != nil {
		return payload, err
	}
	payload.Narration = f.filter.Scrub(payload.Narration)
	return payload, nil
}

// cloneCharacters deep-copies scenario characters so parallel sessions never
// share mutable state.
func cloneCharacters(in []*character.CharacterState) []*character.CharacterState {
	out := make([]*character.CharacterState, 0, len(in))
	for _, c := range in {
		clone := *c
		clone.Attributes = make(map[string]int, len(c.Attributes))
		for k, v := range c.Attributes {
			clone.Attributes[k] = v
		}
		clone.Skills = make(map[string]int, len(c.Skills))
		for k, v := range c.Skills {
			clone.Skills[k] = v
		}
		clone.Inventory = append([]string(nil), c.Inventory...)
		clone.Conditions = append([]character.Condition(nil), c.Conditions...)
		out = append(out, &clone)
	}
	return out
}

// entropySeed draws a non-deterministic seed from the OS entropy pool.
func entropySeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}
