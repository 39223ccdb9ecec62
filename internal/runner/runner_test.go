package runner

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/yags-engine/internal/config"
	"github.com/jwebster45206/yags-engine/internal/services"
	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/clock"
	"github.com/jwebster45206/yags-engine/pkg/dice"
	"github.com/jwebster45206/yags-engine/pkg/eventlog"
	"github.com/jwebster45206/yags-engine/pkg/outcome"
	"github.com/jwebster45206/yags-engine/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:    "test",
		MaxRounds:      5,
		SessionTimeout: time.Minute,
		MaxParallel:    2,
		RandomSeed:     42,
	}
}

func testScenario() Scenario {
	kael, err := character.NewCharacter("kael", "Kael")
	if err != nil {
		panic(err)
	}
	kael.Attributes = map[string]int{"agility": 3, "will": 4}
	kael.Skills = map[string]int{"stealth": 3}

	return Scenario{
		Name:       "infiltration",
		Characters: []*character.CharacterState{kael},
		Clocks: []ClockSpec{{
			Name:     "extraction",
			MaxTicks: 3,
			Semantics: clock.Semantics{
				FilledConsequence: "[ADVANCE_STORY:extraction_complete]",
			},
		}},
		ObjectiveClock: "extraction",
	}
}

// clockNarrator advances the objective clock on every successful action.
func clockNarrator() *services.MockNarrator {
	narrator := services.NewMockNarrator()
	narrator.NarrateFunc = func(_ context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error) {
		payload := outcome.ResolutionPayload{
			ActorID:    req.Declaration.AgentID,
			Narration:  "Progress toward the exit.",
			Resolution: req.Resolution,
			Structured: &outcome.StateDeltas{},
		}
		if req.Resolution != nil && req.Resolution.Success {
			payload.Structured.ClockUpdates = []outcome.ClockDelta{{Clock: "extraction", Delta: 1}}
		}
		return payload, nil
	}
	return narrator
}

func stealthPlaybook() []services.ScriptedAction {
	return []services.ScriptedAction{{
		Action: "move toward the extraction point",
		Check: &dice.Check{
			Attribute:      "agility",
			AttributeValue: 3,
			Skill:          "stealth",
			SkillValue:     intPtr(3),
			Difficulty:     dice.Trivial,
		},
	}}
}

func intPtr(n int) *int { return &n }

func TestRunner_RunToCompletion(t *testing.T) {
	r := New(testConfig(), clockNarrator(), nil, testLogger())
	r.RegisterAgent("kael", services.NewScriptedAgent(stealthPlaybook()))

	result, err := r.Run(context.Background(), testScenario())
	require.NoError(t, err)
	require.NotNil(t, result)

	// Ability 9 against difficulty 10 fails only on very low rolls, so five
	// rounds are plenty to fill a three-tick clock.
	assert.NotEqual(t, session.OutcomeNone, result.Outcome)
	assert.Greater(t, result.Rounds, 0)
	assert.LessOrEqual(t, result.Rounds, 5)

	errs := eventlog.NewValidator().Validate(result.Log.Events())
	assert.Empty(t, errs)
}

func TestRunner_SeededRunsAreReplayable(t *testing.T) {
	run := func() []eventlog.Event {
		r := New(testConfig(), clockNarrator(), nil, testLogger())
		r.RegisterAgent("kael", services.NewScriptedAgent(stealthPlaybook()))
		result, err := r.Run(context.Background(), testScenario())
		require.NoError(t, err)
		return result.Log.Events()
	}

	a := run()
	b := run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Type, b[i].Type, "event %d", i)
		assert.Equal(t, a[i].Round, b[i].Round, "event %d", i)
	}
}

func TestRunner_SlowAgentConvertsToPass(t *testing.T) {
	slow := services.NewMockAgent()
	slow.DeclareActionFunc = func(ctx context.Context, req services.DeclarationRequest) (session.Declaration, error) {
		<-ctx.Done()
		return session.Declaration{}, ctx.Err()
	}

	cfg := testConfig()
	cfg.MaxRounds = 1
	r := New(cfg, services.NewMockNarrator(), nil, testLogger())
	r.RegisterAgent("kael", slow)
	r.SetDeclarationTimeout(10 * time.Millisecond)

	sc := testScenario()
	sc.ObjectiveClock = ""
	sc.Clocks = nil

	result, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeMaxRounds, result.Outcome)

	var declared bool
	for _, event := range result.Log.Events() {
		if event.Type == eventlog.EventActionDeclaration {
			declared = true
			assert.Equal(t, true, event.Data["pass"])
		}
	}
	assert.True(t, declared, "expected a pass declaration for the slow agent")
}

func TestRunner_UnboundAgentPasses(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 1
	r := New(cfg, services.NewMockNarrator(), nil, testLogger())

	sc := testScenario()
	sc.ObjectiveClock = ""
	sc.Clocks = nil

	result, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeMaxRounds, result.Outcome)
}

func TestRunner_ContentFilterScrubsNarration(t *testing.T) {
	narrator := services.NewMockNarrator()
	narrator.NarrateFunc = func(_ context.Context, req session.NarrationRequest) (outcome.ResolutionPayload, error) {
		return outcome.ResolutionPayload{
			ActorID:    req.Declaration.AgentID,
			Narration:  "Damn, that was close.",
			Structured: &outcome.StateDeltas{},
		}, nil
	}

	cfg := testConfig()
	cfg.MaxRounds = 1
	cfg.ContentFilter = true
	r := New(cfg, narrator, nil, testLogger())
	r.RegisterAgent("kael", services.NewScriptedAgent(stealthPlaybook()))

	sc := testScenario()
	sc.ObjectiveClock = ""
	sc.Clocks = nil

	result, err := r.Run(context.Background(), sc)
	require.NoError(t, err)

	var checked bool
	for _, event := range result.Log.Events() {
		if event.Type == eventlog.EventActionResolution {
			narration, _ := event.Data["narration"].(string)
			assert.NotContains(t, narration, "Damn")
			assert.Contains(t, narration, "Dang")
			checked = true
		}
	}
	assert.True(t, checked)
}

func TestRunner_RunBatch(t *testing.T) {
	r := New(testConfig(), clockNarrator(), nil, testLogger())
	r.RegisterAgent("kael", services.NewScriptedAgent(stealthPlaybook()))

	report := r.RunBatch(context.Background(), testScenario(), 4)
	require.NotNil(t, report)

	assert.Equal(t, 4, report.Sessions)
	assert.Len(t, report.Results, 4)
	assert.Equal(t, 4, report.Succeeded+report.Failed+report.TimedOut)
	assert.GreaterOrEqual(t, report.SuccessRate, 0.0)
	assert.LessOrEqual(t, report.SuccessRate, 1.0)
	if report.Succeeded > 0 {
		assert.Greater(t, report.MeanRounds, 0.0)
	}
}

func TestRunner_BatchSeedFansOutPerSession(t *testing.T) {
	cfg := testConfig()
	r := New(cfg, services.NewMockNarrator(), nil, testLogger())

	sc := testScenario()

	// A config-pinned seed must still differ per session, or Success@N
	// samples one session N times.
	sc.Seed = 0
	assert.Equal(t, int64(42), r.seedFor(sc, 0))
	assert.Equal(t, int64(43), r.seedFor(sc, 1))

	// A scenario seed takes precedence and fans out the same way.
	sc.Seed = 7
	assert.Equal(t, int64(7), r.seedFor(sc, 0))
	assert.Equal(t, int64(9), r.seedFor(sc, 2))

	// No pinned seed anywhere defers to per-run entropy.
	cfg.RandomSeed = 0
	sc.Seed = 0
	assert.Equal(t, int64(0), r.seedFor(sc, 3))
}

func TestRunner_BatchTimeoutExcludedFromRate(t *testing.T) {
	stall := services.NewMockAgent()
	stall.DeclareActionFunc = func(ctx context.Context, req services.DeclarationRequest) (session.Declaration, error) {
		<-ctx.Done()
		return session.Declaration{}, ctx.Err()
	}

	cfg := testConfig()
	cfg.SessionTimeout = 50 * time.Millisecond
	cfg.MaxRounds = 100000
	r := New(cfg, services.NewMockNarrator(), nil, testLogger())
	r.RegisterAgent("kael", stall)
	// Declaration timeout longer than the session budget, so the session
	// itself times out rather than finishing with passes.
	r.SetDeclarationTimeout(time.Hour)

	sc := testScenario()
	sc.ObjectiveClock = ""
	sc.Clocks = nil

	report := r.RunBatch(context.Background(), sc, 2)
	assert.Equal(t, 2, report.TimedOut)
	assert.Equal(t, 0.0, report.SuccessRate)
}
