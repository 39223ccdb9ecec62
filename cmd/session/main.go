package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jwebster45206/yags-engine/internal/config"
	"github.com/jwebster45206/yags-engine/internal/logger"
	"github.com/jwebster45206/yags-engine/internal/runner"
	"github.com/jwebster45206/yags-engine/internal/services"
	"github.com/jwebster45206/yags-engine/internal/services/queue"
	"github.com/jwebster45206/yags-engine/pkg/character"
	"github.com/jwebster45206/yags-engine/pkg/clock"
	"github.com/jwebster45206/yags-engine/pkg/dice"
	"github.com/jwebster45206/yags-engine/pkg/eventlog"
)

// ScenarioFile is the on-disk scenario format: the runner scenario plus the
// scripted playbooks that stand in for live agents.
type ScenarioFile struct {
	runner.Scenario
	Playbooks     map[string][]services.ScriptedAction `json:"playbooks,omitempty"`
	EnemyPlaybook []services.ScriptedAction            `json:"enemy_playbook,omitempty"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "scenario JSON file (omit for the built-in demo)")
	outPath := flag.String("out", "-", "event log output file, - for stdout")
	seed := flag.Int64("seed", 0, "override random seed for a replayable run")
	flag.Parse()

	cfg := config.Load()
	if *seed != 0 {
		cfg.RandomSeed = *seed
	}

	log := logger.Setup(cfg)

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		log.Error("Failed to load scenario", "error", err)
		os.Exit(1)
	}

	var sink eventlog.Sink
	if cfg.RedisURL != "" {
		client, err := queue.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect event sink", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing queue client", "error", err)
			}
		}()
		sink = queue.NewEventSink(client, log)
		log.Info("Event streaming enabled", "redis_url", cfg.RedisURL)
	}

	r := runner.New(cfg, services.NewScriptedNarrator(), sink, log)
	for agentID, playbook := range sc.Playbooks {
		r.RegisterAgent(agentID, services.NewScriptedAgent(playbook))
	}
	if len(sc.EnemyPlaybook) > 0 {
		r.SetDefaultAgent(services.NewScriptedAgent(sc.EnemyPlaybook))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SessionTimeout)
	defer cancel()

	result, err := r.Run(ctx, sc.Scenario)
	if err != nil {
		log.Error("Session failed", "error", err)
		if result == nil || result.Log == nil {
			os.Exit(1)
		}
		// Fall through and write the partial log.
	}

	data, err := result.Log.MarshalJSONL()
	if err != nil {
		log.Error("Failed to marshal event log", "error", err)
		os.Exit(1)
	}
	if err := writeOutput(*outPath, data); err != nil {
		log.Error("Failed to write event log", "error", err)
		os.Exit(1)
	}

	log.Info("Session complete",
		"session_id", result.SessionID.String(),
		"outcome", string(result.Outcome),
		"rounds", result.Rounds,
		"events", len(result.Log.Events()))
}

func loadScenario(path string) (*ScenarioFile, error) {
	if path == "" {
		return demoScenario(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc ScenarioFile
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return &sc, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// demoScenario is a small two-character infiltration used when no scenario
// file is supplied.
func demoScenario() *ScenarioFile {
	kael := mustCharacter("kael", "Kael", map[string]int{
		"agility": 4, "strength": 3, "will": 3, "perception": 3,
	}, map[string]int{"stealth": 3, "melee": 2})

	mira := mustCharacter("mira", "Mira", map[string]int{
		"agility": 3, "strength": 2, "will": 4, "perception": 4,
	}, map[string]int{"rituals": 3, "lore": 3})

	return &ScenarioFile{
		Scenario: runner.Scenario{
			Name:       "substation_breach",
			Characters: []*character.CharacterState{kael, mira},
			Enemies: []*character.EnemySpec{{
				ID: "warden_1", Name: "husk warden", HP: 6, AC: 13,
				Attributes: map[string]int{"agility": 2},
			}},
			Clocks: []runner.ClockSpec{
				{
					Name:     "alarm",
					MaxTicks: 6,
					Semantics: clock.Semantics{
						AdvanceMeans:      "the facility notices the intrusion",
						FilledConsequence: "[SPAWN_ENEMY:void_husk] Reinforcements pour in.",
					},
				},
				{
					Name:     "uplink",
					MaxTicks: 4,
					Semantics: clock.Semantics{
						AdvanceMeans:      "the data siphon completes another stage",
						FilledConsequence: "[ADVANCE_STORY:uplink_complete]",
					},
				},
			},
			ObjectiveClock: "uplink",
			EnemyTemplates: map[string]*character.EnemySpec{
				"void_husk": {Name: "void husk", HP: 4, AC: 11,
					Attributes: map[string]int{"agility": 3}},
			},
		},
		Playbooks: map[string][]services.ScriptedAction{
			"kael": {{
				Action:     "strike from the shadows",
				TargetHint: "nearest",
				Check: &dice.Check{
					Attribute: "agility", AttributeValue: 4,
					Skill: "melee", SkillValue: intPtr(2),
					Difficulty: dice.Routine,
				},
			}},
			"mira": {{
				Action: "channel the siphon ritual [CLOCK:uplink:+1]",
				Check: &dice.Check{
					Attribute: "will", AttributeValue: 4,
					Skill: "rituals", SkillValue: intPtr(3),
					Difficulty: dice.RitualStandard,
				},
			}},
		},
	}
}

func mustCharacter(id, name string, attrs, skills map[string]int) *character.CharacterState {
	c, err := character.NewCharacter(id, name)
	if err != nil {
		panic(err)
	}
	c.Attributes = attrs
	c.Skills = skills
	return c
}

func intPtr(n int) *int { return &n }
