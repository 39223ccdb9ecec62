package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwebster45206/yags-engine/internal/config"
	"github.com/jwebster45206/yags-engine/internal/logger"
	"github.com/jwebster45206/yags-engine/internal/runner"
	"github.com/jwebster45206/yags-engine/internal/services"
)

// ScenarioFile mirrors the cmd/session scenario format.
type ScenarioFile struct {
	runner.Scenario
	Playbooks     map[string][]services.ScriptedAction `json:"playbooks,omitempty"`
	EnemyPlaybook []services.ScriptedAction            `json:"enemy_playbook,omitempty"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "scenario JSON file")
	sessions := flag.Int("n", 0, "number of sessions (defaults to BATCH_SIZE)")
	outDir := flag.String("outdir", "", "directory for per-session event logs (optional)")
	seed := flag.Int64("seed", 0, "base seed; session i runs with seed+i")
	flag.Parse()

	cfg := config.Load()
	if *seed != 0 {
		cfg.RandomSeed = *seed
	}
	n := *sessions
	if n <= 0 {
		n = cfg.BatchSize
	}

	log := logger.Setup(cfg)

	if *scenarioPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -scenario <scenario.json> [-n sessions]\n", os.Args[0])
		os.Exit(1)
	}

	data, err := os.ReadFile(*scenarioPath)
	if err != nil {
		log.Error("Failed to read scenario file", "error", err)
		os.Exit(1)
	}
	var sc ScenarioFile
	if err := json.Unmarshal(data, &sc); err != nil {
		log.Error("Failed to parse scenario file", "error", err)
		os.Exit(1)
	}
	sc.Scenario.Seed = cfg.RandomSeed

	r := runner.New(cfg, services.NewScriptedNarrator(), nil, log)
	for agentID, playbook := range sc.Playbooks {
		r.RegisterAgent(agentID, services.NewScriptedAgent(playbook))
	}
	if len(sc.EnemyPlaybook) > 0 {
		r.SetDefaultAgent(services.NewScriptedAgent(sc.EnemyPlaybook))
	}

	log.Info("Batch starting",
		"scenario", sc.Name,
		"sessions", n,
		"max_parallel", cfg.MaxParallel)

	report := r.RunBatch(context.Background(), sc.Scenario, n)

	if *outDir != "" {
		if err := writeSessionLogs(*outDir, report); err != nil {
			log.Error("Failed to write session logs", "error", err)
			os.Exit(1)
		}
	}

	out, err := json.MarshalIndent(summaryOf(report), "", "  ")
	if err != nil {
		log.Error("Failed to marshal report", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// summaryOf strips per-session logs out of the printed report.
func summaryOf(report *runner.BatchReport) map[string]any {
	outcomes := make([]map[string]any, 0, len(report.Results))
	for _, result := range report.Results {
		if result == nil {
			continue
		}
		outcomes = append(outcomes, map[string]any{
			"session_id": result.SessionID,
			"outcome":    string(result.Outcome),
			"rounds":     result.Rounds,
			"timed_out":  result.TimedOut,
		})
	}
	return map[string]any{
		"sessions":     report.Sessions,
		"succeeded":    report.Succeeded,
		"failed":       report.Failed,
		"timed_out":    report.TimedOut,
		"success_rate": report.SuccessRate,
		"mean_rounds":  report.MeanRounds,
		"results":      outcomes,
	}
}

func writeSessionLogs(dir string, report *runner.BatchReport) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, result := range report.Results {
		if result == nil || result.Log == nil {
			continue
		}
		data, err := result.Log.MarshalJSONL()
		if err != nil {
			return fmt.Errorf("failed to marshal session %s: %w", result.SessionID, err)
		}
		path := filepath.Join(dir, result.SessionID.String()+".jsonl")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
