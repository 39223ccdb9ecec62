package runner

import (
	"context"
	"sync"

	"github.com/jwebster45206/yags-engine/pkg/session"
)

// BatchReport aggregates a Success@N sampling run: N independent sessions of
// the same scenario, reported as a success rate over completed sessions.
// Timed-out sessions are excluded from the rate and never retried.
type BatchReport struct {
	Sessions    int     `json:"sessions"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	TimedOut    int     `json:"timed_out"`
	SuccessRate float64 `json:"success_rate"`
	MeanRounds  float64 `json:"mean_rounds"`

	Results []*Result `json:"results"`
}

// seedFor derives the per-session seed for batch index i. Whichever source
// pins the base seed, each session needs a distinct offset or Success@N
// collapses into N replays of one session. Zero means no pinned seed; each
// run draws its own entropy.
func (r *Runner) seedFor(sc Scenario, i int) int64 {
	base := sc.Seed
	if base == 0 {
		base = r.cfg.RandomSeed
	}
	if base == 0 {
		return 0
	}
	return base + int64(i)
}

// RunBatch runs n sessions of a scenario with bounded parallelism. Each
// session gets its own wall-clock budget from the configured session
// timeout; a session that exhausts it counts as timed out.
func (r *Runner) RunBatch(ctx context.Context, sc Scenario, n int) *BatchReport {
	report := &BatchReport{Sessions: n}

	parallel := r.cfg.MaxParallel
	if parallel < 1 {
		parallel = 1
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, parallel)
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			runScenario := sc
			runScenario.Seed = r.seedFor(sc, i)
			runScenario.Characters = cloneCharacters(sc.Characters)

			sessionCtx := ctx
			if r.cfg.SessionTimeout > 0 {
				var cancel context.CancelFunc
				sessionCtx, cancel = context.WithTimeout(ctx, r.cfg.SessionTimeout)
				defer cancel()
			}

			result, err := r.Run(sessionCtx, runScenario)
			if err != nil && result == nil {
				r.log.Error("Batch session failed to start", "error", err, "index", i)
				result = &Result{TimedOut: false}
			}

			mu.Lock()
			defer mu.Unlock()
			report.Results = append(report.Results, result)
			if err != nil {
				if result.TimedOut {
					report.TimedOut++
				} else {
					report.Failed++
				}
				return
			}
			if result.Outcome == session.OutcomeSuccess {
				report.Succeeded++
			} else {
				report.Failed++
			}
		}(i)
	}
	wg.Wait()

	completed := report.Sessions - report.TimedOut
	if completed > 0 {
		report.SuccessRate = float64(report.Succeeded) / float64(completed)
	}

	var rounds int
	var counted int
	for _, result := range report.Results {
		if result != nil && !result.TimedOut && result.Rounds > 0 {
			rounds += result.Rounds
			counted++
		}
	}
	if counted > 0 {
		report.MeanRounds = float64(rounds) / float64(counted)
	}

	r.log.Info("Batch finished",
		"sessions", report.Sessions,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"timed_out", report.TimedOut,
		"success_rate", report.SuccessRate)

	return report
}
