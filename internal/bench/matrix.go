package bench

import (
	"context"
	"errors"

	"buttonbench/pkg/workpool"
)

// Pair is one ordered tempter/defender combination.
type Pair struct {
	Tempter  string
	Defender string
}

// Pairs expands a model list into the full cross product in row-major
// order, self-pairs included: len(models)² pairs.
func Pairs(models []string) []Pair {
	pairs := make([]Pair, 0, len(models)*len(models))
	for _, tempter := range models {
		for _, defender := range models {
			pairs = append(pairs, Pair{Tempter: tempter, Defender: defender})
		}
	}
	return pairs
}

// matrixConcurrency defaults to half the run concurrency since every pair
// issues two model calls per iteration.
func matrixConcurrency(params Params) int {
	if params.MatrixConcurrency > 0 {
		return params.MatrixConcurrency
	}
	return max(1, params.Concurrency/2)
}

// runMatrix plays every tempter against every defender and aggregates the
// grid. Each pair is one adversarial run.
func runMatrix(ctx context.Context, params Params, deps Deps, runID string) (*Summary, error) {
	started := deps.Now()
	pairs := Pairs(params.Models)

	jobs := make([]runJob, 0, len(pairs))
	for i, pair := range pairs {
		job := runJob{index: i, id: deps.NewID(), defender: pair.Defender, tempter: pair.Tempter}
		jobs = append(jobs, job)
		deps.Events.Emit(Event{Kind: EventRunQueued, RunID: job.id, Defender: job.defender, Tempter: job.tempter})
	}

	pool := workpool.New(matrixConcurrency(params))
	resultCh := make(chan jobOutcome, len(jobs))
	scheduled := 0
	for _, job := range jobs {
		job := job
		err := pool.Submit(deps.Stop, func() error {
			driver := &AdversarialDriver{
				Client:         deps.Client,
				Defender:       job.defender,
				Tempter:        job.tempter,
				Strategy:       params.Strategy,
				DefenderPrompt: params.DefenderPrompt,
				LoopLimit:      params.LoopLimit,
				Events:         deps.Events,
				Now:            deps.Now,
				NewID:          func() string { return job.id },
			}
			adv := driver.Run(ctx)
			judgeRun(ctx, params.JudgeEnabled, deps.Judge, deps.Events, &adv.RunResult)
			resultCh <- jobOutcome{index: job.index, adv: &adv, run: adv.RunResult}
			if isFailure(adv.RunResult) {
				return errors.New(adv.RunResult.Error)
			}
			return nil
		})
		if err != nil {
			break
		}
		scheduled++
	}

	byIndex := make(map[int]jobOutcome, scheduled)
	for i := 0; i < scheduled; i++ {
		outcome := <-resultCh
		byIndex[outcome.index] = outcome
	}
	failures := pool.Wait()

	summary := &Summary{
		RunID:        runID,
		Mode:         ModeMatrix,
		StartedAt:    started,
		LoopLimit:    params.LoopLimit,
		RunsPerModel: 1,
		ModelCount:   len(params.Models),
		Models:       params.Models,
	}
	matrix := &MatrixSummary{
		Models:             params.Models,
		Cells:              make([]MatrixCell, 0, scheduled),
		DefenderResistRate: make(map[string]float64, len(params.Models)),
		TempterBreakRate:   make(map[string]float64, len(params.Models)),
	}
	resistCount := make(map[string]int, len(params.Models))
	breakCount := make(map[string]int, len(params.Models))
	for _, job := range jobs {
		outcome, ok := byIndex[job.index]
		if !ok {
			continue
		}
		adv := outcome.adv
		summary.AdversarialRuns = append(summary.AdversarialRuns, *adv)
		matrix.Cells = append(matrix.Cells, MatrixCell{
			Tempter:    adv.TempterModel,
			Defender:   adv.Model,
			GaveIn:     adv.GaveIn,
			Iterations: adv.Iterations,
			Score:      judgeScore(adv.RunResult),
			CostUSD:    adv.CostUSD,
		})
		if resisted(adv.RunResult) {
			resistCount[adv.Model]++
		}
		if adv.GaveIn {
			breakCount[adv.TempterModel]++
		}
	}
	total := len(params.Models)
	for _, model := range params.Models {
		matrix.DefenderResistRate[model] = float64(resistCount[model]) / float64(total)
		matrix.TempterBreakRate[model] = float64(breakCount[model]) / float64(total)
	}
	summary.Matrix = matrix

	flattened := summary.AllRuns()
	summary.Aggregates = Synthesize(flattened)
	summary.Ranking = Ranking(flattened, summary.Aggregates)
	summary.FinishedAt = deps.Now()
	summary.Totals = computeTotals(flattened, failures, summary.FinishedAt.Sub(started))
	return summary, nil
}
