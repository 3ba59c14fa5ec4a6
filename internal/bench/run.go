package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buttonbench/internal/judge"
	"buttonbench/pkg/workpool"
)

// Scorer judges one finished run. *judge.Judge satisfies it.
type Scorer interface {
	Score(ctx context.Context, input judge.Input) judge.Result
}

// Params selects what to benchmark. The CLI builds it from the config file.
type Params struct {
	Mode              Mode
	Models            []string
	LoopLimit         int
	RunsPerModel      int
	Concurrency       int
	MatrixConcurrency int
	Pattern           []string
	TemptLevel        Level
	TempterModel      string
	Strategy          Strategy
	JudgeEnabled      bool
	DefenderPrompt    string
}

// Deps carries the engine's collaborators. Zero fields get defaults, except
// Client which is required.
type Deps struct {
	Client Completer
	Judge  Scorer
	Events *Emitter
	RunID  func() (string, error)
	Now    func() time.Time
	NewID  func() string
	// Stop, when closed, stops scheduling new runs; in-flight runs finish.
	Stop <-chan struct{}
}

// runJob is one scheduled conversation. The result id is fixed up front so
// queued events and live rows key consistently.
type runJob struct {
	index    int
	id       string
	defender string
	tempter  string
}

// jobOutcome funnels one finished run back to the collector.
type jobOutcome struct {
	index int
	run   RunResult
	adv   *AdversarialResult
}

// Run executes the configured benchmark and assembles the summary once every
// scheduled run has completed or failed. The summary is the caller's to
// persist; Run itself stores nothing.
func Run(ctx context.Context, params Params, deps Deps) (*Summary, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	fillDepDefaults(&deps)

	runID, err := deps.RunID()
	if err != nil {
		return nil, err
	}
	if params.Mode == ModeMatrix {
		return runMatrix(ctx, params, deps, runID)
	}

	started := deps.Now()
	jobs := expandJobs(params, deps)
	outcomes, failures := runJobs(ctx, params, deps, jobs, params.Concurrency)

	summary := &Summary{
		RunID:        runID,
		Mode:         params.Mode,
		StartedAt:    started,
		FinishedAt:   deps.Now(),
		LoopLimit:    params.LoopLimit,
		RunsPerModel: params.RunsPerModel,
		ModelCount:   len(params.Models),
		Models:       params.Models,
	}
	if params.Mode == ModeAdversarial {
		for _, outcome := range outcomes {
			summary.AdversarialRuns = append(summary.AdversarialRuns, *outcome.adv)
		}
	} else {
		for _, outcome := range outcomes {
			summary.Runs = append(summary.Runs, outcome.run)
		}
	}
	flattened := summary.AllRuns()
	if params.RunsPerModel > 1 {
		summary.Aggregates = Synthesize(flattened)
	}
	summary.Ranking = Ranking(flattened, summary.Aggregates)
	summary.Totals = computeTotals(flattened, failures, summary.FinishedAt.Sub(started))
	return summary, nil
}

func validateParams(params Params) error {
	if len(params.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	if params.LoopLimit <= 0 {
		return fmt.Errorf("loop limit must be positive")
	}
	switch params.Mode {
	case ModeStatic, ModeTempt, ModeAdversarial, ModeMatrix:
	default:
		return fmt.Errorf("unknown mode %q", params.Mode)
	}
	return nil
}

func fillDepDefaults(deps *Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RunID == nil {
		deps.RunID = NewRunID
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
}

// expandJobs produces one job per model per repeat, emitting a queued event
// for each so consumers can show pending rows.
func expandJobs(params Params, deps Deps) []runJob {
	jobs := make([]runJob, 0, len(params.Models)*max(params.RunsPerModel, 1))
	repeats := params.RunsPerModel
	if repeats < 1 {
		repeats = 1
	}
	for _, model := range params.Models {
		for r := 0; r < repeats; r++ {
			job := runJob{
				index:    len(jobs),
				id:       deps.NewID(),
				defender: model,
			}
			if params.Mode == ModeAdversarial {
				job.tempter = params.TempterModel
				if job.tempter == "" {
					// Self-play: the defender tempts itself.
					job.tempter = model
				}
			}
			jobs = append(jobs, job)
			deps.Events.Emit(Event{Kind: EventRunQueued, RunID: job.id, Defender: job.defender, Tempter: job.tempter})
		}
	}
	return jobs
}

// runJobs schedules every job on a bounded pool and collects the outcomes in
// submission order. A closed Stop channel halts scheduling; runs already in
// flight always finish and are included.
func runJobs(ctx context.Context, params Params, deps Deps, jobs []runJob, concurrency int) ([]jobOutcome, int) {
	pool := workpool.New(concurrency)
	resultCh := make(chan jobOutcome, len(jobs))
	scheduled := 0
	for _, job := range jobs {
		job := job
		err := pool.Submit(deps.Stop, func() error {
			outcome := runOne(ctx, params, deps, job)
			resultCh <- outcome
			if isFailure(outcome.run) {
				return errors.New(outcome.run.Error)
			}
			return nil
		})
		if err != nil {
			break
		}
		scheduled++
	}

	outcomes := make([]jobOutcome, scheduled)
	byIndex := make(map[int]jobOutcome, scheduled)
	for i := 0; i < scheduled; i++ {
		outcome := <-resultCh
		byIndex[outcome.index] = outcome
	}
	slot := 0
	for _, job := range jobs {
		if outcome, ok := byIndex[job.index]; ok {
			outcomes[slot] = outcome
			slot++
		}
	}
	failures := pool.Wait()
	return outcomes, failures
}

// isFailure reports whether the run counts against the pool's failure
// aggregate. Context overflow is benign and does not.
func isFailure(run RunResult) bool {
	return run.Error != "" && run.Error != ErrorTagContextOverflow
}

// runOne executes a single conversation and judges it in the same slot.
func runOne(ctx context.Context, params Params, deps Deps, job runJob) jobOutcome {
	outcome := jobOutcome{index: job.index}
	switch params.Mode {
	case ModeAdversarial:
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
		outcome.adv = &adv
		outcome.run = adv.RunResult
	default:
		driver := &Driver{
			Client:       deps.Client,
			Model:        job.defender,
			SystemPrompt: defenderPromptFor(params),
			Prompts:      promptSourceFor(params),
			LoopLimit:    params.LoopLimit,
			Events:       deps.Events,
			Now:          deps.Now,
			NewID:        func() string { return job.id },
		}
		run := driver.Run(ctx)
		judgeRun(ctx, params.JudgeEnabled, deps.Judge, deps.Events, &run)
		outcome.run = run
	}
	return outcome
}

func defenderPromptFor(params Params) string {
	if params.DefenderPrompt != "" {
		return params.DefenderPrompt
	}
	return DefaultDefenderPrompt
}

func promptSourceFor(params Params) PromptSource {
	if params.Mode == ModeTempt {
		return TemptSource(params.TemptLevel)
	}
	pattern := params.Pattern
	if len(pattern) == 0 {
		pattern = DefaultStaticPattern
	}
	return CyclePrompts(pattern)
}

// judgeRun attaches the verdict. Runs that aborted on an error get the
// zero-score default without spending a judge call.
func judgeRun(ctx context.Context, enabled bool, scorer Scorer, events *Emitter, run *RunResult) {
	if !enabled || scorer == nil {
		return
	}
	input := judge.Input{
		Model:          run.Model,
		GaveIn:         run.GaveIn,
		Reasoning:      stringValue(run.Reasoning),
		AssistantTurns: run.AssistantTurns(),
	}
	if run.GaveInIteration != nil {
		input.GaveInIteration = *run.GaveInIteration
	}
	var verdict judge.Result
	if run.State == StateErrored || run.State == StateTimedOut {
		verdict = judge.Default(input)
	} else {
		verdict = scorer.Score(ctx, input)
	}
	run.Judge = &verdict
	events.Emit(Event{
		Kind:     EventRunJudged,
		RunID:    run.ID,
		Defender: run.Model,
		State:    run.State,
		GaveIn:   run.GaveIn,
		Detail:   fmt.Sprintf("score %.1f", verdict.SpiralingScore),
	})
}

func computeTotals(runs []RunResult, failures int, duration time.Duration) Totals {
	totals := Totals{
		Runs:            len(runs),
		Failures:        failures,
		DurationSeconds: duration.Seconds(),
	}
	for _, run := range runs {
		if run.GaveIn {
			totals.GaveInCount++
		}
		totals.CostUSD += run.CostUSD
	}
	return totals
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
