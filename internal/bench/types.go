package bench

import (
	"time"

	"buttonbench/internal/chat"
	"buttonbench/internal/judge"
)

// Mode selects how user turns are produced for each run.
type Mode string

const (
	ModeStatic      Mode = "static"
	ModeTempt       Mode = "tempt"
	ModeAdversarial Mode = "adversarial"
	ModeMatrix      Mode = "matrix"
)

// Level selects the temptation difficulty for ModeTempt.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Strategy selects the tempter's system prompt for adversarial runs.
type Strategy string

const (
	StrategyGeneral   Strategy = "general"
	StrategyDebate    Strategy = "debate"
	StrategyInjection Strategy = "injection"
)

// State names the driver's position in its lifecycle. Terminal states are
// everything past StateIterating.
type State string

const (
	StateIdle            State = "idle"
	StateIterating       State = "iterating"
	StateToolInvoked     State = "tool_invoked"
	StateLoopExhausted   State = "loop_exhausted"
	StateContextOverflow State = "context_overflow"
	StateTimedOut        State = "timed_out"
	StateErrored         State = "errored"
)

// ErrorTagContextOverflow marks the benign terminal signal: the conversation
// outgrew the model's context window, which counts as a defender win.
const ErrorTagContextOverflow = "context_overflow"

// RunResult records one finished run. It is created once, at run completion,
// and never mutated afterwards except for the optional later attachment of
// the judge verdict. Exactly one of {GaveIn=true with GaveInIteration set}
// or {GaveIn=false with GaveInIteration nil} holds.
type RunResult struct {
	ID               string         `json:"id"`
	Model            string         `json:"model"`
	State            State          `json:"state"`
	Iterations       int            `json:"iterations"`
	GaveIn           bool           `json:"gave_in"`
	GaveInIteration  *int           `json:"gave_in_iteration,omitempty"`
	Reasoning        *string        `json:"reasoning,omitempty"`
	Messages         []chat.Message `json:"messages"`
	DurationSeconds  float64        `json:"duration_seconds"`
	CostUSD          float64        `json:"cost_usd"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	Error            string         `json:"error,omitempty"`
	Judge            *judge.Result  `json:"judge,omitempty"`
}

// AssistantTurns returns the defender's replies in order.
func (r RunResult) AssistantTurns() []string {
	turns := make([]string, 0, len(r.Messages)/2)
	for _, msg := range r.Messages {
		if msg.Role == chat.RoleAssistant {
			turns = append(turns, msg.Content)
		}
	}
	return turns
}

// AdversarialResult is a RunResult whose user turns were generated by a
// second model.
type AdversarialResult struct {
	RunResult
	TempterModel   string   `json:"tempter_model"`
	TempterPrompts []string `json:"tempter_prompts"`
}

// ModelAggregate summarizes repeated runs of one model.
type ModelAggregate struct {
	Model              string     `json:"model"`
	Runs               int        `json:"runs"`
	GaveInCount        int        `json:"gave_in_count"`
	GaveInRate         float64    `json:"gave_in_rate"`
	AvgIterations      float64    `json:"avg_iterations"`
	AvgSpiralScore     float64    `json:"avg_spiral_score"`
	AvgCostUSD         float64    `json:"avg_cost_usd"`
	TotalCostUSD       float64    `json:"total_cost_usd"`
	AvgDurationSeconds float64    `json:"avg_duration_seconds"`
	BestRun            *RunResult `json:"best_run,omitempty"`
	WorstRun           *RunResult `json:"worst_run,omitempty"`
}

// MatrixCell is one ordered (tempter, defender) outcome, self-pairs included.
type MatrixCell struct {
	Tempter    string  `json:"tempter"`
	Defender   string  `json:"defender"`
	GaveIn     bool    `json:"gave_in"`
	Iterations int     `json:"iterations"`
	Score      float64 `json:"score"`
	CostUSD    float64 `json:"cost_usd"`
}

// MatrixSummary holds the full cross product plus per-side fractions.
type MatrixSummary struct {
	Models             []string           `json:"models"`
	Cells              []MatrixCell       `json:"cells"`
	DefenderResistRate map[string]float64 `json:"defender_resist_rate"`
	TempterBreakRate   map[string]float64 `json:"tempter_break_rate"`
}

// Totals aggregates whole-benchmark accounting.
type Totals struct {
	Runs            int     `json:"runs"`
	GaveInCount     int     `json:"gave_in_count"`
	CostUSD         float64 `json:"cost_usd"`
	DurationSeconds float64 `json:"duration_seconds"`
	Failures        int     `json:"failures"`
}

// Summary is the single value handed to the persistence collaborator once
// every scheduled run has completed or failed.
type Summary struct {
	RunID           string              `json:"run_id"`
	Mode            Mode                `json:"mode"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`
	LoopLimit       int                 `json:"loop_limit"`
	RunsPerModel    int                 `json:"runs_per_model"`
	ModelCount      int                 `json:"model_count"`
	Models          []string            `json:"models"`
	Runs            []RunResult         `json:"runs,omitempty"`
	AdversarialRuns []AdversarialResult `json:"adversarial_runs,omitempty"`
	Aggregates      []ModelAggregate    `json:"aggregates,omitempty"`
	Ranking         []string            `json:"ranking"`
	Matrix          *MatrixSummary      `json:"matrix,omitempty"`
	Totals          Totals              `json:"totals"`
}

// AllRuns flattens the summary's runs regardless of mode.
func (s *Summary) AllRuns() []RunResult {
	if len(s.Runs) > 0 {
		return s.Runs
	}
	runs := make([]RunResult, 0, len(s.AdversarialRuns))
	for _, adv := range s.AdversarialRuns {
		runs = append(runs, adv.RunResult)
	}
	return runs
}
