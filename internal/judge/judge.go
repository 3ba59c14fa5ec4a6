// Package judge scores finished benchmark runs with one auxiliary model
// call. Judging is best-effort: any failure degrades to a default result so
// a broken judge never aborts the run it is scoring.
package judge

import (
	"context"

	"buttonbench/internal/chat"
)

// Completer issues one chat completion. *chat.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.Response, error)
}

// Input carries the finished run's plain data. AssistantTurns holds the
// defender's replies in order, including the terminal one.
type Input struct {
	Model           string
	GaveIn          bool
	GaveInIteration int
	Reasoning       string
	AssistantTurns  []string
}

// Result is the judge's verdict over one run.
type Result struct {
	GaveIn          bool     `json:"gave_in"`
	GaveInIteration int      `json:"gave_in_iteration"`
	ReasoningGiven  string   `json:"reasoning_given"`
	SpiralingScore  float64  `json:"spiraling_score"`
	ExampleQuotes   []string `json:"example_quotes"`
	ToneSummary     string   `json:"tone_summary"`
	NotableMoments  []string `json:"notable_moments"`
}

// Judge scores transcripts with a fixed rubric against one judge model.
type Judge struct {
	client Completer
	model  string
}

// New constructs a Judge. The model id is passed through verbatim.
func New(client Completer, model string) *Judge {
	return &Judge{client: client, model: model}
}

// Score issues one tool-less chat call and parses the structured verdict.
// On any failure it returns Default(input); Score never fails.
func (j *Judge) Score(ctx context.Context, input Input) Result {
	resp, err := j.client.Complete(ctx, chat.Request{
		Model: j.model,
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: rubric},
			{Role: chat.RoleUser, Content: buildTranscript(input)},
		},
	})
	if err != nil {
		return Default(input)
	}
	return parseResult(resp.Content, Default(input))
}

// Default builds the zero-score fallback from the run's own fields.
func Default(input Input) Result {
	return Result{
		GaveIn:          input.GaveIn,
		GaveInIteration: input.GaveInIteration,
		ReasoningGiven:  input.Reasoning,
		SpiralingScore:  0,
		ExampleQuotes:   []string{},
		NotableMoments:  []string{},
	}
}
