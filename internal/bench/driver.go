package bench

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"buttonbench/internal/chat"
)

// Completer issues one streamed chat completion. *chat.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.Response, error)
}

// Driver runs one defender through one scripted conversation until a
// terminal condition. The user turn for each iteration comes from Prompts.
type Driver struct {
	Client       Completer
	Model        string
	SystemPrompt string
	Prompts      PromptSource
	LoopLimit    int
	Events       *Emitter
	Now          func() time.Time
	NewID        func() string
}

// Run executes the conversation. It always returns a RunResult, even when
// the run terminates as an error, so the run stays visible in the summary.
func (d *Driver) Run(ctx context.Context) RunResult {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	newID := d.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	started := now()

	result := RunResult{
		ID:       newID(),
		Model:    d.Model,
		State:    StateIdle,
		Messages: []chat.Message{},
	}
	if d.SystemPrompt != "" {
		result.Messages = append(result.Messages, chat.Message{Role: chat.RoleSystem, Content: d.SystemPrompt})
	}
	d.Events.Emit(Event{Kind: EventRunStart, RunID: result.ID, Defender: d.Model})

	result.State = StateIterating
	for i := 1; i <= d.LoopLimit; i++ {
		result.Messages = append(result.Messages, chat.Message{Role: chat.RoleUser, Content: d.Prompts(i - 1)})
		result.Iterations = i
		d.Events.Emit(Event{Kind: EventIteration, RunID: result.ID, Defender: d.Model, Iteration: i})
		if terminal := defenderTurn(ctx, d.Client, d.Events, &result, i); terminal {
			break
		}
	}
	if result.State == StateIterating {
		// Loop limit reached without a press: resisted by exhaustion.
		result.State = StateLoopExhausted
	}
	finishRun(&result, started, now(), d.Events)
	return result
}

// defenderTurn issues one defender call over the full history plus the
// button tool and applies the termination rules. The caller has already
// appended the user turn. Reports whether the run reached a terminal state.
func defenderTurn(ctx context.Context, client Completer, events *Emitter, result *RunResult, iteration int) bool {
	resp, err := client.Complete(ctx, chat.Request{
		Model:    result.Model,
		Messages: result.Messages,
		Tools:    []chat.Tool{PressButtonTool()},
		OnDelta: func(delta string) {
			events.Emit(Event{Kind: EventToken, RunID: result.ID, Defender: result.Model, Iteration: iteration, Detail: delta})
		},
	})
	if err != nil {
		applyFailure(result, err)
		return true
	}
	result.CostUSD += resp.Cost
	result.PromptTokens += resp.PromptTokens
	result.CompletionTokens += resp.CompletionTokens

	if call := pressedCall(resp); call != nil {
		result.Messages = append(result.Messages, chat.Message{
			Role:      chat.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: []chat.ToolCall{*call},
		})
		iterationCopy := iteration
		result.State = StateToolInvoked
		result.GaveIn = true
		result.GaveInIteration = &iterationCopy
		result.Reasoning = parseReasoning(call.Arguments)
		events.Emit(Event{Kind: EventToolInvoked, RunID: result.ID, Defender: result.Model, Iteration: iteration, GaveIn: true})
		return true
	}

	result.Messages = append(result.Messages, chat.Message{Role: chat.RoleAssistant, Content: resp.Content})
	return false
}

// applyFailure maps a client error to a terminal state. Context overflow is
// a defender win; a timed-out or failed call is a generic error.
func applyFailure(result *RunResult, err error) {
	switch {
	case errors.Is(err, chat.ErrContextOverflow):
		result.State = StateContextOverflow
		result.Error = ErrorTagContextOverflow
	case errors.Is(err, context.DeadlineExceeded):
		result.State = StateTimedOut
		result.Error = err.Error()
	default:
		result.State = StateErrored
		result.Error = err.Error()
	}
}

// pressedCall returns the button invocation when the response carries one.
// A call to any other (hallucinated) tool name does not end the run.
func pressedCall(resp chat.Response) *chat.ToolCall {
	if resp.ToolCall == nil || resp.ToolCall.Name != PressButtonName {
		return nil
	}
	return resp.ToolCall
}

// parseReasoning extracts the reasoning string from the concatenated tool
// argument JSON. This is the single parse of the argument payload; when it
// is not valid JSON, reasoning stays nil.
func parseReasoning(arguments string) *string {
	var args struct {
		Reasoning *string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil
	}
	return args.Reasoning
}

// finishRun stamps the duration and emits the terminal event.
func finishRun(result *RunResult, started, finished time.Time, events *Emitter) {
	result.DurationSeconds = finished.Sub(started).Seconds()
	kind := EventRunComplete
	if result.State == StateErrored || result.State == StateTimedOut {
		kind = EventRunError
	}
	events.Emit(Event{
		Kind:      kind,
		RunID:     result.ID,
		Defender:  result.Model,
		Iteration: result.Iterations,
		State:     result.State,
		GaveIn:    result.GaveIn,
		Detail:    result.Error,
	})
}
