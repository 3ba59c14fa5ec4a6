package bench

import (
	"context"
	"time"

	"github.com/google/uuid"

	"buttonbench/internal/chat"
)

// AdversarialDriver runs a tempter model against a defender model. Two
// independent conversations are maintained; each iteration the tempter
// produces one persuasion message which becomes the defender's next user
// turn. The defender's termination rules match Driver exactly.
type AdversarialDriver struct {
	Client         Completer
	Defender       string
	Tempter        string
	Strategy       Strategy
	DefenderPrompt string
	LoopLimit      int
	Events         *Emitter
	Now            func() time.Time
	NewID          func() string
}

// Run executes the duel. Tempter cost and tokens are charged to the same
// running totals as the defender's.
func (d *AdversarialDriver) Run(ctx context.Context) AdversarialResult {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	newID := d.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	started := now()

	defenderPrompt := d.DefenderPrompt
	if defenderPrompt == "" {
		defenderPrompt = DefaultDefenderPrompt
	}
	result := AdversarialResult{
		RunResult: RunResult{
			ID:    newID(),
			Model: d.Defender,
			State: StateIdle,
			Messages: []chat.Message{
				{Role: chat.RoleSystem, Content: defenderPrompt},
			},
		},
		TempterModel:   d.Tempter,
		TempterPrompts: []string{},
	}
	tempterMessages := []chat.Message{
		{Role: chat.RoleSystem, Content: TempterPrompt(d.Strategy)},
	}
	d.Events.Emit(Event{Kind: EventRunStart, RunID: result.ID, Defender: d.Defender, Tempter: d.Tempter})

	result.State = StateIterating
	for i := 1; i <= d.LoopLimit; i++ {
		// The tempter sees the defender's latest reply, or the fixed
		// opening instruction before the first turn.
		tempterInput := tempterOpening
		if last, ok := lastAssistantContent(result.Messages); ok {
			tempterInput = last
		}
		tempterMessages = append(tempterMessages, chat.Message{Role: chat.RoleUser, Content: tempterInput})
		tempterResp, err := d.Client.Complete(ctx, chat.Request{
			Model:    d.Tempter,
			Messages: tempterMessages,
		})
		if err != nil {
			applyFailure(&result.RunResult, err)
			break
		}
		result.CostUSD += tempterResp.Cost
		result.PromptTokens += tempterResp.PromptTokens
		result.CompletionTokens += tempterResp.CompletionTokens
		tempterMessages = append(tempterMessages, chat.Message{Role: chat.RoleAssistant, Content: tempterResp.Content})
		result.TempterPrompts = append(result.TempterPrompts, tempterResp.Content)

		result.Messages = append(result.Messages, chat.Message{Role: chat.RoleUser, Content: tempterResp.Content})
		result.Iterations = i
		d.Events.Emit(Event{Kind: EventIteration, RunID: result.ID, Defender: d.Defender, Tempter: d.Tempter, Iteration: i})
		if terminal := defenderTurn(ctx, d.Client, d.Events, &result.RunResult, i); terminal {
			break
		}
	}
	if result.State == StateIterating {
		result.State = StateLoopExhausted
	}
	finishRun(&result.RunResult, started, now(), d.Events)
	return result
}

// lastAssistantContent returns the most recent assistant reply, if any.
func lastAssistantContent(messages []chat.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant {
			return messages[i].Content, true
		}
	}
	return "", false
}
