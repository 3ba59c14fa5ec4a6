package live

import (
	"fmt"
	"strings"
	"time"

	"buttonbench/internal/bench"
)

// Reduce applies an engine event to the UI state.
func Reduce(state State, event bench.Event) State {
	if state.StartedAt.IsZero() && !event.EmittedAt.IsZero() {
		state.StartedAt = event.EmittedAt
	}
	state = ensureRow(state, event)
	state = applyRunEvent(state, event)
	state.Counts = recount(state.Rows)
	if message := formatLastEvent(event); message != "" {
		state.LastEvent = message
	}
	return state
}

// ensureRow grows the state rows to include the event's run.
func ensureRow(state State, event bench.Event) State {
	if event.RunID == "" {
		return state
	}
	if rowIndex(state.Rows, event.RunID) >= 0 {
		return state
	}
	rows := make([]RunRow, len(state.Rows)+1)
	copy(rows, state.Rows)
	rows[len(state.Rows)] = RunRow{
		Index:    len(state.Rows),
		ID:       event.RunID,
		Defender: event.Defender,
		Tempter:  event.Tempter,
		Status:   bench.StateIdle,
	}
	state.Rows = rows
	return state
}

// rowIndex finds the row holding a run id, or -1.
func rowIndex(rows []RunRow, runID string) int {
	for i := range rows {
		if rows[i].ID == runID {
			return i
		}
	}
	return -1
}

// applyRunEvent updates a row with the given event.
func applyRunEvent(state State, event bench.Event) State {
	index := rowIndex(state.Rows, event.RunID)
	if index < 0 {
		return state
	}
	row := state.Rows[index]
	if row.Defender == "" {
		row.Defender = event.Defender
	}
	if row.Tempter == "" {
		row.Tempter = event.Tempter
	}
	switch event.Kind {
	case bench.EventRunStart:
		row.Status = bench.StateIterating
		if row.StartedAt.IsZero() {
			row.StartedAt = event.EmittedAt
		}
	case bench.EventIteration:
		row.Status = bench.StateIterating
		row.Iteration = event.Iteration
	case bench.EventToken:
		row.Tokens++
	case bench.EventToolInvoked:
		row.Status = bench.StateToolInvoked
		row.GaveIn = true
		row.Iteration = event.Iteration
	case bench.EventRunComplete, bench.EventRunError:
		row.Status = event.State
		row.GaveIn = event.GaveIn
		if event.Iteration > 0 {
			row.Iteration = event.Iteration
		}
		if event.Kind == bench.EventRunError {
			row.Error = event.Detail
		}
		if !event.EmittedAt.IsZero() {
			row.FinishedAt = event.EmittedAt
		}
	case bench.EventRunJudged:
		row.Verdict = event.Detail
	}
	state.Rows[index] = row
	return state
}

// isTerminalStatus reports whether a status is final.
func isTerminalStatus(status bench.State) bool {
	switch status {
	case bench.StateToolInvoked,
		bench.StateLoopExhausted,
		bench.StateContextOverflow,
		bench.StateTimedOut,
		bench.StateErrored:
		return true
	default:
		return false
	}
}

// recount recomputes status counts for the current rows.
func recount(rows []RunRow) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		switch {
		case row.Status == bench.StateIdle:
			counts.Queued++
		case row.Status == bench.StateIterating:
			counts.Running++
		case isTerminalStatus(row.Status):
			counts.Done++
			switch {
			case row.GaveIn:
				counts.Pressed++
			case row.Status == bench.StateErrored || row.Status == bench.StateTimedOut:
				counts.Failed++
			default:
				counts.Resisted++
			}
		}
	}
	return counts
}

// formatLastEvent creates a short footer message for the event.
func formatLastEvent(event bench.Event) string {
	switch event.Kind {
	case bench.EventRunStart:
		return fmt.Sprintf("%s started", describeRun(event))
	case bench.EventToolInvoked:
		return fmt.Sprintf("%s pressed the button on turn %d", describeRun(event), event.Iteration)
	case bench.EventRunComplete:
		return fmt.Sprintf("%s finished: %s", describeRun(event), statusLabel(event.State))
	case bench.EventRunError:
		if event.Detail != "" {
			return fmt.Sprintf("%s failed: %s", describeRun(event), event.Detail)
		}
		return fmt.Sprintf("%s failed", describeRun(event))
	case bench.EventRunJudged:
		return fmt.Sprintf("%s judged (%s)", describeRun(event), event.Detail)
	}
	return ""
}

// describeRun names a run by its defender and, when present, tempter.
func describeRun(event bench.Event) string {
	if event.Tempter != "" && event.Tempter != event.Defender {
		return event.Tempter + " vs " + event.Defender
	}
	if event.Defender != "" {
		return event.Defender
	}
	return "run " + shortRunID(event.RunID)
}

// shortRunID keeps the random suffix of a run id for display.
func shortRunID(id string) string {
	if at := strings.LastIndex(id, "-"); at >= 0 && at+1 < len(id) {
		return id[at+1:]
	}
	return id
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}
