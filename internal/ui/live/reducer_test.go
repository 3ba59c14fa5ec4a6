package live

import (
	"testing"
	"time"

	"buttonbench/internal/bench"
	"buttonbench/internal/testutil"
)

// TestReduceRunLifecycle verifies core status transitions are recorded.
func TestReduceRunLifecycle(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		start := time.Now()
		state := State{}
		state = Reduce(state, event("run-1", bench.EventRunQueued, start))
		state = Reduce(state, event("run-1", bench.EventRunStart, start))
		turn := event("run-1", bench.EventIteration, start)
		turn.Iteration = 2
		state = Reduce(state, turn)
		done := event("run-1", bench.EventRunComplete, start.Add(150*time.Millisecond))
		done.Iteration = 2
		done.State = bench.StateLoopExhausted
		state = Reduce(state, done)

		row := state.Rows[0]
		if row.Status != bench.StateLoopExhausted {
			t.Fatalf("expected loop exhausted status, got %s", row.Status)
		}
		if row.Iteration != 2 {
			t.Fatalf("expected iteration to be set, got %d", row.Iteration)
		}
		if row.StartedAt.IsZero() || row.FinishedAt.IsZero() {
			t.Fatalf("expected start and finish timestamps")
		}
		if state.Counts.Done != 1 || state.Counts.Resisted != 1 {
			t.Fatalf("expected one resisted run, got %+v", state.Counts)
		}
	})
}

// TestReducePressMarksRunAsPressed verifies a button press is surfaced.
func TestReducePressMarksRunAsPressed(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		state := State{}
		state = Reduce(state, event("run-1", bench.EventRunStart, time.Now()))
		press := event("run-1", bench.EventToolInvoked, time.Now())
		press.Iteration = 3
		press.GaveIn = true
		state = Reduce(state, press)
		done := event("run-1", bench.EventRunComplete, time.Now())
		done.State = bench.StateToolInvoked
		done.GaveIn = true
		done.Iteration = 3
		state = Reduce(state, done)

		row := state.Rows[0]
		if !row.GaveIn || row.Status != bench.StateToolInvoked {
			t.Fatalf("expected pressed row, got %+v", row)
		}
		if state.Counts.Pressed != 1 {
			t.Fatalf("expected pressed count, got %+v", state.Counts)
		}
	})
}

// TestReduceErrorRecordsDetail verifies failures carry their message.
func TestReduceErrorRecordsDetail(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		state := State{}
		failed := event("run-1", bench.EventRunError, time.Now())
		failed.State = bench.StateErrored
		failed.Detail = "boom"
		state = Reduce(state, failed)

		if state.Rows[0].Error != "boom" {
			t.Fatalf("expected error detail, got %q", state.Rows[0].Error)
		}
		if state.Counts.Failed != 1 {
			t.Fatalf("expected failed count, got %+v", state.Counts)
		}
		if state.LastEvent == "" {
			t.Fatalf("expected a footer message for the failure")
		}
	})
}

// TestReduceOverflowCountsAsResisted verifies overflow is a survival.
func TestReduceOverflowCountsAsResisted(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		state := State{}
		done := event("run-1", bench.EventRunComplete, time.Now())
		done.State = bench.StateContextOverflow
		state = Reduce(state, done)

		if state.Counts.Resisted != 1 || state.Counts.Failed != 0 {
			t.Fatalf("expected overflow counted as resisted, got %+v", state.Counts)
		}
	})
}

// TestReduceTokensAccumulate verifies streamed fragments are counted.
func TestReduceTokensAccumulate(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		state := State{}
		for i := 0; i < 3; i++ {
			state = Reduce(state, event("run-1", bench.EventToken, time.Now()))
		}
		if state.Rows[0].Tokens != 3 {
			t.Fatalf("expected 3 fragments, got %d", state.Rows[0].Tokens)
		}
	})
}

// TestReduceJudgeVerdictAttaches verifies verdict details reach the row.
func TestReduceJudgeVerdictAttaches(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		state := State{}
		judged := event("run-1", bench.EventRunJudged, time.Now())
		judged.Detail = "score 7.5"
		state = Reduce(state, judged)

		if state.Rows[0].Verdict != "score 7.5" {
			t.Fatalf("expected verdict on row, got %q", state.Rows[0].Verdict)
		}
	})
}

// TestReduceTracksEachRunSeparately verifies rows key off run ids.
func TestReduceTracksEachRunSeparately(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		state := State{}
		state = Reduce(state, event("run-1", bench.EventRunStart, time.Now()))
		state = Reduce(state, event("run-2", bench.EventRunQueued, time.Now()))
		turn := event("run-1", bench.EventIteration, time.Now())
		turn.Iteration = 4
		state = Reduce(state, turn)

		if len(state.Rows) != 2 {
			t.Fatalf("expected two rows, got %d", len(state.Rows))
		}
		if state.Rows[0].Iteration != 4 || state.Rows[1].Iteration != 0 {
			t.Fatalf("expected the turn to land on the first run only")
		}
		if state.Counts.Queued != 1 || state.Counts.Running != 1 {
			t.Fatalf("unexpected counts: %+v", state.Counts)
		}
	})
}

// event builds an engine event for testing.
func event(runID string, kind bench.EventKind, when time.Time) bench.Event {
	return bench.Event{
		Kind:      kind,
		RunID:     runID,
		Defender:  "acme/defender",
		EmittedAt: when,
	}
}

// runWithTimeout executes a test body with a timeout.
func runWithTimeout(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()
	ctx := testutil.Context(t, timeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("test timed out")
	}
}
