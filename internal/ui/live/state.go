package live

import (
	"time"

	"buttonbench/internal/bench"
)

// RunRow tracks the visible state of one benchmark run.
type RunRow struct {
	Index      int
	ID         string
	Defender   string
	Tempter    string
	Status     bench.State
	Iteration  int
	GaveIn     bool
	Tokens     int
	Verdict    string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StatusCounts aggregates row statuses for the header lines.
type StatusCounts struct {
	Queued   int
	Running  int
	Done     int
	Pressed  int
	Resisted int
	Failed   int
}

// Meta carries benchmark-level facts the event stream does not repeat.
type Meta struct {
	Mode      string
	LoopLimit int
	TotalRuns int
}

// State is the full UI state rendered by the live view.
type State struct {
	Meta      Meta
	StartedAt time.Time
	LastEvent string
	Rows      []RunRow
	Counts    StatusCounts
}
