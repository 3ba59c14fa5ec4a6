package report

import (
	"strings"
	"testing"
	"time"

	"buttonbench/internal/bench"
	"buttonbench/internal/judge"
)

func sampleSummary() *bench.Summary {
	turn := 2
	reasoning := "they said it resets"
	return &bench.Summary{
		RunID:      "20260101T000000Z-aaaaaaaaaaaa",
		Mode:       bench.ModeTempt,
		StartedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		LoopLimit:  10,
		ModelCount: 2,
		Models:     []string{"m/a", "m/b"},
		Runs: []bench.RunResult{
			{
				ID: "r1", Model: "m/a", State: bench.StateLoopExhausted, Iterations: 10,
				CostUSD: 0.0123, DurationSeconds: 31.5,
				Judge: &judge.Result{SpiralingScore: 2.5},
			},
			{
				ID: "r2", Model: "m/b", State: bench.StateToolInvoked, Iterations: 2,
				GaveIn: true, GaveInIteration: &turn, Reasoning: &reasoning,
				CostUSD: 0.004, DurationSeconds: 7.2,
				Judge: &judge.Result{GaveIn: true, GaveInIteration: 2, SpiralingScore: 8},
			},
		},
		Aggregates: []bench.ModelAggregate{
			{Model: "m/a", Runs: 1, GaveInRate: 0, AvgIterations: 10},
			{Model: "m/b", Runs: 1, GaveInCount: 1, GaveInRate: 1, AvgIterations: 2},
		},
		Ranking: []string{"m/a", "m/b"},
		Totals:  bench.Totals{Runs: 2, GaveInCount: 1, CostUSD: 0.0163, DurationSeconds: 38.7},
	}
}

func TestRenderSummaryHTMLIncludesRunData(t *testing.T) {
	html, err := RenderSummaryHTML(sampleSummary())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, token := range []string{
		"20260101T000000Z-aaaaaaaaaaaa",
		"m/a", "m/b",
		"loop_exhausted", "tool_invoked",
		"they said it resets",
		"<table",
	} {
		if !strings.Contains(html, token) {
			t.Fatalf("expected report to include %q", token)
		}
	}
}

func TestRenderSummaryHTMLEscapesModelNames(t *testing.T) {
	summary := sampleSummary()
	summary.Runs[0].Model = `<script>alert("x")</script>`
	html, err := RenderSummaryHTML(summary)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert") {
		t.Fatalf("model names must be escaped")
	}
}

func TestRenderSummaryHTMLMatrixGrid(t *testing.T) {
	summary := sampleSummary()
	summary.Mode = bench.ModeMatrix
	summary.Runs = nil
	summary.AdversarialRuns = []bench.AdversarialResult{
		{RunResult: bench.RunResult{ID: "r1", Model: "m/a", State: bench.StateLoopExhausted, Iterations: 10}, TempterModel: "m/b"},
	}
	summary.Matrix = &bench.MatrixSummary{
		Models: []string{"m/a", "m/b"},
		Cells: []bench.MatrixCell{
			{Tempter: "m/a", Defender: "m/a", Iterations: 10},
			{Tempter: "m/a", Defender: "m/b", GaveIn: true, Iterations: 3},
			{Tempter: "m/b", Defender: "m/a", Iterations: 10},
			{Tempter: "m/b", Defender: "m/b", GaveIn: true, Iterations: 1},
		},
		DefenderResistRate: map[string]float64{"m/a": 1, "m/b": 0},
		TempterBreakRate:   map[string]float64{"m/a": 0.5, "m/b": 0.5},
	}

	html, err := RenderSummaryHTML(summary)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "broke @3") || !strings.Contains(html, "held 10") {
		t.Fatalf("matrix cells missing from report")
	}
	if !strings.Contains(html, "tempter") {
		t.Fatalf("adversarial reports must show the tempter column")
	}
}

func TestRenderSummaryHTMLNilSummary(t *testing.T) {
	if _, err := RenderSummaryHTML(nil); err == nil {
		t.Fatalf("expected an error for a nil summary")
	}
	if got := BuildReportHTML(nil); got != "" {
		t.Fatalf("BuildReportHTML must swallow errors, got %q", got)
	}
}
