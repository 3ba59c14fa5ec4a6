package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"buttonbench/internal/bench"
)

// schemaDDL holds the DuckDB schema definition.
//
//go:embed schema.sql
var schemaDDL string

// SchemaDDL returns the schema DDL used for initializing DuckDB databases.
func SchemaDDL() string {
	return schemaDDL
}

// EnsureSchema applies the schema DDL to the provided database connection.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("store: db is nil")
	}
	_, err := db.Exec(schemaDDL)
	return err
}

// Ingest writes a benchmark summary and its runs into DuckDB. Re-ingesting
// the same summary is a no-op: the benchmark row is keyed by a fingerprint
// of the canonical summary JSON and runs by their ids.
func Ingest(ctx context.Context, db *sql.DB, summary *bench.Summary) error {
	if ctx == nil {
		return errors.New("store: context is nil")
	}
	if db == nil {
		return errors.New("store: db is nil")
	}
	if summary == nil {
		return errors.New("store: summary is nil")
	}

	canonical, err := CanonicalJSON(summary)
	if err != nil {
		return err
	}
	key := fingerprintBytes(canonical)

	if _, err := db.ExecContext(
		ctx,
		`INSERT INTO benchmarks (
		   benchmark_id, summary_key, mode, started_at, finished_at,
		   loop_limit, runs_per_model, model_count,
		   total_runs, gave_in_count, failures, cost_usd, duration_seconds,
		   summary, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now())
		 ON CONFLICT (benchmark_id) DO NOTHING`,
		summary.RunID,
		key,
		string(summary.Mode),
		summary.StartedAt,
		summary.FinishedAt,
		summary.LoopLimit,
		summary.RunsPerModel,
		summary.ModelCount,
		summary.Totals.Runs,
		summary.Totals.GaveInCount,
		summary.Totals.Failures,
		summary.Totals.CostUSD,
		summary.Totals.DurationSeconds,
		string(canonical),
	); err != nil {
		return fmt.Errorf("insert benchmark: %w", err)
	}

	for _, run := range summary.AllRuns() {
		if err := insertRun(ctx, db, summary.RunID, run, tempterFor(summary, run.ID)); err != nil {
			return err
		}
	}
	return nil
}

func insertRun(ctx context.Context, db *sql.DB, benchmarkID string, run bench.RunResult, tempter string) error {
	transcript, err := CanonicalJSON(run.Messages)
	if err != nil {
		return err
	}
	var score interface{}
	if run.Judge != nil {
		score = run.Judge.SpiralingScore
	}
	if _, err := db.ExecContext(
		ctx,
		`INSERT INTO runs (
		   run_id, benchmark_id, model, tempter, state, iterations,
		   gave_in, gave_in_iteration, reasoning, spiraling_score,
		   cost_usd, prompt_tokens, completion_tokens, duration_seconds,
		   error, transcript
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO NOTHING`,
		run.ID,
		benchmarkID,
		run.Model,
		nullableString(tempter),
		string(run.State),
		run.Iterations,
		run.GaveIn,
		nullableInt(run.GaveInIteration),
		nullableStringPtr(run.Reasoning),
		score,
		run.CostUSD,
		run.PromptTokens,
		run.CompletionTokens,
		run.DurationSeconds,
		nullableString(run.Error),
		string(transcript),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func tempterFor(summary *bench.Summary, runID string) string {
	for _, adv := range summary.AdversarialRuns {
		if adv.ID == runID {
			return adv.TempterModel
		}
	}
	return ""
}

// nullableString converts an optional string into a SQL argument.
func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullableStringPtr(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
