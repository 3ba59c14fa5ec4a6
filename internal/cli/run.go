package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"buttonbench/internal/bench"
	"buttonbench/internal/chat"
	"buttonbench/internal/config"
	"buttonbench/internal/judge"
	"buttonbench/internal/store"
	"buttonbench/internal/ui/live"
)

const defaultConfigPath = "bench.yml"

// Test seams.
var (
	runBenchmark  = bench.Run
	writeOutputs  = store.WriteRunOutputs
	ingestSummary = defaultIngestSummary
	lookupEnv     = os.LookupEnv
)

// runRun builds the handler for the run command.
func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return benchHandler(cmd, "")
}

// runMatrix builds the handler for the matrix command. It is the run command
// with the mode pinned.
func runMatrix(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return benchHandler(cmd, bench.ModeMatrix)
}

func benchHandler(cmd *Command, forceMode bench.Mode) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", defaultConfigPath, "Path to config file")
		uiMode := fs.String("ui", "auto", "UI mode: auto|live|plain")
		verbose := fs.Bool("verbose", false, "Print one line per engine event")
		noColor := fs.Bool("no-color", false, "Disable ANSI colors")
		outputDir := fs.String("output-dir", "", "Override output directory")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		if forceMode != "" {
			cfg.Mode = string(forceMode)
		}
		if *outputDir != "" {
			cfg.Output.Dir = *outputDir
		}

		decision, err := resolveUIMode(*uiMode, *verbose, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		settings := config.LoadSettings(lookupEnv)
		client, err := chat.NewClient(chat.Options{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
			Prices:  chat.PriceTable(cfg.Pricing),
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to create chat client: %v (set BUTTONBENCH_API_KEY or OPENROUTER_API_KEY)\n", err)
			return ExitError
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stop, stopSignals := watchSignals(ctx, cancel)
		defer stopSignals()

		deps := bench.Deps{Client: client, Stop: stop}
		if cfg.JudgeEnabled() {
			deps.Judge = judge.New(client, cfg.Judge.Model)
		}

		var controller *live.Controller
		var printerDone <-chan struct{}
		var events chan bench.Event
		switch {
		case decision.useLive:
			events = make(chan bench.Event, 256)
			meta := live.Meta{Mode: cfg.Mode, LoopLimit: cfg.LoopLimit, TotalRuns: totalRuns(cfg)}
			controller = live.Start(stdout, events, meta, live.Options{NoColor: *noColor})
		case *verbose:
			events = make(chan bench.Event, 256)
			printerDone = newProgressPrinter(stdout, *noColor).watch(events)
		}
		if events != nil {
			deps.Events = bench.NewEmitter(events, nil)
		}

		summary, err := runBenchmark(ctx, benchParams(cfg), deps)
		if events != nil {
			close(events)
		}
		if controller != nil {
			controller.Wait()
		}
		if printerDone != nil {
			<-printerDone
		}
		if err != nil {
			fmt.Fprintf(stderr, "Benchmark failed: %v\n", err)
			return ExitError
		}

		paths, err := writeOutputs(summary, cfg.Output.Dir)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to write outputs: %v\n", err)
			return ExitError
		}
		if cfg.Output.DuckDB != "" {
			if err := ingestSummary(ctx, cfg.Output.DuckDB, summary); err != nil {
				fmt.Fprintf(stderr, "DuckDB ingest failed: %v\n", err)
				return ExitError
			}
		}

		fmt.Fprintf(stdout, "Benchmark %s completed\n", summary.RunID)
		fmt.Fprintf(stdout, "Runs: %d  Pressed: %d  Failures: %d  Cost: $%.4f\n",
			summary.Totals.Runs, summary.Totals.GaveInCount, summary.Totals.Failures, summary.Totals.CostUSD)
		fmt.Fprintf(stdout, "Summary: %s\n", paths.SummaryPath())
		fmt.Fprintf(stdout, "Report: %s\n", paths.ReportPath())
		return ExitOK
	}
}

// benchParams converts a loaded config into engine parameters.
func benchParams(cfg config.Config) bench.Params {
	return bench.Params{
		Mode:              bench.Mode(cfg.Mode),
		Models:            cfg.Models,
		LoopLimit:         cfg.LoopLimit,
		RunsPerModel:      cfg.RunsPerModel,
		Concurrency:       cfg.Concurrency,
		MatrixConcurrency: cfg.Matrix.Concurrency,
		Pattern:           cfg.Static.Pattern,
		TemptLevel:        bench.Level(cfg.Tempt.Level),
		TempterModel:      cfg.Adversarial.Tempter,
		Strategy:          bench.Strategy(cfg.Adversarial.Strategy),
		JudgeEnabled:      cfg.JudgeEnabled(),
	}
}

// totalRuns predicts how many runs the engine will schedule.
func totalRuns(cfg config.Config) int {
	if bench.Mode(cfg.Mode) == bench.ModeMatrix {
		return len(cfg.Models) * len(cfg.Models)
	}
	return len(cfg.Models) * cfg.RunsPerModel
}

// watchSignals closes the returned channel on the first interrupt so the
// engine stops scheduling, and cancels the context on the second so
// in-flight runs abort too.
func watchSignals(ctx context.Context, cancel context.CancelFunc) (<-chan struct{}, func()) {
	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			close(stop)
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return stop, func() { signal.Stop(sigCh) }
}

// defaultIngestSummary upserts the summary into a DuckDB database file.
func defaultIngestSummary(ctx context.Context, dbPath string, summary *bench.Summary) error {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()
	if err := store.EnsureSchema(db); err != nil {
		return err
	}
	return store.Ingest(ctx, db, summary)
}
