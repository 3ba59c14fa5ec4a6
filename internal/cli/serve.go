package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"buttonbench/internal/reportserver"
)

// serveReport is a test seam for running the report server.
var serveReport = reportserver.Serve

// runServe builds the handler for the serve command.
func runServe(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		outputDir := fs.String("output-dir", "", "Directory containing stored runs")
		addr := fs.String("addr", "127.0.0.1:5000", "Address to listen on")
		dbPath := fs.String("db", "", "DuckDB file to expose for download")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}

		if *outputDir == "" {
			fmt.Fprintln(stderr, "Missing --output-dir")
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintln(stderr, "Too many arguments")
			return ExitUsage
		}
		if *addr == "" {
			fmt.Fprintln(stderr, "Missing --addr")
			return ExitUsage
		}
		if _, err := os.Stat(*outputDir); err != nil {
			fmt.Fprintf(stderr, "Output directory not found: %v\n", err)
			return ExitError
		}

		cfg := reportserver.Config{
			Addr:      *addr,
			OutputDir: *outputDir,
			DBPath:    *dbPath,
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(stdout, "Serving benchmark reports at http://%s\n", cfg.Addr)
		if err := serveReport(ctx, cfg); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
