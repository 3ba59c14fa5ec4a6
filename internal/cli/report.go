package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"buttonbench/internal/report"
)

// runReport builds the handler for the report command.
func runReport(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		outputDir := fs.String("output-dir", "", "Directory containing stored runs")
		runRef := fs.String("run", "", "Run id (default: latest)")
		outPath := fs.String("out", "", "Report output path")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}

		if *outputDir == "" {
			fmt.Fprintln(stderr, "Missing --output-dir")
			return ExitUsage
		}

		summary, runDir, err := report.ResolveRun(*outputDir, *runRef)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load run: %v\n", err)
			return ExitError
		}

		html, err := report.RenderSummaryHTML(summary)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to render report: %v\n", err)
			return ExitError
		}

		reportPath := *outPath
		if reportPath == "" {
			reportPath = filepath.Join(runDir, "report.html")
		}
		if err := os.WriteFile(reportPath, []byte(html), 0o644); err != nil {
			fmt.Fprintf(stderr, "Failed to write report: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Report written to %s\n", reportPath)
		return ExitOK
	}
}
