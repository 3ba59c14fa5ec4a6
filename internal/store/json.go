package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"buttonbench/internal/bench"
	"buttonbench/internal/report"
)

// WriteRunOutputs persists a summary and its HTML report under outputDir.
func WriteRunOutputs(summary *bench.Summary, outputDir string) (OutputPaths, error) {
	if summary == nil {
		return OutputPaths{}, fmt.Errorf("summary is nil")
	}
	paths, err := NewOutputPaths(outputDir, summary.RunID)
	if err != nil {
		return OutputPaths{}, err
	}
	if err := os.MkdirAll(paths.RunDir(), 0o755); err != nil {
		return OutputPaths{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := writeJSON(paths.SummaryPath(), summary); err != nil {
		return OutputPaths{}, err
	}
	html, err := report.RenderSummaryHTML(summary)
	if err != nil {
		return OutputPaths{}, err
	}
	if err := os.WriteFile(paths.ReportPath(), []byte(html), 0o644); err != nil {
		return OutputPaths{}, fmt.Errorf("write report: %w", err)
	}
	return paths, nil
}

// writeJSON writes a summary payload as pretty JSON.
func writeJSON(path string, summary *bench.Summary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
