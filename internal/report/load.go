package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"buttonbench/internal/bench"
)

// SummaryFileName is the JSON artifact every run directory carries.
const SummaryFileName = "summary.json"

// LoadSummary reads a stored summary from path.
func LoadSummary(path string) (*bench.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var summary bench.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &summary, nil
}

// ResolveRun finds a run under outputDir. An empty ref resolves to the most
// recent run; run ids sort chronologically by construction.
func ResolveRun(outputDir, ref string) (*bench.Summary, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ids, err := ListRuns(outputDir)
		if err != nil {
			return nil, "", err
		}
		if len(ids) == 0 {
			return nil, "", fmt.Errorf("no runs found in %s", outputDir)
		}
		ref = ids[len(ids)-1]
	}
	runDir := filepath.Join(outputDir, ref)
	info, err := os.Stat(runDir)
	if err != nil || !info.IsDir() {
		return nil, "", fmt.Errorf("run %s not found", ref)
	}
	summary, err := LoadSummary(filepath.Join(runDir, SummaryFileName))
	if err != nil {
		return nil, "", err
	}
	return summary, runDir, nil
}

// ListRuns returns the run ids stored under outputDir, sorted ascending.
func ListRuns(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summaryPath := filepath.Join(outputDir, entry.Name(), SummaryFileName)
		if _, err := os.Stat(summaryPath); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}
