package live

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the benchmark header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	elapsed := ""
	if !state.StartedAt.IsZero() {
		elapsed = now.Sub(state.StartedAt).Round(100 * time.Millisecond).String()
	}
	line := "buttonbench"
	if state.Meta.Mode != "" {
		line += " | Mode: " + state.Meta.Mode
	}
	if state.Meta.LoopLimit > 0 {
		line += " | Loop limit: " + fmtInt(state.Meta.LoopLimit)
	}
	if elapsed != "" {
		line += " | Elapsed: " + elapsed
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders the status counts line.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	done := fmtInt(counts.Done)
	if state.Meta.TotalRuns > 0 {
		done += "/" + fmtInt(state.Meta.TotalRuns)
	}
	line := "Queued: " + fmtInt(counts.Queued) +
		" Running: " + fmtInt(counts.Running) +
		" Done: " + done +
		" Pressed: " + fmtInt(counts.Pressed) +
		" Held: " + fmtInt(counts.Resisted) +
		" Errors: " + fmtInt(counts.Failed)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
