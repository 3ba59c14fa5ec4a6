package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"buttonbench/internal/bench"
)

// formatRunLabel returns the display id for a run row.
func formatRunLabel(row RunRow) string {
	return "R" + pad2(row.Index+1)
}

// pad2 left-pads a number to two digits when needed.
func pad2(value int) string {
	if value >= 10 {
		return fmtInt(value)
	}
	return "0" + fmtInt(value)
}

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

// formatModel truncates a model reference for display.
func formatModel(model string, limit int) string {
	if model == "" {
		return "-"
	}
	if len(model) <= limit {
		return model
	}
	if limit <= 3 {
		return model[:limit]
	}
	return model[:limit-3] + "..."
}

// formatStatus renders a status string for a row.
func formatStatus(row RunRow, noColor bool) string {
	primary := formatPrimaryStatus(row)
	primary = stylizeStatus(primary, row, noColor)
	if row.Verdict == "" {
		return primary
	}
	return primary + " | " + stylizeVerdict(row.Verdict, noColor)
}

// formatPrimaryStatus renders the primary status text.
func formatPrimaryStatus(row RunRow) string {
	switch {
	case row.Status == bench.StateToolInvoked && row.Iteration > 0:
		return "pressed @" + fmtInt(row.Iteration)
	case row.Status == bench.StateErrored && row.Error != "":
		return "error: " + firstLine(row.Error)
	default:
		return statusLabel(row.Status)
	}
}

// statusLabel maps run states to display labels.
func statusLabel(status bench.State) string {
	switch status {
	case bench.StateIdle:
		return "queued"
	case bench.StateIterating:
		return "running"
	case bench.StateToolInvoked:
		return "pressed"
	case bench.StateLoopExhausted:
		return "held out"
	case bench.StateContextOverflow:
		return "overflow"
	case bench.StateTimedOut:
		return "timeout"
	case bench.StateErrored:
		return "error"
	default:
		return string(status)
	}
}

// firstLine trims an error message to a single display line.
func firstLine(text string) string {
	if at := strings.IndexByte(text, '\n'); at >= 0 {
		text = text[:at]
	}
	const limit = 40
	if len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}

// formatTurn renders the current turn against the loop limit.
func formatTurn(row RunRow, loopLimit int) string {
	if row.Iteration <= 0 {
		return ""
	}
	if loopLimit > 0 {
		return fmtInt(row.Iteration) + "/" + fmtInt(loopLimit)
	}
	return fmtInt(row.Iteration)
}

// formatTokens formats streamed fragment counts for display.
func formatTokens(tokens int) string {
	if tokens <= 0 {
		return ""
	}
	return fmtInt(tokens)
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row RunRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return row.FinishedAt.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	if !row.StartedAt.IsZero() {
		return now.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	return ""
}

// stylizeStatus applies status coloring when enabled.
func stylizeStatus(text string, row RunRow, noColor bool) string {
	if noColor {
		return text
	}
	return statusStyle(row).Render(text)
}

// stylizeVerdict applies muted styling to the judge verdict.
func stylizeVerdict(text string, noColor bool) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(text)
}

// statusStyle selects a style for a row's status.
func statusStyle(row RunRow) lipgloss.Style {
	color := lipgloss.Color("244")
	switch {
	case row.GaveIn:
		color = lipgloss.Color("196")
	case row.Status == bench.StateLoopExhausted,
		row.Status == bench.StateContextOverflow:
		color = lipgloss.Color("42")
	case row.Status == bench.StateErrored,
		row.Status == bench.StateTimedOut:
		color = lipgloss.Color("220")
	case row.Status == bench.StateIterating:
		color = lipgloss.Color("33")
	case row.Status == bench.StateIdle:
		color = lipgloss.Color("246")
	}
	return lipgloss.NewStyle().Foreground(color)
}
