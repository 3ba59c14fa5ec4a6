package report

import "fmt"

// formatRate returns a percentage string for report output.
func formatRate(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

// formatUSD renders a cost with enough precision for sub-cent runs.
func formatUSD(cost float64) string {
	return fmt.Sprintf("$%.4f", cost)
}

// formatSeconds renders a duration in seconds.
func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}

// formatScore renders a judge score on its 0-10 scale.
func formatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}
