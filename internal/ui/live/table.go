package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// defaultColumns returns the table layout before any resize arrives.
func defaultColumns() []table.Column {
	return columnsForWidth(100)
}

// columnsForWidth spreads spare width over the model name columns.
func columnsForWidth(width int) []table.Column {
	const fixed = 4 + 24 + 8 + 8 + 9 + 14
	defender := 24
	tempter := 16
	if spare := width - fixed - defender - tempter; spare > 0 {
		defender += spare / 2
		tempter += spare / 4
	}
	return []table.Column{
		{Title: "run", Width: 4},
		{Title: "defender", Width: defender},
		{Title: "tempter", Width: tempter},
		{Title: "status", Width: 24},
		{Title: "turn", Width: 8},
		{Title: "tokens", Width: 8},
		{Title: "elapsed", Width: 9},
	}
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			formatRunLabel(row),
			formatModel(row.Defender, 48),
			formatModel(row.Tempter, 32),
			formatStatus(row, noColor),
			formatTurn(row, state.Meta.LoopLimit),
			formatTokens(row.Tokens),
			formatRowDuration(row, now),
		})
	}
	return rows
}
