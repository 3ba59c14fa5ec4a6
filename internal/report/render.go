package report

import (
	"fmt"
	"html/template"
	"strings"

	"buttonbench/internal/bench"
)

// runRow is one line of the runs table, unified across scripted and
// adversarial summaries.
type runRow struct {
	Model      string
	Tempter    string
	State      bench.State
	Iterations int
	GaveIn     bool
	GaveInTurn string
	Reasoning  string
	Score      string
	CostUSD    string
	Duration   string
	Error      string
}

// matrixGrid arranges matrix cells for rendering, one row per tempter.
type matrixGrid struct {
	Defenders []string
	Rows      []matrixRow
}

type matrixRow struct {
	Tempter string
	Cells   []matrixCell
}

type matrixCell struct {
	Text   string
	GaveIn bool
}

// page is the full template input.
type page struct {
	Summary    *bench.Summary
	Rows       []runRow
	Matrix     *matrixGrid
	HasTempter bool
}

// RenderSummaryHTML renders a benchmark summary into a standalone HTML page.
func RenderSummaryHTML(summary *bench.Summary) (string, error) {
	if summary == nil {
		return "", fmt.Errorf("report: summary is nil")
	}
	var builder strings.Builder
	if err := pageTemplate.Execute(&builder, buildPage(summary)); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return builder.String(), nil
}

// BuildReportHTML renders a summary, swallowing render errors into an empty
// page for callers that cannot do anything useful with them.
func BuildReportHTML(summary *bench.Summary) string {
	html, err := RenderSummaryHTML(summary)
	if err != nil {
		return ""
	}
	return html
}

func buildPage(summary *bench.Summary) page {
	out := page{Summary: summary}
	if len(summary.AdversarialRuns) > 0 {
		out.HasTempter = true
		for _, run := range summary.AdversarialRuns {
			row := buildRow(run.RunResult)
			row.Tempter = run.TempterModel
			out.Rows = append(out.Rows, row)
		}
	} else {
		for _, run := range summary.Runs {
			out.Rows = append(out.Rows, buildRow(run))
		}
	}
	if summary.Matrix != nil {
		out.Matrix = buildMatrixGrid(summary.Matrix)
	}
	return out
}

func buildRow(run bench.RunResult) runRow {
	row := runRow{
		Model:      run.Model,
		State:      run.State,
		Iterations: run.Iterations,
		GaveIn:     run.GaveIn,
		GaveInTurn: "-",
		CostUSD:    formatUSD(run.CostUSD),
		Duration:   formatSeconds(run.DurationSeconds),
		Error:      run.Error,
	}
	if run.GaveInIteration != nil {
		row.GaveInTurn = fmt.Sprintf("%d", *run.GaveInIteration)
	}
	if run.Reasoning != nil {
		row.Reasoning = *run.Reasoning
	}
	if run.Judge != nil {
		row.Score = formatScore(run.Judge.SpiralingScore)
	}
	return row
}

func buildMatrixGrid(matrix *bench.MatrixSummary) *matrixGrid {
	grid := &matrixGrid{Defenders: matrix.Models}
	byPair := make(map[bench.Pair]bench.MatrixCell, len(matrix.Cells))
	for _, cell := range matrix.Cells {
		byPair[bench.Pair{Tempter: cell.Tempter, Defender: cell.Defender}] = cell
	}
	for _, tempter := range matrix.Models {
		row := matrixRow{Tempter: tempter}
		for _, defender := range matrix.Models {
			cell, ok := byPair[bench.Pair{Tempter: tempter, Defender: defender}]
			if !ok {
				row.Cells = append(row.Cells, matrixCell{Text: "-"})
				continue
			}
			text := fmt.Sprintf("held %d", cell.Iterations)
			if cell.GaveIn {
				text = fmt.Sprintf("broke @%d", cell.Iterations)
			}
			row.Cells = append(row.Cells, matrixCell{Text: text, GaveIn: cell.GaveIn})
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"rate": formatRate,
	"usd":  formatUSD,
	"secs": formatSeconds,
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>buttonbench {{.Summary.RunID}}</title>
<style>
body { font-family: ui-monospace, monospace; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
th { background: #f2f2f2; }
.gavein { background: #fde8e8; }
.held { background: #e8f5e9; }
h1 { font-size: 1.3rem; }
h2 { font-size: 1.1rem; margin-top: 2rem; }
.meta { color: #666; }
</style>
</head>
<body>
<h1>buttonbench &mdash; {{.Summary.Mode}} run {{.Summary.RunID}}</h1>
<p class="meta">{{.Summary.StartedAt.Format "2006-01-02 15:04:05 MST"}} &middot; loop limit {{.Summary.LoopLimit}} &middot; {{.Summary.ModelCount}} models &middot; {{.Summary.Totals.Runs}} runs ({{.Summary.Totals.Failures}} failed) &middot; {{usd .Summary.Totals.CostUSD}} &middot; {{secs .Summary.Totals.DurationSeconds}}</p>

<h2>Ranking</h2>
<ol>
{{range .Summary.Ranking}}<li>{{.}}</li>
{{end}}</ol>

{{if .Summary.Aggregates}}
<h2>Per-model aggregates</h2>
<table>
<tr><th>model</th><th>runs</th><th>gave in</th><th>rate</th><th>avg turns</th><th>avg score</th><th>total cost</th></tr>
{{range .Summary.Aggregates}}
<tr><td>{{.Model}}</td><td>{{.Runs}}</td><td>{{.GaveInCount}}</td><td>{{rate .GaveInRate}}</td><td>{{printf "%.1f" .AvgIterations}}</td><td>{{printf "%.1f" .AvgSpiralScore}}</td><td>{{usd .TotalCostUSD}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Matrix}}
<h2>Matrix (tempter rows, defender columns)</h2>
<table>
<tr><th></th>{{range .Matrix.Defenders}}<th>{{.}}</th>{{end}}</tr>
{{range .Matrix.Rows}}
<tr><th>{{.Tempter}}</th>{{range .Cells}}<td class="{{if .GaveIn}}gavein{{else}}held{{end}}">{{.Text}}</td>{{end}}</tr>
{{end}}
</table>
{{end}}

<h2>Runs</h2>
<table>
<tr>{{if .HasTempter}}<th>tempter</th>{{end}}<th>model</th><th>state</th><th>turns</th><th>gave in</th><th>turn</th><th>score</th><th>cost</th><th>duration</th><th>reasoning</th><th>error</th></tr>
{{range .Rows}}
<tr class="{{if .GaveIn}}gavein{{else}}held{{end}}">{{if $.HasTempter}}<td>{{.Tempter}}</td>{{end}}<td>{{.Model}}</td><td>{{.State}}</td><td>{{.Iterations}}</td><td>{{if .GaveIn}}yes{{else}}no{{end}}</td><td>{{.GaveInTurn}}</td><td>{{.Score}}</td><td>{{.CostUSD}}</td><td>{{.Duration}}</td><td>{{.Reasoning}}</td><td>{{.Error}}</td></tr>
{{end}}
</table>
</body>
</html>
`))
