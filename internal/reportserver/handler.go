package reportserver

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"buttonbench/internal/report"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>buttonbench runs</title>
<style>
body { font-family: ui-monospace, monospace; margin: 2rem; color: #222; }
li { margin: 0.2rem 0; }
</style>
</head>
<body>
<h1>buttonbench runs</h1>
{{if .}}
<ul>
{{range .}}<li><a href="/runs/{{.}}">{{.}}</a></li>
{{end}}</ul>
{{else}}
<p>No runs recorded yet.</p>
{{end}}
</body>
</html>
`))

// NewHandler builds the HTTP handler for browsing stored runs. The DuckDB
// endpoint is registered only when a database path is configured.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("reportserver: output dir is required")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", serveIndex(cfg.OutputDir))
	mux.HandleFunc("GET /runs/{id}", serveRunReport(cfg.OutputDir))
	mux.HandleFunc("GET /api/runs", serveRunList(cfg.OutputDir))
	mux.HandleFunc("GET /api/runs/{id}", serveRunSummary(cfg.OutputDir))
	if cfg.DBPath != "" {
		mux.Handle("GET /data/db.duckdb", serveDatabase(cfg.DBPath))
	}
	return mux, nil
}

// serveIndex lists stored runs, newest first.
func serveIndex(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ids, err := report.ListRuns(outputDir)
		if err != nil && !os.IsNotExist(err) {
			http.Error(w, "list runs", http.StatusInternalServerError)
			return
		}
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexTemplate.Execute(w, ids)
	}
}

// serveRunReport serves a run's stored report.html, rendering it fresh from
// summary.json when the file is missing.
func serveRunReport(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runDir := filepath.Join(outputDir, r.PathValue("id"))
		path := filepath.Join(runDir, "report.html")
		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeFile(w, r, path)
			return
		}
		summary, err := report.LoadSummary(filepath.Join(runDir, report.SummaryFileName))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		html := report.BuildReportHTML(summary)
		if html == "" {
			http.Error(w, "render report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}

// serveRunList returns the stored run ids as JSON.
func serveRunList(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ids, err := report.ListRuns(outputDir)
		if err != nil && !os.IsNotExist(err) {
			http.Error(w, "list runs", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ids)
	}
}

// serveRunSummary returns a run's summary.json payload.
func serveRunSummary(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(outputDir, r.PathValue("id"), report.SummaryFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

// serveDatabase serves the DuckDB file from disk for browser-side processing.
func serveDatabase(dbPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, dbPath)
	})
}
