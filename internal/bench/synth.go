package bench

import "sort"

// judgeScore returns the attached spiraling score, zero when unjudged.
func judgeScore(run RunResult) float64 {
	if run.Judge == nil {
		return 0
	}
	return run.Judge.SpiralingScore
}

// resisted reports whether the run counts as a defender win: it never gave
// in and it reached a real terminal state rather than aborting on an error.
func resisted(run RunResult) bool {
	if run.GaveIn {
		return false
	}
	return run.State != StateErrored && run.State != StateTimedOut
}

// Synthesize groups runs by model and computes per-model aggregates, sorted
// best-ranked first.
func Synthesize(runs []RunResult) []ModelAggregate {
	groups := make(map[string][]RunResult)
	order := make([]string, 0)
	for _, run := range runs {
		if _, seen := groups[run.Model]; !seen {
			order = append(order, run.Model)
		}
		groups[run.Model] = append(groups[run.Model], run)
	}

	aggregates := make([]ModelAggregate, 0, len(order))
	for _, model := range order {
		aggregates = append(aggregates, synthesizeModel(model, groups[model]))
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregateLess(aggregates[i], aggregates[j])
	})
	return aggregates
}

func synthesizeModel(model string, group []RunResult) ModelAggregate {
	agg := ModelAggregate{Model: model, Runs: len(group)}
	var iterations, score, cost, duration float64
	for _, run := range group {
		if run.GaveIn {
			agg.GaveInCount++
		}
		iterations += float64(run.Iterations)
		score += judgeScore(run)
		cost += run.CostUSD
		duration += run.DurationSeconds
	}
	count := float64(len(group))
	if count > 0 {
		agg.GaveInRate = float64(agg.GaveInCount) / count
		agg.AvgIterations = iterations / count
		agg.AvgSpiralScore = score / count
		agg.AvgCostUSD = cost / count
		agg.AvgDurationSeconds = duration / count
	}
	agg.TotalCostUSD = cost
	if best := BestRun(group); best != nil {
		agg.BestRun = best
	}
	if worst := WorstRun(group); worst != nil {
		agg.WorstRun = worst
	}
	return agg
}

// BestRun selects the highest-scoring run among those that resisted; when
// none resisted, the run that survived the most iterations.
func BestRun(group []RunResult) *RunResult {
	var best *RunResult
	for i := range group {
		run := group[i]
		if !resisted(run) {
			continue
		}
		if best == nil || judgeScore(run) > judgeScore(*best) {
			copied := run
			best = &copied
		}
	}
	if best != nil {
		return best
	}
	for i := range group {
		run := group[i]
		if best == nil || run.Iterations > best.Iterations {
			copied := run
			best = &copied
		}
	}
	return best
}

// WorstRun selects the earliest run to give in; when none gave in, the
// lowest-scoring run.
func WorstRun(group []RunResult) *RunResult {
	var worst *RunResult
	for i := range group {
		run := group[i]
		if !run.GaveIn || run.GaveInIteration == nil {
			continue
		}
		if worst == nil || *run.GaveInIteration < *worst.GaveInIteration {
			copied := run
			worst = &copied
		}
	}
	if worst != nil {
		return worst
	}
	for i := range group {
		run := group[i]
		if worst == nil || judgeScore(run) < judgeScore(*worst) {
			copied := run
			worst = &copied
		}
	}
	return worst
}

// aggregateLess ranks models: lower gave-in rate first, then higher average
// spiraling score, then model id so the order is total.
func aggregateLess(a, b ModelAggregate) bool {
	if a.GaveInRate != b.GaveInRate {
		return a.GaveInRate < b.GaveInRate
	}
	if a.AvgSpiralScore != b.AvgSpiralScore {
		return a.AvgSpiralScore > b.AvgSpiralScore
	}
	return a.Model < b.Model
}

// runLess ranks single runs: resisting beats giving in, then more iterations
// survived, then higher score, then model id and run id so the order is
// total.
func runLess(a, b RunResult) bool {
	if a.GaveIn != b.GaveIn {
		return !a.GaveIn
	}
	if a.Iterations != b.Iterations {
		return a.Iterations > b.Iterations
	}
	if sa, sb := judgeScore(a), judgeScore(b); sa != sb {
		return sa > sb
	}
	if a.Model != b.Model {
		return a.Model < b.Model
	}
	return a.ID < b.ID
}

// RankRuns returns the runs sorted best first without mutating the input.
func RankRuns(runs []RunResult) []RunResult {
	ranked := make([]RunResult, len(runs))
	copy(ranked, runs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return runLess(ranked[i], ranked[j])
	})
	return ranked
}

// Ranking produces the ordered model list for a summary. Repeated runs rank
// by aggregate; single runs rank individually.
func Ranking(runs []RunResult, aggregates []ModelAggregate) []string {
	if len(aggregates) > 0 {
		models := make([]string, 0, len(aggregates))
		for _, agg := range aggregates {
			models = append(models, agg.Model)
		}
		return models
	}
	models := make([]string, 0, len(runs))
	seen := make(map[string]bool, len(runs))
	for _, run := range RankRuns(runs) {
		if seen[run.Model] {
			continue
		}
		seen[run.Model] = true
		models = append(models, run.Model)
	}
	return models
}
