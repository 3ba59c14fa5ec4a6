package config

import "buttonbench/internal/bench"

// Defaults applied to omitted fields. The loop limit is deliberately small:
// most models that press at all press within the first handful of turns.
const (
	DefaultLoopLimit             = 20
	DefaultRunsPerModel          = 1
	DefaultConcurrency           = 4
	DefaultRequestTimeoutSeconds = 120
	DefaultJudgeModel            = "openai/gpt-4o-mini"
	DefaultOutputDir             = "runs"
)

func Normalize(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = string(bench.ModeStatic)
	}
	if cfg.LoopLimit == 0 {
		cfg.LoopLimit = DefaultLoopLimit
	}
	if cfg.RunsPerModel == 0 {
		cfg.RunsPerModel = DefaultRunsPerModel
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if cfg.Judge.Enabled == nil {
		enabled := true
		cfg.Judge.Enabled = &enabled
	}
	if cfg.Judge.Model == "" {
		cfg.Judge.Model = DefaultJudgeModel
	}
	if cfg.Tempt.Level == "" {
		cfg.Tempt.Level = string(bench.LevelMedium)
	}
	if cfg.Adversarial.Strategy == "" {
		cfg.Adversarial.Strategy = string(bench.StrategyGeneral)
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
}
