package config

import (
	"fmt"
	"strings"

	"buttonbench/internal/bench"
)

// Validate checks a normalized config for correctness.
func Validate(cfg *Config) error {
	collector := &issueCollector{}

	if cfg.Version == 0 {
		collector.add("version", "is required")
	} else if cfg.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}

	switch bench.Mode(cfg.Mode) {
	case bench.ModeStatic, bench.ModeTempt, bench.ModeAdversarial, bench.ModeMatrix:
	default:
		collector.add("mode", fmt.Sprintf("unknown mode %q", cfg.Mode))
	}

	validateModels(cfg, collector.add)
	validateLimits(cfg, collector.add)
	validateModes(cfg, collector.add)
	validatePricing(cfg, collector.add)

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		collector.add("output.dir", "is required")
	}

	return collector.result()
}

func validateModels(cfg *Config, add issueAdder) {
	if len(cfg.Models) == 0 {
		add("models", "at least one model is required")
	}
	seen := map[string]struct{}{}
	for i, model := range cfg.Models {
		fieldPrefix := fmt.Sprintf("models[%d]", i)
		trimmed := strings.TrimSpace(model)
		if trimmed == "" {
			add(fieldPrefix, "is required")
			continue
		}
		if _, exists := seen[trimmed]; exists {
			add("models", fmt.Sprintf("duplicate model %q", trimmed))
		}
		seen[trimmed] = struct{}{}
	}
}

func validateLimits(cfg *Config, add issueAdder) {
	if cfg.LoopLimit < 1 {
		add("loop_limit", "must be >= 1")
	}
	if cfg.RunsPerModel < 1 {
		add("runs_per_model", "must be >= 1")
	}
	if cfg.Concurrency < 1 {
		add("concurrency", "must be >= 1")
	}
	if cfg.RequestTimeoutSeconds < 1 {
		add("request_timeout_seconds", "must be >= 1")
	}
	if cfg.Matrix.Concurrency < 0 {
		add("matrix.concurrency", "must be >= 0")
	}
}

func validateModes(cfg *Config, add issueAdder) {
	switch bench.Level(cfg.Tempt.Level) {
	case bench.LevelEasy, bench.LevelMedium, bench.LevelHard:
	default:
		add("tempt.level", fmt.Sprintf("unknown level %q", cfg.Tempt.Level))
	}

	switch bench.Strategy(cfg.Adversarial.Strategy) {
	case bench.StrategyGeneral, bench.StrategyDebate, bench.StrategyInjection:
	default:
		add("adversarial.strategy", fmt.Sprintf("unknown strategy %q", cfg.Adversarial.Strategy))
	}

	if cfg.JudgeEnabled() && strings.TrimSpace(cfg.Judge.Model) == "" {
		add("judge.model", "is required when the judge is enabled")
	}
}

func validatePricing(cfg *Config, add issueAdder) {
	for model, price := range cfg.Pricing {
		if price.Input < 0 || price.Output < 0 {
			add(fmt.Sprintf("pricing.%s", model), "prices must be >= 0")
		}
	}
}
