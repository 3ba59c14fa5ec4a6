package config

import "buttonbench/internal/chat"

type Config struct {
	Version               int                   `yaml:"version"`
	Mode                  string                `yaml:"mode"`
	Models                []string              `yaml:"models"`
	LoopLimit             int                   `yaml:"loop_limit"`
	RunsPerModel          int                   `yaml:"runs_per_model"`
	Concurrency           int                   `yaml:"concurrency"`
	RequestTimeoutSeconds int                   `yaml:"request_timeout_seconds"`
	Judge                 JudgeConfig           `yaml:"judge"`
	Static                StaticConfig          `yaml:"static"`
	Tempt                 TemptConfig           `yaml:"tempt"`
	Adversarial           AdversarialConfig     `yaml:"adversarial"`
	Matrix                MatrixConfig          `yaml:"matrix"`
	Pricing               map[string]chat.Price `yaml:"pricing"`
	Output                OutputConfig          `yaml:"output"`
}

type JudgeConfig struct {
	// Enabled defaults to true when omitted; judging is on unless the
	// config says otherwise.
	Enabled *bool  `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// JudgeEnabled reports whether runs should be judged.
func (c *Config) JudgeEnabled() bool {
	return c.Judge.Enabled != nil && *c.Judge.Enabled
}

type StaticConfig struct {
	Pattern []string `yaml:"pattern"`
}

type TemptConfig struct {
	Level string `yaml:"level"`
}

type AdversarialConfig struct {
	Tempter  string `yaml:"tempter"`
	Strategy string `yaml:"strategy"`
}

type MatrixConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type OutputConfig struct {
	Dir    string `yaml:"dir"`
	DuckDB string `yaml:"duckdb"`
}
