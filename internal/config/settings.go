package config

import "strings"

// Settings carries process-level knobs that do not belong in a config file.
// They are read once at startup and passed down explicitly; nothing below
// the CLI touches the environment.
type Settings struct {
	APIKey  string
	BaseURL string
}

// LoadSettings reads settings through lookup, usually os.LookupEnv.
func LoadSettings(lookup func(string) (string, bool)) Settings {
	return Settings{
		APIKey:  firstEnv(lookup, "BUTTONBENCH_API_KEY", "OPENROUTER_API_KEY"),
		BaseURL: firstEnv(lookup, "BUTTONBENCH_BASE_URL"),
	}
}

func firstEnv(lookup func(string) (string, bool), keys ...string) string {
	for _, key := range keys {
		value, ok := lookup(key)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
