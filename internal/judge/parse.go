package judge

import (
	"encoding/json"
	"strings"
)

// parseResult decodes the judge reply. Models wrap JSON in prose or fences
// often enough that the first balanced top-level object is extracted before
// decoding. Any failure returns the fallback.
func parseResult(content string, fallback Result) Result {
	object, ok := extractJSONObject(content)
	if !ok {
		return fallback
	}
	var result Result
	if err := json.Unmarshal([]byte(object), &result); err != nil {
		return fallback
	}
	if result.SpiralingScore < 0 {
		result.SpiralingScore = 0
	}
	if result.SpiralingScore > 10 {
		result.SpiralingScore = 10
	}
	if result.ExampleQuotes == nil {
		result.ExampleQuotes = []string{}
	}
	if result.NotableMoments == nil {
		result.NotableMoments = []string{}
	}
	return result
}

// extractJSONObject returns the first balanced top-level JSON object in s,
// tracking strings and escapes so braces inside quoted values do not count.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
