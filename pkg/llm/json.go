package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var codeFenceRe = regexp.MustCompile("(?m)^```[a-zA-Z]*\n|```$")

// UnmarshalResponse extracts a JSON object from raw LLM output and
// unmarshals it into target. Models wrap JSON in markdown fences, prepend
// prose, or emit slightly broken JSON; all three are handled before giving
// up: fences are stripped, the first balanced object is extracted, and
// near-JSON is repaired.
func UnmarshalResponse(raw string, target interface{}) error {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(codeFenceRe.ReplaceAllString(cleaned, ""))
	}

	if extracted := extractObject(cleaned); extracted != "" {
		cleaned = extracted
	}

	if err := json.Unmarshal([]byte(cleaned), target); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("failed to repair JSON output: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("failed to unmarshal repaired JSON output: %w", err)
	}
	return nil
}

// extractObject returns the first balanced top-level JSON object in s,
// or "" when none is found. Braces inside strings are ignored.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
