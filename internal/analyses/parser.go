package analyses

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseAnalysisResult validates a raw model reply into an AnalysisResult.
// Markdown code fences around the JSON document are tolerated; everything
// else is strict. Any malformed syntax, missing key, or empty required field
// fails with ErrSchemaViolation.
func ParseAnalysisResult(raw string) (AnalysisResult, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return AnalysisResult{}, fmt.Errorf("%w: no JSON object in response", ErrSchemaViolation)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &keys); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	for _, required := range []string{
		"persona",
		"target_action",
		"process_map",
		"east_analysis",
		"improvements",
		"additional_touchpoints",
	} {
		if _, ok := keys[required]; !ok {
			return AnalysisResult{}, fmt.Errorf("%w: missing key %s", ErrSchemaViolation, required)
		}
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := result.Validate(); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return result, nil
}

// extractJSONObject strips optional markdown fences and returns the outermost
// JSON object in the reply, or "" when none is present.
func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return ""
	}
	return trimmed[start : end+1]
}
