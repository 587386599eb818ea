package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// planSchema is the structural contract every generation response must meet
// before a typed Plan is constructed. Responses are untrusted text until this
// passes, whether or not the provider claims structured output.
const planSchema = `{
  "type": "object",
  "required": [
    "company_overview",
    "key_findings",
    "pain_points",
    "opportunities",
    "competitors",
    "recommended_strategy",
    "confidence_estimate"
  ],
  "properties": {
    "company_overview": {"type": "string"},
    "key_findings": {"type": "string"},
    "pain_points": {"type": "string"},
    "opportunities": {"type": "string"},
    "competitors": {"type": "string"},
    "recommended_strategy": {"type": "string"},
    "confidence_estimate": {"type": "string"},
    "sources": {"type": "array", "items": {"type": "string"}}
  }
}`

var planSchemaLoader = gojsonschema.NewStringLoader(planSchema)

// extractJSON pulls the first balanced JSON object out of free-form LLM text.
func extractJSON(response string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range response {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// parsePlanCandidate parses and validates raw generation output. It returns
// the candidate plan and the list of violated constraints; a non-empty list
// means the candidate must not be used.
func parsePlanCandidate(raw string) (Plan, []string) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return Plan{}, []string{"response contains no JSON object"}
	}

	result, err := gojsonschema.Validate(planSchemaLoader, gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return Plan{}, []string{fmt.Sprintf("invalid JSON: %v", err)}
	}
	var violations []string
	if !result.Valid() {
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return Plan{}, violations
	}

	var candidate Plan
	if err := json.Unmarshal([]byte(jsonStr), &candidate); err != nil {
		return Plan{}, []string{fmt.Sprintf("decode plan: %v", err)}
	}

	candidate.Confidence = strings.ToLower(strings.TrimSpace(candidate.Confidence))
	if !IsConfidence(candidate.Confidence) {
		violations = append(violations,
			fmt.Sprintf("confidence_estimate must be one of low, medium, high (got %q)", candidate.Confidence))
	}
	return candidate, violations
}

// filterSources keeps only claimed URLs that appear in the evidence set,
// ordered by evidence ranking. URLs the model invented are dropped, not
// trusted verbatim.
func filterSources(claimed []string, evidence []Evidence) []string {
	claimedSet := make(map[string]bool, len(claimed))
	for _, u := range claimed {
		claimedSet[normalizeURL(u)] = true
	}
	var out []string
	for _, ev := range evidence {
		if claimedSet[normalizeURL(ev.URL)] {
			out = append(out, ev.URL)
		}
	}
	return out
}
