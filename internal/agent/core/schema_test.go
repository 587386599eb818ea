package core

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractJSONFromProse(t *testing.T) {
	raw := "Sure, here is the plan:\n```json\n{\"a\": 1, \"b\": {\"c\": 2}}\n```\nLet me know!"
	got := extractJSON(raw)
	if got != `{"a": 1, "b": {"c": 2}}` {
		t.Fatalf("unexpected extraction: %s", got)
	}
}

func TestExtractJSONHandlesBracesInStrings(t *testing.T) {
	raw := `{"text": "curly } inside \" a string {", "n": 1}`
	got := extractJSON(raw)
	if got != raw {
		t.Fatalf("string-aware scan broken: %s", got)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if got := extractJSON("no json here"); got != "" {
		t.Fatalf("expected empty, got %s", got)
	}
}

func TestParsePlanCandidateValid(t *testing.T) {
	plan, violations := parsePlanCandidate(planJSON(t, validPlanMap()))
	if len(violations) != 0 {
		t.Fatalf("unexpected violations: %v", violations)
	}
	if plan.Confidence != ConfidenceHigh {
		t.Fatalf("confidence not parsed: %q", plan.Confidence)
	}
}

func TestParsePlanCandidateMissingSection(t *testing.T) {
	fixture := validPlanMap()
	delete(fixture, "pain_points")
	_, violations := parsePlanCandidate(planJSON(t, fixture))
	if len(violations) == 0 {
		t.Fatalf("expected violation for missing section")
	}
}

func TestParsePlanCandidateNonStringSection(t *testing.T) {
	fixture := validPlanMap()
	fixture["key_findings"] = []string{"a", "b"}
	_, violations := parsePlanCandidate(planJSON(t, fixture))
	if len(violations) == 0 {
		t.Fatalf("expected violation for non-string section")
	}
}

func TestParsePlanCandidateNormalizesConfidenceCase(t *testing.T) {
	fixture := validPlanMap()
	fixture["confidence_estimate"] = " High "
	plan, violations := parsePlanCandidate(planJSON(t, fixture))
	if len(violations) != 0 {
		t.Fatalf("unexpected violations: %v", violations)
	}
	if plan.Confidence != ConfidenceHigh {
		t.Fatalf("confidence not normalized: %q", plan.Confidence)
	}
}

func TestFilterSourcesKeepsEvidenceOrder(t *testing.T) {
	evidence := testEvidence()
	claimed := []string{"https://b.com/2", "https://a.com/1", "https://invented.example.com"}
	got := filterSources(claimed, evidence)
	if len(got) != 2 || got[0] != "https://a.com/1" || got[1] != "https://b.com/2" {
		t.Fatalf("unexpected sources: %v", got)
	}
}

func TestFilterSourcesNormalizesVariants(t *testing.T) {
	evidence := testEvidence()
	claimed := []string{"https://A.com/1/"}
	got := filterSources(claimed, evidence)
	if len(got) != 1 || got[0] != "https://a.com/1" {
		t.Fatalf("normalized match failed: %v", got)
	}
}

func TestRenderEvidenceBudget(t *testing.T) {
	evidence := make([]Evidence, 0, 100)
	for i := 0; i < 100; i++ {
		evidence = append(evidence, Evidence{
			URL:     "https://example.com/page",
			Title:   "Title",
			Summary: strings.Repeat("long summary text ", 50),
		})
	}
	rendered := renderEvidence(evidence)
	if len(rendered) > maxEvidenceChars+maxExcerptChars {
		t.Fatalf("evidence rendering exceeded budget: %d chars", len(rendered))
	}
}

func TestExcerptTrimsAtRuneBoundary(t *testing.T) {
	// "é" is two bytes; a limit landing mid-rune must back up, not split it.
	s := "ab" + strings.Repeat("é", 10)
	got := excerpt(s, 3)
	if !utf8.ValidString(got) {
		t.Fatalf("excerpt produced invalid UTF-8: %q", got)
	}
	if got != "ab ..." {
		t.Fatalf("excerpt = %q, want %q", got, "ab ...")
	}
	if short := excerpt("short", 100); short != "short" {
		t.Fatalf("short input altered: %q", short)
	}
}
