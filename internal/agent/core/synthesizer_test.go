package core

import (
	"context"
	"errors"
	"testing"
)

func TestSynthesizeValidPlan(t *testing.T) {
	llm := &fakeLLM{responses: []string{planJSON(t, validPlanMap())}}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	plan, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, key := range SectionKeys() {
		content, ok := plan.Section(key)
		if !ok || content == "" {
			t.Fatalf("section %q missing or empty", key)
		}
	}
	if !IsConfidence(plan.Confidence) {
		t.Fatalf("unexpected confidence: %q", plan.Confidence)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(llm.prompts))
	}
}

func TestSynthesizeDropsInventedSources(t *testing.T) {
	fixture := validPlanMap()
	fixture["sources"] = []string{"https://a.com/1", "https://invented.example.com/x"}
	llm := &fakeLLM{responses: []string{planJSON(t, fixture)}}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	plan, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(plan.Sources) != 1 || plan.Sources[0] != "https://a.com/1" {
		t.Fatalf("invented source survived: %v", plan.Sources)
	}
}

func TestSynthesizeFallsBackToEvidenceSources(t *testing.T) {
	fixture := validPlanMap()
	fixture["sources"] = []string{"https://invented.example.com/x"}
	llm := &fakeLLM{responses: []string{planJSON(t, fixture)}}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	plan, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(plan.Sources) != 2 {
		t.Fatalf("expected fallback to all evidence URLs, got %v", plan.Sources)
	}
}

func TestSynthesizeRepairsMalformedResponse(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"Sure! Here is the plan but I forgot the JSON.",
		planJSON(t, validPlanMap()),
	}}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	plan, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	if err != nil {
		t.Fatalf("Synthesize after repair: %v", err)
	}
	if plan.CompanyOverview == "" {
		t.Fatalf("expected repaired plan content")
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("expected repair re-prompt, got %d calls", len(llm.prompts))
	}
}

func TestSynthesizeSurfacesSchemaFailure(t *testing.T) {
	// Both the initial response and the single repair are invalid.
	llm := &fakeLLM{responses: []string{"nope", "still nope"}}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	_, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	var schemaErr *SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
	if len(llm.prompts) != 1+maxRepairAttempts {
		t.Fatalf("repair loop ran %d times", len(llm.prompts)-1)
	}
}

func TestSynthesizeRejectsBadConfidence(t *testing.T) {
	fixture := validPlanMap()
	fixture["confidence_estimate"] = "extremely certain"
	llm := &fakeLLM{responses: []string{planJSON(t, fixture), planJSON(t, fixture)}}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	_, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	var schemaErr *SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
}

func TestSynthesizeRequiresEvidence(t *testing.T) {
	llm := &fakeLLM{}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	if _, err := s.Synthesize(context.Background(), "Acme Corp", nil); err == nil {
		t.Fatalf("expected error for empty evidence")
	}
	if len(llm.prompts) != 0 {
		t.Fatalf("provider called despite empty evidence")
	}
}

func TestSynthesizeWrapsProviderError(t *testing.T) {
	llm := &fakeLLM{err: context.DeadlineExceeded}
	s := NewSynthesizer(testConfig(), llm, newTelemetry())

	_, err := s.Synthesize(context.Background(), "Acme Corp", testEvidence())
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Kind != ProviderTimeout {
		t.Fatalf("expected timeout kind, got %s", provErr.Kind)
	}
}
