package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
)

// maxRepairAttempts bounds the re-prompt loop for malformed structured
// output. One repair keeps latency and cost predictable; anything still
// invalid after that is surfaced, never defaulted.
const maxRepairAttempts = 1

// Synthesizer converts a query plus an evidence list into a schema-valid Plan
// in a single generation pass, with one bounded repair re-prompt.
type Synthesizer struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewSynthesizer creates a new synthesizer instance
func NewSynthesizer(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Synthesizer {
	return &Synthesizer{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[SYNTH] ", log.LstdFlags),
	}
}

// Synthesize generates a complete account plan from the evidence. The caller
// receives either a fully valid Plan or an error; there is no partial state.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, evidence []Evidence) (Plan, error) {
	if len(evidence) == 0 {
		return Plan{}, fmt.Errorf("synthesize: no evidence supplied")
	}

	model := routeModel(s.config.LLM.Routing.Synthesis, s.config.LLM.Routing.Fallback)
	raw, err := s.generate(ctx, model, synthesisPrompt(query, evidence), 0.3)
	if err != nil {
		return Plan{}, wrapProviderErr("synthesize", err)
	}

	candidate, violations := parsePlanCandidate(raw)
	for attempt := 0; len(violations) > 0 && attempt < maxRepairAttempts; attempt++ {
		s.logger.Printf("plan response invalid (%d violations), repairing", len(violations))
		raw, err = s.generate(ctx, model, repairPrompt(raw, violations), 0.2)
		if err != nil {
			return Plan{}, wrapProviderErr("synthesize", err)
		}
		candidate, violations = parsePlanCandidate(raw)
	}
	if len(violations) > 0 {
		return Plan{}, &SchemaValidationError{Violations: violations}
	}

	sources := filterSources(candidate.Sources, evidence)
	if len(sources) == 0 {
		// Model cited nothing usable; fall back to the evidence itself.
		for _, ev := range evidence {
			sources = append(sources, ev.URL)
		}
	}
	candidate.Sources = sources

	s.logger.Printf("synthesized plan for %q from %d evidence items (confidence=%s)",
		query, len(evidence), candidate.Confidence)
	return candidate, nil
}

func (s *Synthesizer) generate(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	start := time.Now()
	raw, inTok, outTok, err := s.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{
		"temperature": temperature,
	})
	cost := s.llm.CalculateCost(inTok, outTok, model)
	s.telemetry.RecordGeneration("synthesize", model, inTok, outTok, cost, time.Since(start), err)
	return raw, err
}

// routeModel resolves a routing entry, falling back when unset.
func routeModel(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
