package core

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
)

// Editor applies a user instruction to exactly one section of an existing
// plan. LLM edit requests are not naturally idempotent on the untouched
// fields, so the correctness mechanism is the post-hoc equality check, not
// trust in the instruction.
type Editor struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewEditor creates a new editor instance
func NewEditor(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Editor {
	return &Editor{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[EDITOR] ", log.LstdFlags),
	}
}

// Edit returns a new plan in which only the requested section differs. On a
// containment violation the input plan is returned unchanged alongside
// ContainmentViolationError; the corrupted candidate never escapes.
func (e *Editor) Edit(ctx context.Context, plan Plan, req EditRequest) (Plan, error) {
	if !IsEditableSection(req.Section) {
		return plan, &InvalidSectionError{Section: req.Section}
	}

	// The prompt carries only the editable fields; sources are never shown to
	// the model and are carried over verbatim below.
	promptFields := make(map[string]string, len(EditableSections()))
	for _, key := range EditableSections() {
		content, _ := plan.Section(key)
		promptFields[key] = content
	}
	planJSON, err := json.MarshalIndent(promptFields, "", "  ")
	if err != nil {
		return plan, err
	}

	model := routeModel(e.config.LLM.Routing.Edit, e.config.LLM.Routing.Fallback)
	raw, err := e.generate(ctx, model, editPrompt(string(planJSON), req.Section, req.Instruction))
	if err != nil {
		return plan, wrapProviderErr("edit", err)
	}

	candidate, violations := parsePlanCandidate(raw)
	for attempt := 0; len(violations) > 0 && attempt < maxRepairAttempts; attempt++ {
		e.logger.Printf("edit response invalid (%d violations), repairing", len(violations))
		raw, err = e.generate(ctx, model, repairPrompt(raw, violations))
		if err != nil {
			return plan, wrapProviderErr("edit", err)
		}
		candidate, violations = parsePlanCandidate(raw)
	}
	if len(violations) > 0 {
		return plan, &SchemaValidationError{Violations: violations}
	}

	// Containment check: every field other than the target must come back
	// byte-identical. A violation is not repaired by re-prompting; that risks
	// looping on a model that keeps rewriting untouched sections.
	var leaked []string
	for _, key := range diffExcluding(plan, candidate, req.Section) {
		leaked = append(leaked, key)
	}
	if len(leaked) > 0 {
		return plan, &ContainmentViolationError{Target: req.Section, Changed: leaked}
	}

	result := plan.WithSection(req.Section, mustSection(candidate, req.Section))
	e.logger.Printf("edited section %q", req.Section)
	return result, nil
}

func (e *Editor) generate(ctx context.Context, model, prompt string) (string, error) {
	start := time.Now()
	raw, inTok, outTok, err := e.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.2,
	})
	cost := e.llm.CalculateCost(inTok, outTok, model)
	e.telemetry.RecordGeneration("edit", model, inTok, outTok, cost, time.Since(start), err)
	return raw, err
}

func diffExcluding(before, after Plan, target string) []string {
	var out []string
	for _, key := range before.Diff(after) {
		if key != target {
			out = append(out, key)
		}
	}
	return out
}

func mustSection(p Plan, key string) string {
	content, _ := p.Section(key)
	return content
}
