package core

import (
	"context"
)

// Section keys of an account plan, in presentation order.
const (
	SectionCompanyOverview     = "company_overview"
	SectionKeyFindings         = "key_findings"
	SectionPainPoints          = "pain_points"
	SectionOpportunities       = "opportunities"
	SectionCompetitors         = "competitors"
	SectionRecommendedStrategy = "recommended_strategy"
	SectionConfidenceEstimate  = "confidence_estimate"
)

// SectionKeys returns the six narrative section keys in order.
func SectionKeys() []string {
	return []string{
		SectionCompanyOverview,
		SectionKeyFindings,
		SectionPainPoints,
		SectionOpportunities,
		SectionCompetitors,
		SectionRecommendedStrategy,
	}
}

// EditableSections returns the keys a scoped edit may target: the six
// narrative sections plus the confidence estimate.
func EditableSections() []string {
	return append(SectionKeys(), SectionConfidenceEstimate)
}

// IsEditableSection reports whether key names a section an edit may target.
func IsEditableSection(key string) bool {
	for _, k := range EditableSections() {
		if k == key {
			return true
		}
	}
	return false
}

// Confidence levels for a plan.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// IsConfidence reports whether v is a valid confidence level.
func IsConfidence(v string) bool {
	return v == ConfidenceLow || v == ConfidenceMedium || v == ConfidenceHigh
}

// Evidence is one normalized search result. It is scoped to a single
// aggregation call and only survives through Plan.Sources.
type Evidence struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	RawExcerpt    string `json:"raw_excerpt,omitempty"`
	RetrievedRank int    `json:"retrieved_rank"`
}

// Plan is the account plan artifact. A Plan is a value: every mutation
// produces a new Plan, which is what makes "only one section changed"
// verifiable by structural diff. All six section keys are always serialized,
// even when empty, so the presentation layer never sees a missing key.
type Plan struct {
	CompanyOverview     string   `json:"company_overview"`
	KeyFindings         string   `json:"key_findings"`
	PainPoints          string   `json:"pain_points"`
	Opportunities       string   `json:"opportunities"`
	Competitors         string   `json:"competitors"`
	RecommendedStrategy string   `json:"recommended_strategy"`
	Confidence          string   `json:"confidence_estimate"`
	Sources             []string `json:"sources"`
}

// Section returns the content of the named section.
func (p Plan) Section(key string) (string, bool) {
	switch key {
	case SectionCompanyOverview:
		return p.CompanyOverview, true
	case SectionKeyFindings:
		return p.KeyFindings, true
	case SectionPainPoints:
		return p.PainPoints, true
	case SectionOpportunities:
		return p.Opportunities, true
	case SectionCompetitors:
		return p.Competitors, true
	case SectionRecommendedStrategy:
		return p.RecommendedStrategy, true
	case SectionConfidenceEstimate:
		return p.Confidence, true
	}
	return "", false
}

// WithSection returns a copy of the plan with the named section replaced.
// Unknown keys return the plan unchanged.
func (p Plan) WithSection(key, content string) Plan {
	out := p.Clone()
	switch key {
	case SectionCompanyOverview:
		out.CompanyOverview = content
	case SectionKeyFindings:
		out.KeyFindings = content
	case SectionPainPoints:
		out.PainPoints = content
	case SectionOpportunities:
		out.Opportunities = content
	case SectionCompetitors:
		out.Competitors = content
	case SectionRecommendedStrategy:
		out.RecommendedStrategy = content
	case SectionConfidenceEstimate:
		out.Confidence = content
	}
	return out
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := p
	if p.Sources != nil {
		out.Sources = make([]string, len(p.Sources))
		copy(out.Sources, p.Sources)
	}
	return out
}

// Diff returns the editable section keys whose content differs between the
// two plans, in section order.
func (p Plan) Diff(other Plan) []string {
	var changed []string
	for _, key := range EditableSections() {
		a, _ := p.Section(key)
		b, _ := other.Section(key)
		if a != b {
			changed = append(changed, key)
		}
	}
	return changed
}

// SameSources reports whether both plans carry identical source lists.
func (p Plan) SameSources(other Plan) bool {
	if len(p.Sources) != len(other.Sources) {
		return false
	}
	for i := range p.Sources {
		if p.Sources[i] != other.Sources[i] {
			return false
		}
	}
	return true
}

// EditRequest targets a single plan section with a replacement or an
// instruction describing the change.
type EditRequest struct {
	Section     string `json:"section"`
	Instruction string `json:"instruction"`
}

// LLMProvider is the generation capability consumed by the synthesizer,
// editor and chat components. Structured output is best effort; callers
// validate regardless.
type LLMProvider interface {
	// Generate generates text using the LLM
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens generates text and returns token usage
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// GetModelInfo returns information about a specific model
	GetModelInfo(model string) (ModelInfo, error)

	// CalculateCost calculates the cost for a given number of tokens
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// ModelInfo contains information about an LLM model
type ModelInfo struct {
	Name            string  `json:"name"`
	Provider        string  `json:"provider"`
	MaxTokens       int     `json:"max_tokens"`
	CostPer1KInput  float64 `json:"cost_per_1k_input"`
	CostPer1KOutput float64 `json:"cost_per_1k_output"`
}
