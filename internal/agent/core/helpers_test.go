package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
	"github.com/sellscope/accountplan/tools/web_search/models"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Routing: config.LLMRoutingConfig{
				Synthesis: "test-model",
				Edit:      "test-model",
				Chat:      "test-model",
				Fallback:  "test-model",
			},
		},
	}
}

// fakeLLM returns canned responses in order and records every prompt.
type fakeLLM struct {
	responses []string
	err       error
	prompts   []string
	models    []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	raw, _, _, err := f.GenerateWithTokens(ctx, prompt, model, options)
	return raw, err
}

func (f *fakeLLM) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	if f.err != nil {
		return "", 0, 0, f.err
	}
	if len(f.responses) == 0 {
		return "", 10, 10, nil
	}
	raw := f.responses[0]
	f.responses = f.responses[1:]
	return raw, 10, 10, nil
}

func (f *fakeLLM) GetModelInfo(model string) (ModelInfo, error) {
	return ModelInfo{Name: model, Provider: "fake"}, nil
}

func (f *fakeLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return 0
}

// fakeSearcher returns fixed results and records queries.
type fakeSearcher struct {
	results []models.Result
	err     error
	queries []string
	asked   []int
}

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	f.queries = append(f.queries, q)
	f.asked = append(f.asked, k)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func validPlanMap() map[string]interface{} {
	return map[string]interface{}{
		"company_overview":     "Acme builds industrial widgets.",
		"key_findings":         "Growing fast in Europe.",
		"pain_points":          "Legacy ERP slows fulfillment.",
		"opportunities":        "Automation of the order pipeline.",
		"competitors":          "Globex, Initech.",
		"recommended_strategy": "Lead with the automation suite.",
		"confidence_estimate":  "high",
		"sources":              []string{"https://a.com/1", "https://b.com/2"},
	}
}

func planJSON(t *testing.T, m map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal plan fixture: %v", err)
	}
	return string(data)
}

func testEvidence() []Evidence {
	return []Evidence{
		{URL: "https://a.com/1", Title: "A", Summary: "Acme raised funding", RetrievedRank: 1},
		{URL: "https://b.com/2", Title: "B", Summary: "Acme expands in Europe", RetrievedRank: 2},
	}
}

func newTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{Enabled: true, CostTracking: true})
}
