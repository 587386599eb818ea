package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/sellscope/accountplan/config"
)

// Telemetry tracks request counters, latency and LLM cost across the
// aggregator, synthesizer, editor and chat components.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu sync.RWMutex

	// Search metrics
	SearchRequests  int64
	SearchFailures  int64
	SearchResults   int64
	SearchTotalTime time.Duration

	// Generation metrics, keyed by operation (synthesize, edit, answer)
	GenerationRequests map[string]int64
	GenerationFailures map[string]int64
	GenerationTime     map[string]time.Duration

	// LLM usage, keyed by model
	TokensUsed map[string]int64
	ModelCosts map[string]float64
	TotalCost  float64
}

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config:             cfg,
		logger:             log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		GenerationRequests: make(map[string]int64),
		GenerationFailures: make(map[string]int64),
		GenerationTime:     make(map[string]time.Duration),
		TokensUsed:         make(map[string]int64),
		ModelCosts:         make(map[string]float64),
	}
}

// RecordSearch records one search provider call.
func (t *Telemetry) RecordSearch(d time.Duration, results int, err error) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SearchRequests++
	t.SearchResults += int64(results)
	t.SearchTotalTime += d
	if err != nil {
		t.SearchFailures++
	}
}

// RecordGeneration records one generation call for an operation and model.
func (t *Telemetry) RecordGeneration(op, model string, inputTokens, outputTokens int64, cost float64, d time.Duration, err error) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.GenerationRequests[op]++
	t.GenerationTime[op] += d
	if err != nil {
		t.GenerationFailures[op]++
		return
	}
	t.TokensUsed[model] += inputTokens + outputTokens
	if t.config.CostTracking {
		t.ModelCosts[model] += cost
		t.TotalCost += cost
		if t.TotalCost > 0 {
			t.logger.Printf("op=%s model=%s tokens=%d cost=$%.4f total=$%.4f",
				op, model, inputTokens+outputTokens, cost, t.TotalCost)
		}
	}
}

// Summary returns a point-in-time copy of the tracked metrics.
func (t *Telemetry) Summary() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	gen := make(map[string]int64, len(t.GenerationRequests))
	for k, v := range t.GenerationRequests {
		gen[k] = v
	}
	costs := make(map[string]float64, len(t.ModelCosts))
	for k, v := range t.ModelCosts {
		costs[k] = v
	}
	return map[string]interface{}{
		"search_requests":     t.SearchRequests,
		"search_failures":     t.SearchFailures,
		"search_results":      t.SearchResults,
		"generation_requests": gen,
		"model_costs":         costs,
		"total_cost":          t.TotalCost,
	}
}
