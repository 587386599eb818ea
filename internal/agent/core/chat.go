package core

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
)

// Chat answers free-text questions grounded solely in the supplied plan. No
// search call, no external memory: the input to the provider is exactly
// {plan, question}, which is what keeps answers auditable.
type Chat struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewChat creates a new chat instance
func NewChat(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Chat {
	return &Chat{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
}

// Answer answers the question using only the plan's content as context. The
// plan is taken by value and never modified.
func (c *Chat) Answer(ctx context.Context, plan Plan, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	model := routeModel(c.config.LLM.Routing.Chat, c.config.LLM.Routing.Fallback)
	start := time.Now()
	raw, inTok, outTok, err := c.llm.GenerateWithTokens(ctx, answerPrompt(plan, question), model, map[string]interface{}{
		"temperature": 0.4,
	})
	cost := c.llm.CalculateCost(inTok, outTok, model)
	c.telemetry.RecordGeneration("answer", model, inTok, outTok, cost, time.Since(start), err)
	if err != nil {
		return "", wrapProviderErr("answer", err)
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "I couldn't generate an answer. Try rephrasing the question or ask about a specific section of the plan.", nil
	}
	return answer, nil
}
