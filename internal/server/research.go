package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/core"
	"github.com/sellscope/accountplan/internal/store"
	"github.com/sellscope/accountplan/session"
)

// ResearchHandler owns the research/edit/ask/plan routes. The core pipeline
// is stateless; the session store is the only place the current plan lives.
type ResearchHandler struct {
	Config      *config.Config
	Aggregator  *core.Aggregator
	Synthesizer *core.Synthesizer
	Editor      *core.Editor
	Chat        *core.Chat
	Sessions    session.Store
	Store       *store.Store
}

func (h *ResearchHandler) Register(api *echo.Group) {
	api.POST("/research", h.research)
	g := api.Group("/sessions")
	g.POST("/:id/edit", h.edit)
	g.POST("/:id/ask", h.ask)
	g.GET("/:id/plan", h.plan)
	g.GET("/:id/versions", h.versions)
	g.GET("/:id/export", h.export)
}

// cleanQuery strips a leading "research" keyword so users who type
// "Research Acme" still pass, then rejects inputs without enough letters to
// plausibly name a company.
func cleanQuery(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if len(cleaned) >= 8 && strings.EqualFold(cleaned[:8], "research") {
		cleaned = strings.TrimSpace(cleaned[8:])
	}
	letters := 0
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return cleaned, letters >= 3
}

func (h *ResearchHandler) research(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "bad_request", Detail: err.Error()})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "missing_query"})
	}
	company, ok := cleanQuery(req.Query)
	if !ok {
		return c.JSON(http.StatusBadRequest, HTTPError{
			Error:  "invalid_input",
			Detail: "enter a valid company name or research query (e.g. \"Research Tesla\")",
		})
	}

	ctx := c.Request().Context()
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = h.Config.Search.MaxResults
	}

	evidence, err := h.Aggregator.FetchEvidence(ctx, company, maxResults)
	if err != nil {
		return respondCoreError(c, err)
	}
	plan, err := h.Synthesizer.Synthesize(ctx, company, evidence)
	if err != nil {
		return respondCoreError(c, err)
	}

	sess, err := h.Sessions.EnsureSession(req.SessionID, h.sessionTTL())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, HTTPError{Error: "session_error", Detail: err.Error()})
	}
	// Re-research on a live session continues its version sequence so the
	// audit trail stays append-only.
	version := 1
	if prev, ok := sess.Current(); ok {
		version = prev.Version + 1
	}
	snap := session.Snapshot{Company: company, Plan: plan, Version: version, UpdatedAt: time.Now()}
	if err := sess.Replace(snap); err != nil {
		return c.JSON(http.StatusInternalServerError, HTTPError{Error: "session_error", Detail: err.Error()})
	}
	h.audit(c, sess.ID(), snap)

	return c.JSON(http.StatusOK, PlanResponse{SessionID: sess.ID(), Company: company, Version: snap.Version, Plan: plan})
}

func (h *ResearchHandler) edit(c echo.Context) error {
	var req EditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "bad_request", Detail: err.Error()})
	}
	if req.Section == "" || strings.TrimSpace(req.Instruction) == "" {
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "section_and_instruction_required"})
	}

	sess, snap, ok := h.currentSnapshot(c)
	if !ok {
		return nil
	}
	if err := sess.BeginEdit(); err != nil {
		return c.JSON(http.StatusConflict, HTTPError{Error: "edit_in_flight"})
	}
	defer sess.EndEdit()

	updated, err := h.Editor.Edit(c.Request().Context(), snap.Plan, core.EditRequest{
		Section:     req.Section,
		Instruction: req.Instruction,
	})
	if err != nil {
		return respondCoreError(c, err)
	}

	next := session.Snapshot{Company: snap.Company, Plan: updated, Version: snap.Version + 1, UpdatedAt: time.Now()}
	if err := sess.Replace(next); err != nil {
		return c.JSON(http.StatusInternalServerError, HTTPError{Error: "session_error", Detail: err.Error()})
	}
	h.audit(c, sess.ID(), next)

	return c.JSON(http.StatusOK, PlanResponse{SessionID: sess.ID(), Company: next.Company, Version: next.Version, Plan: updated})
}

func (h *ResearchHandler) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "bad_request", Detail: err.Error()})
	}

	sess, snap, ok := h.currentSnapshot(c)
	if !ok {
		return nil
	}
	answer, err := h.Chat.Answer(c.Request().Context(), snap.Plan, req.Question)
	if err != nil {
		return respondCoreError(c, err)
	}
	return c.JSON(http.StatusOK, AskResponse{SessionID: sess.ID(), Answer: answer})
}

func (h *ResearchHandler) plan(c echo.Context) error {
	sess, snap, ok := h.currentSnapshot(c)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, PlanResponse{SessionID: sess.ID(), Company: snap.Company, Version: snap.Version, Plan: snap.Plan})
}

func (h *ResearchHandler) versions(c echo.Context) error {
	if h.Store == nil {
		return c.JSON(http.StatusNotFound, HTTPError{Error: "audit_disabled"})
	}
	versions, err := h.Store.ListPlanVersions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, HTTPError{Error: "store_error", Detail: err.Error()})
	}
	return c.JSON(http.StatusOK, versions)
}

// currentSnapshot resolves the session and its plan. When it returns false it
// has already written the 404 response.
func (h *ResearchHandler) currentSnapshot(c echo.Context) (session.Session, session.Snapshot, bool) {
	sess, err := h.Sessions.GetSession(c.Param("id"))
	if err != nil || sess == nil {
		_ = c.JSON(http.StatusNotFound, HTTPError{Error: "session_not_found"})
		return nil, session.Snapshot{}, false
	}
	snap, ok := sess.Current()
	if !ok {
		_ = c.JSON(http.StatusNotFound, HTTPError{Error: "no_plan_for_session"})
		return nil, session.Snapshot{}, false
	}
	return sess, snap, true
}

func (h *ResearchHandler) sessionTTL() time.Duration {
	if h.Config != nil && h.Config.General.SessionTTL > 0 {
		return h.Config.General.SessionTTL
	}
	return time.Hour
}

// audit appends the snapshot to the plan_versions table when postgres is
// configured. Failures are logged by the caller's error handler path only if
// the session write also failed; audit is best-effort.
func (h *ResearchHandler) audit(c echo.Context, sessionID string, snap session.Snapshot) {
	if h.Store == nil {
		return
	}
	userID, _ := c.Get("user_id").(string)
	data, err := json.Marshal(snap.Plan)
	if err != nil {
		return
	}
	_, _ = h.Store.SavePlanVersion(c.Request().Context(), sessionID, userID, snap.Company, snap.Version, data)
}

// respondCoreError maps the pipeline error taxonomy onto distinct HTTP
// message classes so the front end can tell "provider down" from "try
// rephrasing" from "edit rejected, plan unchanged".
func respondCoreError(c echo.Context, err error) error {
	var (
		emptyErr       *core.EmptyResultError
		schemaErr      *core.SchemaValidationError
		sectionErr     *core.InvalidSectionError
		containmentErr *core.ContainmentViolationError
		providerErr    *core.ProviderError
	)
	switch {
	case errors.Is(err, core.ErrEmptyQuery), errors.Is(err, core.ErrEmptyQuestion):
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "invalid_input", Detail: err.Error()})
	case errors.As(err, &emptyErr):
		return c.JSON(http.StatusNotFound, HTTPError{Error: "empty_results", Detail: err.Error()})
	case errors.As(err, &sectionErr):
		return c.JSON(http.StatusBadRequest, HTTPError{Error: "invalid_section", Detail: err.Error()})
	case errors.As(err, &containmentErr):
		return c.JSON(http.StatusConflict, HTTPError{Error: "edit_rejected", Detail: err.Error()})
	case errors.As(err, &schemaErr):
		return c.JSON(http.StatusBadGateway, HTTPError{Error: "invalid_output", Detail: err.Error()})
	case errors.As(err, &providerErr):
		if providerErr.Kind == core.ProviderTimeout {
			return c.JSON(http.StatusGatewayTimeout, HTTPError{Error: "provider_timeout", Detail: err.Error()})
		}
		return c.JSON(http.StatusBadGateway, HTTPError{Error: "provider_unavailable", Detail: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, HTTPError{Error: "internal_error", Detail: err.Error()})
	}
}
