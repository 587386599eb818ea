package server

import "github.com/sellscope/accountplan/internal/agent/core"

// HTTPError is a generic error envelope returned by the server. Class is a
// stable machine-readable failure class so the front end can distinguish
// "provider down" from "try rephrasing" from "edit rejected".
type HTTPError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ResearchRequest starts (or refreshes) a research session for a company.
type ResearchRequest struct {
	Query      string `json:"query"`
	SessionID  string `json:"session_id,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// PlanResponse returns the current plan snapshot for a session.
type PlanResponse struct {
	SessionID string    `json:"session_id"`
	Company   string    `json:"company"`
	Version   int       `json:"version"`
	Plan      core.Plan `json:"plan"`
}

// EditRequest asks for a single-section rewrite of the session's plan.
type EditRequest struct {
	Section     string `json:"section"`
	Instruction string `json:"instruction"`
}

// AskRequest is a plan-grounded question.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse carries the grounded answer.
type AskResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}
