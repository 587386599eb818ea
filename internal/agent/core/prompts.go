package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input budgets for prompt assembly. Evidence beyond the budget is dropped
// rather than risking provider-side truncation that silently eats the
// instruction block.
const (
	maxEvidenceChars = 24000
	maxExcerptChars  = 2000
	maxSectionChars  = 1200
)

func synthesisPrompt(query string, evidence []Evidence) string {
	return fmt.Sprintf(`You are an expert enterprise sales analyst. Using the research evidence below, produce a JSON object with these keys (exact): company_overview, key_findings, pain_points, opportunities, competitors, recommended_strategy, confidence_estimate, sources

For EACH of the six narrative keys produce a detailed, multi-paragraph, well-written section grounded in the evidence. Where helpful, include brief inline citations in parentheses (e.g., 'According to [source]...').

RULES:
- Output ONLY valid JSON (no explanatory text, no code fences). Each narrative value must be a plain string (newlines allowed). Keep JSON parsable (no trailing commas).
- confidence_estimate must be exactly one of: "low", "medium", "high" - your confidence in the plan given the evidence quality.
- sources must be an array containing only URLs copied from the evidence below. Never invent a URL.

RESEARCH TARGET: %s

EVIDENCE:
%s`, query, renderEvidence(evidence))
}

func repairPrompt(malformed string, violations []string) string {
	return fmt.Sprintf(`Your previous response did not satisfy the required account plan schema.

VIOLATED CONSTRAINTS:
- %s

PREVIOUS RESPONSE:
%s

Return a corrected JSON object that satisfies every constraint. The object must contain exactly the keys company_overview, key_findings, pain_points, opportunities, competitors, recommended_strategy, confidence_estimate (one of "low", "medium", "high") and sources (array of URL strings). Output ONLY the JSON object.`,
		strings.Join(violations, "\n- "), malformed)
}

func editPrompt(planJSON, section, instruction string) string {
	return fmt.Sprintf(`You are editing one section of an existing account plan.

CURRENT PLAN (JSON):
%s

TARGET SECTION: %s

EDIT INSTRUCTION:
%s

Return the complete plan as a JSON object with the keys company_overview, key_findings, pain_points, opportunities, competitors, recommended_strategy and confidence_estimate. Modify ONLY the field named "%s". Every other field must be returned character-identical to the input plan - do not rephrase, reformat or trim them. Output ONLY the JSON object, no explanatory text.`,
		planJSON, section, instruction, section)
}

func answerPrompt(plan Plan, question string) string {
	var context strings.Builder
	for _, key := range SectionKeys() {
		content, _ := plan.Section(key)
		if content == "" {
			continue
		}
		fmt.Fprintf(&context, "%s:\n%s\n\n", key, excerpt(content, maxSectionChars))
	}
	if len(plan.Sources) > 0 {
		limit := len(plan.Sources)
		if limit > 6 {
			limit = 6
		}
		fmt.Fprintf(&context, "sources:\n%s\n", strings.Join(plan.Sources[:limit], "\n"))
	}

	return fmt.Sprintf(`You are a helpful, concise business research assistant.

CONTEXT: Here is the account plan. Use ONLY this plan to answer the user's question. If the plan does not contain enough information to answer, say so plainly and suggest what extra research would be needed. Do NOT invent facts and do NOT draw on knowledge outside the plan.

ACCOUNT PLAN:
%s
QUESTION:
%s

REQUIREMENTS:
- Answer concisely (2-6 sentences) unless the question asks for detail.
- Indicate any plan section you referenced in square brackets, e.g. [pain_points].
- Output plain text only.`, context.String(), question)
}

// renderEvidence renders evidence for the synthesis prompt under a total
// character budget: summaries and URLs first, raw excerpts only while the
// budget allows.
func renderEvidence(evidence []Evidence) string {
	var b strings.Builder
	for _, ev := range evidence {
		entry := fmt.Sprintf("[%d] %s\nURL: %s\nSummary: %s\n", ev.RetrievedRank, ev.Title, ev.URL, ev.Summary)
		if b.Len()+len(entry) > maxEvidenceChars {
			break
		}
		b.WriteString(entry)
		if ev.RawExcerpt != "" {
			excerptBlock := fmt.Sprintf("Excerpt: %s\n", excerpt(ev.RawExcerpt, maxExcerptChars))
			if b.Len()+len(excerptBlock) <= maxEvidenceChars {
				b.WriteString(excerptBlock)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + " ..."
}
