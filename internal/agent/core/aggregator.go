package core

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/sellscope/accountplan/config"
	"github.com/sellscope/accountplan/internal/agent/telemetry"
	"github.com/sellscope/accountplan/tools/web_search"
)

// DefaultMaxResults caps the evidence set when the caller does not say otherwise.
const DefaultMaxResults = 5

// searchQuerySuffix broadens a bare company name into a research query so a
// single provider call covers overview, competitors and funding news.
const searchQuerySuffix = "company overview business model latest news competitors funding"

// Aggregator turns a research query into a normalized, deduplicated evidence
// list. It never re-ranks: provider order is assumed relevance-ranked. It also
// performs no retries; repeating a paid search query is a caller decision.
type Aggregator struct {
	searcher   web_search.WebSearcher
	fetchRaw   bool
	rawTimeout time.Duration
	telemetry  *telemetry.Telemetry
	logger     *log.Logger
}

// NewAggregator creates a new aggregator instance
func NewAggregator(cfg *config.Config, searcher web_search.WebSearcher, tele *telemetry.Telemetry) *Aggregator {
	rawTimeout := cfg.Search.Timeout
	if rawTimeout == 0 {
		rawTimeout = 15 * time.Second
	}
	return &Aggregator{
		searcher:   searcher,
		fetchRaw:   cfg.Search.FetchRaw,
		rawTimeout: rawTimeout,
		telemetry:  tele,
		logger:     log.New(log.Writer(), "[AGGREGATOR] ", log.LstdFlags),
	}
}

// FetchEvidence runs one search and normalizes the results. An empty query is
// rejected before the provider is contacted; zero provider results surface as
// EmptyResultError, transport failures as ProviderError.
func (a *Aggregator) FetchEvidence(ctx context.Context, query string, maxResults int) ([]Evidence, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	start := time.Now()
	// Ask for extra results so dedup does not leave us short of maxResults.
	results, err := a.searcher.Discover(ctx, query+" "+searchQuerySuffix, maxResults*2)
	a.telemetry.RecordSearch(time.Since(start), len(results), err)
	if err != nil {
		return nil, wrapProviderErr("fetch_evidence", err)
	}
	if len(results) == 0 {
		return nil, &EmptyResultError{Query: query}
	}

	seen := make(map[string]bool)
	evidence := make([]Evidence, 0, maxResults)
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		key := normalizeURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		ev := Evidence{
			URL:           r.URL,
			Title:         strings.TrimSpace(r.Title),
			Summary:       strings.TrimSpace(r.Snippet),
			RawExcerpt:    strings.TrimSpace(r.RawContent),
			RetrievedRank: len(evidence) + 1,
		}
		evidence = append(evidence, ev)
		if len(evidence) == maxResults {
			break
		}
	}
	if len(evidence) == 0 {
		return nil, &EmptyResultError{Query: query}
	}

	if a.fetchRaw {
		a.enrichRawExcerpts(ctx, evidence)
	}

	a.logger.Printf("collected %d evidence items for %q", len(evidence), query)
	return evidence, nil
}

// enrichRawExcerpts fetches result pages and extracts readable text for
// evidence that came without raw content. Best effort: failures are skipped.
func (a *Aggregator) enrichRawExcerpts(ctx context.Context, evidence []Evidence) {
	for i := range evidence {
		if evidence[i].RawExcerpt != "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		article, err := readability.FromURL(evidence[i].URL, a.rawTimeout)
		if err != nil {
			a.logger.Printf("readable extract failed for %s: %v", evidence[i].URL, err)
			continue
		}
		evidence[i].RawExcerpt = excerpt(article.TextContent, maxExcerptChars)
	}
}

// normalizeURL produces a comparison key that ignores scheme, host case and a
// trailing slash.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	key := strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
