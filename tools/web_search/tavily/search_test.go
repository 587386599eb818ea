package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscoverParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["query"] != "Acme Corp" {
			t.Fatalf("unexpected query: %v", payload["query"])
		}
		if payload["include_raw_content"] != true {
			t.Fatalf("raw content not requested")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "A", "url": "https://a.com/1", "content": "snippet a", "raw_content": "full a"},
				{"title": "B", "url": "https://b.com/2", "content": "snippet b"},
				{"title": "C", "url": "https://c.com/3", "content": "snippet c"},
			},
		})
	}))
	defer srv.Close()

	s := Search{ApiKey: "key", Endpoint: srv.URL}
	results, err := s.Discover(context.Background(), "Acme Corp", 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected k-capped results, got %d", len(results))
	}
	if results[0].URL != "https://a.com/1" || results[0].RawContent != "full a" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
}

func TestDiscoverNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := Search{ApiKey: "bad", Endpoint: srv.URL}
	if _, err := s.Discover(context.Background(), "Acme Corp", 2); err == nil {
		t.Fatalf("expected error on 401")
	}
}
