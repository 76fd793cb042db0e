package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qquiche/ir/internal/analytics"
	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
	"github.com/qquiche/ir/pkg/health"
	"github.com/qquiche/ir/pkg/metrics"
)

// Metrics register on the process-global registry, so the package shares one
// instance across tests.
var testMetrics = metrics.New()

type memSource struct {
	ids  []string
	docs map[string]string
}

func newMemSource(pairs ...string) *memSource {
	s := &memSource{docs: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.ids = append(s.ids, pairs[i])
		s.docs[pairs[i]] = pairs[i+1]
	}
	return s
}

func (s *memSource) Documents(context.Context) ([]corpus.Document, error) {
	docs := make([]corpus.Document, 0, len(s.ids))
	for _, id := range s.ids {
		docs = append(docs, corpus.Document{ID: id, Text: s.docs[id]})
	}
	return docs, nil
}

func (s *memSource) Load(_ context.Context, id string) (corpus.Document, error) {
	text, ok := s.docs[id]
	if !ok {
		return corpus.Document{}, fmt.Errorf("no such document %q", id)
	}
	return corpus.Document{ID: id, Text: text}, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	src := newMemSource(
		"d1", "solar system planets",
		"d2", "solar radio emission",
		"d3", "planets orbit dust",
		"d4", "quantum entanglement",
	)
	cfg := corpus.Config{DocType: corpus.TypeText}
	idx := index.New(src, cfg, index.DefaultOptions())
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	engine := NewEngine(idx, feedback.DefaultOptions(), testMetrics)
	return NewHandler(engine, nil, nil, testMetrics, cfg, 10, 100)
}

func doSearch(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, SearchResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	var body SearchResult
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return rec, body
}

func TestSearchRequiresQuery(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doSearch(t, h, "/api/v1/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchRejectsBadLimit(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doSearch(t, h, "/api/v1/search?q=solar&limit=zero")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchRanksMatchingDocuments(t *testing.T) {
	h := newTestHandler(t)
	rec, body := doSearch(t, h, "/api/v1/search?q=solar")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body.Total != 2 {
		t.Fatalf("total = %d, want 2", body.Total)
	}
	for _, r := range body.Results {
		if r.DocID != "d1" && r.DocID != "d2" {
			t.Errorf("unexpected document %q in results", r.DocID)
		}
		if r.Score <= 0 {
			t.Errorf("document %q scored %v, want > 0", r.DocID, r.Score)
		}
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	h := newTestHandler(t)
	rec, body := doSearch(t, h, "/api/v1/search?q=solar&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body.Total != 2 || len(body.Results) != 1 {
		t.Fatalf("total = %d, returned = %d; want total 2, returned 1", body.Total, len(body.Results))
	}
}

func doFeedback(t *testing.T, h *Handler, req FeedbackRequest) (*httptest.ResponseRecorder, SearchResult) {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	h.Feedback(rec, httpReq)
	var body SearchResult
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return rec, body
}

func TestFeedbackExpandsQuery(t *testing.T) {
	h := newTestHandler(t)
	rec, body := doFeedback(t, h, FeedbackRequest{
		Query:    "solar",
		Relevant: []DocJudgment{{DocID: "d1"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// Pulling toward d1 adds "planets" to the query, which reaches d3.
	found := false
	for _, r := range body.Results {
		if r.DocID == "d3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("reformulated query did not retrieve d3; results = %+v", body.Results)
	}
	if len(body.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", body.Warnings)
	}
}

func TestFeedbackOutOfRangeRatingWarnsNotFails(t *testing.T) {
	h := newTestHandler(t)
	rating := 3.0
	rec, body := doFeedback(t, h, FeedbackRequest{
		Query:    "solar",
		Relevant: []DocJudgment{{DocID: "d1", Rating: &rating}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(body.Warnings) == 0 {
		t.Fatal("expected a warning for the out-of-range rating")
	}
}

func TestFeedbackUnknownDocumentIsNotFound(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doFeedback(t, h, FeedbackRequest{
		Query:    "solar",
		Relevant: []DocJudgment{{DocID: "missing"}},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFeedbackRequiresQueryField(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doFeedback(t, h, FeedbackRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// The service serves through Routes, so the route table itself has to
// dispatch; handler methods working in isolation is not enough.
func TestRoutesDispatchToHandlers(t *testing.T) {
	h := newTestHandler(t)
	mux := Routes(h, analytics.NewAggregator(), health.NewChecker())

	tests := []struct {
		method string
		target string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/v1/search?q=solar", "", http.StatusOK},
		{http.MethodPost, "/api/v1/search?q=solar", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/feedback", `{"query":"solar","relevant":[{"docId":"d1"}]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/cache/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/analytics", "", http.StatusOK},
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCacheStatsReportsDisabledWithoutRedis(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	h.CacheStats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "disabled" {
		t.Fatalf("status = %q, want disabled", body["status"])
	}
}
