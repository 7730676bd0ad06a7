package transporthttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// stubRunner 返回固定报告
type stubRunner struct {
	report *model.FinalReport
}

func (s *stubRunner) Run(ctx context.Context, query string) *model.FinalReport {
	s.report.Query = query
	return s.report
}

func newTestServer() *Server {
	return NewServer(&stubRunner{report: &model.FinalReport{
		RunID: "run-1",
		Sources: []model.SourceAnalysis{{
			Source:   model.SourceYouTube,
			Analysis: model.Analysis{Source: "youtube", Summary: "ok", Sentiment: model.Sentiment{Overall: model.SentimentPositive, Confidence: 0.9}},
		}},
	}}, time.Minute)
}

func TestResearchEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"query":"acme phone"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var report model.FinalReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.Query != "acme phone" {
		t.Errorf("Query = %q", report.Query)
	}
	if len(report.Sources) != 1 {
		t.Errorf("Sources = %d, want 1", len(report.Sources))
	}
}

func TestResearchEndpointRejectsBadRequests(t *testing.T) {
	srv := newTestServer()
	cases := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"GET 不允许", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"缺少 query", http.MethodPost, `{}`, http.StatusBadRequest},
		{"非法 JSON", http.MethodPost, `{"query":`, http.StatusBadRequest},
		{"未知字段", http.MethodPost, `{"query":"q","topic":"x"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/research", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
