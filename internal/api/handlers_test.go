package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/usecase"
)

type fakeQueryService struct {
	result     usecase.QueryResult
	err        error
	gotQuery   string
	gotTopN    int
	reportName string
	reportBody []byte
	reportErr  error
}

func (f *fakeQueryService) AbstractQuery(_ context.Context, query string, topN int) (usecase.QueryResult, error) {
	f.gotQuery = query
	f.gotTopN = topN
	return f.result, f.err
}

func (f *fakeQueryService) LatestReport() (string, []byte, error) {
	return f.reportName, f.reportBody, f.reportErr
}

type fakeRestorer struct {
	count  int
	err    error
	gotKey string
}

func (f *fakeRestorer) RestoreFromArchive(_ context.Context, key string) (int, error) {
	f.gotKey = key
	return f.count, f.err
}

func newTestServer(q QueryService, rest Restorer) *httptest.Server {
	h := NewHandlers(HandlersDeps{Query: q, Restorer: rest, TopN: 5, Logger: nil})
	return httptest.NewServer(NewRouter(h))
}

func TestAbstractQuery(t *testing.T) {
	doi := "10.1101/x"
	svc := &fakeQueryService{result: usecase.QueryResult{
		Summary: "a summary",
		Documents: []domain.AbstractRecord{
			{Title: "Paper", DOI: &doi, Date: "2025-08-02"},
		},
	}}
	srv := newTestServer(svc, &fakeRestorer{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/abstract-query", "application/json",
		strings.NewReader(`{"query":"spike protein"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.gotQuery != "spike protein" {
		t.Errorf("query = %q", svc.gotQuery)
	}
	if svc.gotTopN != 5 {
		t.Errorf("topN = %d, want default 5", svc.gotTopN)
	}

	var body abstractQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Summary != "a summary" {
		t.Errorf("summary = %q", body.Summary)
	}
	if len(body.Documents) != 1 || body.Documents[0].DOI != doi {
		t.Errorf("documents = %+v", body.Documents)
	}
}

func TestAbstractQueryMissingQuery(t *testing.T) {
	srv := newTestServer(&fakeQueryService{}, &fakeRestorer{})
	defer srv.Close()

	for _, payload := range []string{`{}`, `{"query":"   "}`, `not json`} {
		resp, err := http.Post(srv.URL+"/abstract-query", "application/json",
			strings.NewReader(payload))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("payload %q: status = %d, want 400", payload, resp.StatusCode)
		}
	}
}

func TestAbstractQueryUpstreamFailure(t *testing.T) {
	svc := &fakeQueryService{err: apperr.ErrUnavailable}
	srv := newTestServer(svc, &fakeRestorer{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/abstract-query", "application/json",
		strings.NewReader(`{"query":"q"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	var body errResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Error("expected structured error body")
	}
}

func TestIngest(t *testing.T) {
	rest := &fakeRestorer{count: 42}
	srv := newTestServer(&fakeQueryService{}, rest)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/ingest", "application/json",
		bytes.NewReader([]byte(`{"key":"abstracts/2025-08-02/page_0.json"}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if rest.gotKey != "abstracts/2025-08-02/page_0.json" {
		t.Errorf("key = %q", rest.gotKey)
	}
	var body ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "Ingested" || body.Count != 42 {
		t.Errorf("body = %+v", body)
	}
}

func TestIngestMissingKey(t *testing.T) {
	srv := newTestServer(&fakeQueryService{}, &fakeRestorer{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/ingest", "application/json",
		strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLiteratureSummary(t *testing.T) {
	svc := &fakeQueryService{
		reportName: "literature_summary_20250830.html",
		reportBody: []byte("<html><body>report</body></html>"),
	}
	srv := newTestServer(svc, &fakeRestorer{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/literature-summary")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestLiteratureSummaryAbsent(t *testing.T) {
	svc := &fakeQueryService{reportErr: apperr.ErrNotFound}
	srv := newTestServer(svc, &fakeRestorer{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/literature-summary")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var body errResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Error("expected structured error body")
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeQueryService{}, &fakeRestorer{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
