package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchPageDecodesCollection(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte(`{"collection": [
			{"doi": "10.1101/0001", "title": "<b>First</b>", "abstract": "Cells &amp; genes.", "date": "2025-08-02"},
			{"title": "No DOI here", "abstract": "orphan", "date": "2025-08-02"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, server.Client(), nil)
	records, err := client.FetchPage(context.Background(), "2025-08-02", 3)
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}

	if path := gotPath.Load(); path != "/2025-08-02/2025-08-02/3" {
		t.Fatalf("unexpected request path: %v", path)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "First" {
		t.Fatalf("expected sanitized title, got %q", records[0].Title)
	}
	if records[0].Abstract != "Cells & genes." {
		t.Fatalf("expected decoded abstract, got %q", records[0].Abstract)
	}
	if records[1].HasDOI() {
		t.Fatal("second record should have no DOI")
	}
}

func TestFetchPageEmptyCollection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"collection": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, server.Client(), nil)
	records, err := client.FetchPage(context.Background(), "2025-08-02", 0)
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty page, got %d records", len(records))
	}
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"collection": [{"doi": "10.1101/0002", "title": "t", "abstract": "a", "date": "2025-08-02"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, server.Client(), nil)
	records, err := client.FetchPage(context.Background(), "2025-08-02", 0)
	if err != nil {
		t.Fatalf("FetchPage error after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestFetchPageDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, server.Client(), nil)
	if _, err := client.FetchPage(context.Background(), "2025-08-02", 0); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
