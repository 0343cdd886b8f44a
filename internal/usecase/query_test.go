package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/ports"
)

type fakeCatalog struct {
	ports.Catalog
	records []domain.AbstractRecord
}

func (f *fakeCatalog) Abstracts(context.Context) ([]domain.AbstractRecord, error) {
	return f.records, nil
}

type fakeRanker struct {
	idxs      []int
	calls     int
	gotCorpus []string
	gotK      int
}

func (f *fakeRanker) TopK(_ context.Context, _ string, corpus []string, k int) ([]int, error) {
	f.calls++
	f.gotCorpus = corpus
	f.gotK = k
	return f.idxs, nil
}

type fakeReducer struct {
	summary string
	err     error
	gotDocs []domain.AbstractRecord
}

func (f *fakeReducer) Summarize(_ context.Context, _ string, docs []domain.AbstractRecord, _ domain.GenerationParams) (string, error) {
	f.gotDocs = docs
	return f.summary, f.err
}

type fakeReports struct {
	saveErr   error
	savedName string
	savedBody []byte
}

func (f *fakeReports) Save(name string, content []byte) (string, error) {
	f.savedName = name
	f.savedBody = content
	return name, f.saveErr
}

func (f *fakeReports) Latest() (string, []byte, error) {
	if f.savedName == "" {
		return "", nil, apperr.ErrNotFound
	}
	return f.savedName, f.savedBody, nil
}

func (f *fakeReports) CleanupOlderThan(time.Duration) (int, error) { return 0, nil }

func record(doi, title, abstract string) domain.AbstractRecord {
	return domain.AbstractRecord{DOI: &doi, Title: title, Abstract: abstract, Date: "2025-08-02"}
}

func TestAbstractQueryPipeline(t *testing.T) {
	catalog := &fakeCatalog{records: []domain.AbstractRecord{
		record("10.1101/a", "A", "about mice"),
		record("10.1101/b", "B", "about yeast"),
		record("10.1101/c", "C", "about spike proteins"),
	}}
	ranker := &fakeRanker{idxs: []int{2, 0}}
	reducer := &fakeReducer{summary: "a synthesis"}
	reports := &fakeReports{}

	svc := NewQueryService(QueryDeps{
		Catalog: catalog,
		Ranker:  ranker,
		Reducer: reducer,
		Reports: reports,
		TopK:    5,
	})

	res, err := svc.AbstractQuery(context.Background(), "spike protein binding", 2)
	if err != nil {
		t.Fatalf("AbstractQuery: %v", err)
	}
	if res.Summary != "a synthesis" {
		t.Errorf("summary = %q", res.Summary)
	}

	if len(ranker.gotCorpus) != 3 || ranker.gotCorpus[2] != "about spike proteins" {
		t.Errorf("corpus = %v", ranker.gotCorpus)
	}
	if ranker.gotK != 2 {
		t.Errorf("k = %d, want 2", ranker.gotK)
	}

	// matched documents follow the ranker's order
	if len(res.Documents) != 2 || res.Documents[0].Title != "C" || res.Documents[1].Title != "A" {
		t.Errorf("documents = %+v", res.Documents)
	}
	if len(reducer.gotDocs) != 2 || reducer.gotDocs[0].Title != "C" {
		t.Errorf("reducer docs = %+v", reducer.gotDocs)
	}

	if reports.savedName == "" {
		t.Error("expected a report to be persisted")
	}
	if !strings.Contains(string(reports.savedBody), "a synthesis") {
		t.Error("report body should embed the summary")
	}
}

func TestAbstractQueryEmptyQuery(t *testing.T) {
	svc := NewQueryService(QueryDeps{Catalog: &fakeCatalog{}})

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.AbstractQuery(context.Background(), q, 5)
		if !errors.Is(err, apperr.ErrBadInput) {
			t.Errorf("query %q: err = %v, want ErrBadInput", q, err)
		}
	}
}

func TestAbstractQueryEmptyCorpus(t *testing.T) {
	ranker := &fakeRanker{}
	svc := NewQueryService(QueryDeps{
		Catalog: &fakeCatalog{},
		Ranker:  ranker,
		Reducer: &fakeReducer{},
	})

	res, err := svc.AbstractQuery(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("AbstractQuery: %v", err)
	}
	if res.Summary != "" || len(res.Documents) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if ranker.calls != 0 {
		t.Errorf("ranker called %d times on an empty corpus", ranker.calls)
	}
}

func TestAbstractQueryReportFailureIsNonFatal(t *testing.T) {
	svc := NewQueryService(QueryDeps{
		Catalog: &fakeCatalog{records: []domain.AbstractRecord{record("10.1101/a", "A", "text")}},
		Ranker:  &fakeRanker{idxs: []int{0}},
		Reducer: &fakeReducer{summary: "ok"},
		Reports: &fakeReports{saveErr: errors.New("disk full")},
	})

	res, err := svc.AbstractQuery(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("AbstractQuery: %v", err)
	}
	if res.Summary != "ok" {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestLatestReportWithoutStore(t *testing.T) {
	svc := NewQueryService(QueryDeps{Catalog: &fakeCatalog{}})
	_, _, err := svc.LatestReport()
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
