package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/ports"
)

// QueryDeps wires all driven adapters into the retrieval pipeline.
type QueryDeps struct {
	Catalog ports.Catalog
	Ranker  ports.Ranker
	Reducer ports.Reducer
	Reports ports.ReportStore
	Params  domain.GenerationParams
	TopK    int
	Logger  *slog.Logger
}

// QueryService answers similarity queries over the stored corpus and
// folds the best matches into one synthesis.
type QueryService struct {
	catalog ports.Catalog
	ranker  ports.Ranker
	reducer ports.Reducer
	reports ports.ReportStore
	params  domain.GenerationParams
	topK    int
	logger  *slog.Logger
}

// QueryResult is the outcome of one abstract query.
type QueryResult struct {
	Summary   string                  `json:"summary"`
	Documents []domain.AbstractRecord `json:"documents"`
}

// NewQueryService constructs the retrieval pipeline.
func NewQueryService(deps QueryDeps) *QueryService {
	topK := deps.TopK
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		catalog: deps.Catalog,
		ranker:  deps.Ranker,
		reducer: deps.Reducer,
		reports: deps.Reports,
		params:  deps.Params,
		topK:    topK,
		logger:  deps.Logger,
	}
}

// AbstractQuery ranks the corpus against the query abstract and reduces
// the top matches into a single summary. The rendered report is persisted
// best effort; a report-store failure never fails the query itself.
func (s *QueryService) AbstractQuery(ctx context.Context, query string, topN int) (QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return QueryResult{}, fmt.Errorf("query text is required: %w", apperr.ErrBadInput)
	}
	if topN <= 0 {
		topN = s.topK
	}

	records, err := s.catalog.Abstracts(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("load corpus: %w", err)
	}
	if len(records) == 0 {
		return QueryResult{Summary: ""}, nil
	}

	corpus := make([]string, len(records))
	for i, rec := range records {
		corpus[i] = rec.Abstract
	}

	idxs, err := s.ranker.TopK(ctx, query, corpus, topN)
	if err != nil {
		return QueryResult{}, fmt.Errorf("rank corpus: %w", err)
	}

	matched := make([]domain.AbstractRecord, 0, len(idxs))
	for _, i := range idxs {
		matched = append(matched, records[i])
	}

	summary, err := s.reducer.Summarize(ctx, query, matched, s.params)
	if err != nil {
		return QueryResult{}, fmt.Errorf("reduce matches: %w", err)
	}

	s.saveReport(query, summary, matched)

	return QueryResult{Summary: summary, Documents: matched}, nil
}

// LatestReport returns the most recent persisted report.
func (s *QueryService) LatestReport() (string, []byte, error) {
	if s.reports == nil {
		return "", nil, apperr.ErrNotFound
	}
	return s.reports.Latest()
}

func (s *QueryService) saveReport(query, summary string, docs []domain.AbstractRecord) {
	if s.reports == nil {
		return
	}
	name := fmt.Sprintf("literature_summary_%s.html", time.Now().UTC().Format("20060102T150405Z"))
	if _, err := s.reports.Save(name, renderReport(query, summary, docs)); err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to persist report", "name", name, "error", err)
		}
	}
}

func renderReport(query, summary string, docs []domain.AbstractRecord) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Literature Summary</title></head><body>\n")
	b.WriteString("<h1>Literature Summary</h1>\n")
	b.WriteString("<h2>Query</h2>\n<p>" + html.EscapeString(query) + "</p>\n")
	b.WriteString("<h2>Summary</h2>\n<p>" + html.EscapeString(summary) + "</p>\n")
	b.WriteString("<h2>Sources</h2>\n<ul>\n")
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		doi := "no DOI"
		if doc.HasDOI() {
			doi = *doc.DOI
		}
		b.WriteString(fmt.Sprintf("<li>%s (%s, %s)</li>\n",
			html.EscapeString(title), html.EscapeString(doi), html.EscapeString(doc.Date)))
	}
	b.WriteString("</ul>\n</body></html>\n")
	return []byte(b.String())
}
