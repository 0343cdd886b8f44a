package ports

import (
	"context"
	"time"

	"LiteratureHarvester/internal/domain"
)

// Catalog is the queryable, deduplicated store of abstract records.
type Catalog interface {
	// EnsureIndexes creates the date index and the unique sparse DOI index.
	EnsureIndexes(ctx context.Context) error
	// Ready reports whether the collection exists with its indexes in place.
	Ready(ctx context.Context) (bool, error)
	// InsertIfAbsent probes by DOI before inserting; a duplicate-key race is
	// reported as AlreadyExists, never as an error. Records without a DOI
	// are inserted unconditionally.
	InsertIfAbsent(ctx context.Context, rec domain.AbstractRecord) (domain.InsertOutcome, error)
	// Insert skips the probe and relies on the unique index alone.
	Insert(ctx context.Context, rec domain.AbstractRecord) (domain.InsertOutcome, error)
	FindByDOI(ctx context.Context, doi string) (*domain.AbstractRecord, error)
	FindByIndex(ctx context.Context, index int) (*domain.AbstractRecord, error)
	// Abstracts returns the full corpus ordered by date ascending.
	Abstracts(ctx context.Context) ([]domain.AbstractRecord, error)
	// LatestDate is the ingestion watermark: the maximum date present, or
	// the configured epoch when the catalog is empty.
	LatestDate(ctx context.Context) (time.Time, error)
	Count(ctx context.Context) (int64, error)
	Drop(ctx context.Context) error
}

// Archive is write-once object storage holding per-run ingestion deltas.
type Archive interface {
	PutPage(ctx context.Context, date string, page int, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context) ([]string, error)
	RemoveAll(ctx context.Context) (int, error)
}

// Feed pulls one page of abstract records for a given date.
type Feed interface {
	FetchPage(ctx context.Context, date string, page int) ([]domain.AbstractRecord, error)
	// PageSize is the feed's full-page capacity; a shorter page signals
	// end of data for the date.
	PageSize() int
}

// Embedder turns free text into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces a text continuation for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, p domain.GenerationParams) (string, error)
}

// Ranker returns the indices of the top-k corpus entries for a query.
type Ranker interface {
	TopK(ctx context.Context, query string, corpus []string, k int) ([]int, error)
}

// Reducer folds ranked documents into one bounded summary.
type Reducer interface {
	Summarize(ctx context.Context, queryAbstract string, docs []domain.AbstractRecord, p domain.GenerationParams) (string, error)
}

// ReportStore persists rendered reports and reclaims expired ones.
type ReportStore interface {
	Save(name string, content []byte) (string, error)
	Latest() (string, []byte, error)
	CleanupOlderThan(ttl time.Duration) (int, error)
}

// Scheduler controls when background jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
