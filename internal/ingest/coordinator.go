package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/ports"
)

const dateLayout = "2006-01-02"

// Options controls one ingestion run.
type Options struct {
	// MaxPages is the per-date pagination ceiling, a safety valve against
	// a runaway feed, not a normal termination path.
	MaxPages int
	// SkipExisting probes the catalog by DOI before inserting. When false
	// the unique index alone rejects duplicates.
	SkipExisting bool
}

// Coordinator drives the date-by-date, page-by-page harvest of the feed
// into the catalog, mirroring each newly inserted batch into the archive.
// Re-running over an already-processed range inserts nothing and archives
// nothing new.
type Coordinator struct {
	catalog ports.Catalog
	archive ports.Archive
	feed    ports.Feed
	logger  *slog.Logger
}

// NewCoordinator wires the three storage collaborators.
func NewCoordinator(catalog ports.Catalog, archive ports.Archive, feed ports.Feed, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		catalog: catalog,
		archive: archive,
		feed:    feed,
		logger:  logger,
	}
}

// Ingest harvests every date from start to end inclusive, ascending.
// When the catalog has not been initialized the run is a warning no-op so
// a background cycle never crashes on incomplete setup. Failures inside a
// single date are contained: the date is abandoned and the loop advances.
func (c *Coordinator) Ingest(ctx context.Context, start, end time.Time, opts Options) error {
	ready, err := c.catalog.Ready(ctx)
	if err != nil {
		return fmt.Errorf("probe catalog: %w", err)
	}
	if !ready {
		c.warn("catalog not initialized, skipping ingestion")
		return nil
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}

	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)
	c.info("starting ingestion",
		"start", startDay.Format(dateLayout),
		"end", endDay.Format(dateLayout))

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		date := day.Format(dateLayout)
		if err := c.ingestDate(ctx, date, opts); err != nil {
			c.warn("date ingestion failed, advancing", "date", date, "error", err)
		}
	}
	return nil
}

// ingestDate pages through the feed for one date. Pagination stops on an
// empty page, a short page, or the max-page ceiling.
func (c *Coordinator) ingestDate(ctx context.Context, date string, opts Options) error {
	for page := 0; ; page++ {
		if page >= opts.MaxPages {
			c.warn("reached max page limit, stopping date early", "date", date, "max_pages", opts.MaxPages)
			return nil
		}

		records, err := c.feed.FetchPage(ctx, date, page)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if len(records) == 0 {
			return nil
		}

		inserted := make([]domain.AbstractRecord, 0, len(records))
		var insertErr error
		for _, rec := range records {
			outcome, err := c.insert(ctx, rec, opts)
			if err != nil {
				insertErr = fmt.Errorf("page %d insert: %w", page, err)
				break
			}
			if outcome == domain.Inserted {
				if !rec.HasDOI() {
					c.warn("inserted record without doi", "date", date, "title", truncate(rec.Title, 80))
				}
				inserted = append(inserted, rec)
			}
		}

		// records that reached the catalog must reach the delta log too,
		// even when the page broke off halfway: a re-run sees them as
		// AlreadyExists and would never archive them again
		if len(inserted) > 0 {
			if err := c.archivePage(ctx, date, page, inserted); err != nil {
				if insertErr == nil {
					return err
				}
				c.warn("failed to archive partial page", "date", date, "page", page, "error", err)
			}
		}
		if insertErr != nil {
			return insertErr
		}
		c.info("page ingested", "date", date, "page", page, "fetched", len(records), "inserted", len(inserted))

		if len(records) < c.feed.PageSize() {
			return nil
		}
	}
}

func (c *Coordinator) archivePage(ctx context.Context, date string, page int, inserted []domain.AbstractRecord) error {
	body, err := json.Marshal(inserted)
	if err != nil {
		return fmt.Errorf("page %d marshal delta: %w", page, err)
	}
	if err := c.archive.PutPage(ctx, date, page, body); err != nil {
		return fmt.Errorf("page %d archive: %w", page, err)
	}
	return nil
}

func (c *Coordinator) insert(ctx context.Context, rec domain.AbstractRecord, opts Options) (domain.InsertOutcome, error) {
	if opts.SkipExisting {
		return c.catalog.InsertIfAbsent(ctx, rec)
	}
	return c.catalog.Insert(ctx, rec)
}

// RestoreFromArchive replays one archived object through insert-if-absent
// and returns how many records were actually inserted.
func (c *Coordinator) RestoreFromArchive(ctx context.Context, key string) (int, error) {
	body, err := c.archive.GetObject(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load archive object: %w", err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		return 0, fmt.Errorf("decode archive object %s: %w", key, err)
	}

	inserted := 0
	for _, rec := range records {
		outcome, err := c.catalog.InsertIfAbsent(ctx, rec)
		if err != nil {
			return inserted, fmt.Errorf("restore insert: %w", err)
		}
		if outcome == domain.Inserted {
			inserted++
		}
	}
	c.info("archive object restored", "key", key, "records", len(records), "inserted", inserted)
	return inserted, nil
}

// RestoreAll replays every archived page. Replay order does not matter:
// each insert is idempotent, so the catalog converges to the union of all
// deltas ever written.
func (c *Coordinator) RestoreAll(ctx context.Context) (int, error) {
	keys, err := c.archive.ListKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list archive: %w", err)
	}

	total := 0
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		n, err := c.RestoreFromArchive(ctx, key)
		total += n
		if err != nil {
			return total, err
		}
	}
	c.info("archive replay complete", "objects", len(keys), "inserted", total)
	return total, nil
}

// decodeRecords accepts either a JSON array or a single object body.
func decodeRecords(body []byte) ([]domain.AbstractRecord, error) {
	var records []domain.AbstractRecord
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}
	var one domain.AbstractRecord
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []domain.AbstractRecord{one}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (c *Coordinator) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Coordinator) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
