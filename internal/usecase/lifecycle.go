package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"LiteratureHarvester/internal/ingest"
	"LiteratureHarvester/internal/ports"
)

// LifecycleDeps wires the background responsibilities together.
type LifecycleDeps struct {
	Coordinator   *ingest.Coordinator
	Catalog       ports.Catalog
	Archive       ports.Archive
	Reports       ports.ReportStore
	IngestDriver  ports.Scheduler
	CleanupDriver ports.Scheduler
	IngestOpts    ingest.Options
	ReportTTL     time.Duration
	Logger        *slog.Logger
}

// Lifecycle owns the periodic background loops: re-ingestion from the
// watermark and report cleanup. Both run only on the designated lead
// process; no distributed lock guards against duplicate replicas.
type Lifecycle struct {
	coordinator   *ingest.Coordinator
	catalog       ports.Catalog
	archive       ports.Archive
	reports       ports.ReportStore
	ingestDriver  ports.Scheduler
	cleanupDriver ports.Scheduler
	ingestOpts    ingest.Options
	reportTTL     time.Duration
	logger        *slog.Logger
}

// NewLifecycle constructs the background orchestration component.
func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	return &Lifecycle{
		coordinator:   deps.Coordinator,
		catalog:       deps.Catalog,
		archive:       deps.Archive,
		reports:       deps.Reports,
		ingestDriver:  deps.IngestDriver,
		cleanupDriver: deps.CleanupDriver,
		ingestOpts:    deps.IngestOpts,
		reportTTL:     deps.ReportTTL,
		logger:        deps.Logger,
	}
}

// Reset wipes the catalog and clears the archive prefix. The caller must
// have passed the configuration gate; this method does not re-check it.
func (l *Lifecycle) Reset(ctx context.Context) error {
	l.warn("destructive reset requested, wiping catalog and archive")
	if err := l.catalog.Drop(ctx); err != nil {
		return fmt.Errorf("reset catalog: %w", err)
	}
	if l.archive != nil {
		removed, err := l.archive.RemoveAll(ctx)
		if err != nil {
			// archive wipe is best effort, catalog wipe already happened
			l.warn("archive wipe incomplete", "removed", removed, "error", err)
		}
	}
	return nil
}

// Start prepares the catalog and registers both periodic loops with their
// drivers. All loops honor ctx cancellation.
func (l *Lifecycle) Start(ctx context.Context) error {
	if err := l.catalog.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("prepare catalog: %w", err)
	}

	if l.ingestDriver != nil && l.coordinator != nil {
		if err := l.ingestDriver.Start(ctx, func(time.Time) { l.ingestCycle(ctx) }); err != nil {
			return fmt.Errorf("start ingest loop: %w", err)
		}
	}
	if l.cleanupDriver != nil && l.reports != nil {
		if err := l.cleanupDriver.Start(ctx, func(time.Time) { l.cleanupCycle() }); err != nil {
			return fmt.Errorf("start cleanup loop: %w", err)
		}
	}
	return nil
}

// Stop tears down both loop drivers.
func (l *Lifecycle) Stop(ctx context.Context) error {
	if l.ingestDriver != nil {
		if err := l.ingestDriver.Stop(ctx); err != nil {
			return err
		}
	}
	if l.cleanupDriver != nil {
		return l.cleanupDriver.Stop(ctx)
	}
	return nil
}

// ingestCycle resumes harvesting at the watermark and runs through today.
// Re-checking the watermark date itself is fine: ingestion is idempotent.
func (l *Lifecycle) ingestCycle(ctx context.Context) {
	start, err := l.catalog.LatestDate(ctx)
	if err != nil {
		l.warn("cannot resolve watermark, skipping cycle", "error", err)
		return
	}
	end := time.Now().UTC()

	if err := l.coordinator.Ingest(ctx, start, end, l.ingestOpts); err != nil {
		l.warn("ingestion cycle aborted", "error", err)
	}
}

func (l *Lifecycle) cleanupCycle() {
	removed, err := l.reports.CleanupOlderThan(l.reportTTL)
	if err != nil {
		l.warn("report cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		l.info("report cleanup done", "removed", removed)
	}
}

func (l *Lifecycle) info(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *Lifecycle) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}
