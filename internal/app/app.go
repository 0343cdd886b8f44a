package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"LiteratureHarvester/internal/api"
	"LiteratureHarvester/internal/config"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/infrastructure/archive"
	"LiteratureHarvester/internal/infrastructure/feed"
	"LiteratureHarvester/internal/infrastructure/llm"
	"LiteratureHarvester/internal/infrastructure/ml"
	"LiteratureHarvester/internal/infrastructure/reports"
	"LiteratureHarvester/internal/infrastructure/scheduler"
	"LiteratureHarvester/internal/infrastructure/storage"
	"LiteratureHarvester/internal/ingest"
	"LiteratureHarvester/internal/logging"
	"LiteratureHarvester/internal/ports"
	"LiteratureHarvester/internal/rank"
	"LiteratureHarvester/internal/summary"
	"LiteratureHarvester/internal/usecase"
)

// Application wires configs to adapters, use cases and the HTTP surface.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	catalog   *storage.MongoCatalog
	lifecycle *usecase.Lifecycle
	server    *http.Server
}

// New builds a runnable application instance. It dials the catalog and the
// object store; everything else stays off the network until first use.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	mongoClient, err := storage.Connect(ctx, cfg.Catalog.URI)
	if err != nil {
		return nil, fmt.Errorf("connect catalog: %w", err)
	}
	catalog := storage.NewMongoCatalog(
		mongoClient,
		cfg.Catalog.Database,
		cfg.Catalog.Collection,
		cfg.Catalog.Epoch(),
		baseLogger.With("component", "catalog"),
	)

	store, err := archive.NewS3Archive(archive.Options{
		Endpoint:  cfg.Archive.Endpoint,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		UseSSL:    cfg.Archive.Secure(),
	}, cfg.Archive.Bucket, cfg.Archive.Prefix, baseLogger.With("component", "archive"))
	if err != nil {
		return nil, fmt.Errorf("connect archive: %w", err)
	}

	feedClient := feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.PageSize, nil,
		baseLogger.With("component", "feed"))

	coordinator := ingest.NewCoordinator(catalog, store, feedClient,
		baseLogger.With("component", "ingest"))

	var generator ports.Generator
	if cfg.Generation.APIKey != "" {
		generator = llm.NewClient(cfg.Generation)
	}
	var embedder ports.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = ml.NewClient(cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.APIKey)
	}

	reportStore, err := reports.NewStore(cfg.Background.ReportDir,
		baseLogger.With("component", "reports"))
	if err != nil {
		return nil, fmt.Errorf("prepare report store: %w", err)
	}

	queryService := usecase.NewQueryService(usecase.QueryDeps{
		Catalog: catalog,
		Ranker:  rank.NewRanker(embedder),
		Reducer: summary.NewReducer(generator, cfg.Generation.ContextWindow,
			baseLogger.With("component", "reducer")),
		Reports: reportStore,
		Params: domain.GenerationParams{
			MaxNewTokens:      cfg.Generation.MaxNewTokens,
			Temperature:       cfg.Generation.SamplingTemperature(),
			RepetitionPenalty: cfg.Generation.RepetitionPenalty,
		},
		TopK:   cfg.Query.TopK,
		Logger: baseLogger.With("component", "query"),
	})

	lifecycle := usecase.NewLifecycle(usecase.LifecycleDeps{
		Coordinator:   coordinator,
		Catalog:       catalog,
		Archive:       store,
		Reports:       reportStore,
		IngestDriver:  scheduler.NewIntervalScheduler(cfg.Background.IngestEvery()),
		CleanupDriver: scheduler.NewIntervalScheduler(cfg.Background.CleanupEvery()),
		IngestOpts:    ingest.Options{MaxPages: cfg.Feed.MaxPages, SkipExisting: true},
		ReportTTL:     cfg.Background.TTL(),
		Logger:        baseLogger.With("component", "lifecycle"),
	})

	handlers := api.NewHandlers(api.HandlersDeps{
		Query:    queryService,
		Restorer: coordinator,
		TopN:     cfg.Query.TopK,
		Logger:   baseLogger.With("component", "api"),
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		catalog:   catalog,
		lifecycle: lifecycle,
		server:    server,
	}, nil
}

// Run starts the HTTP server and, when enabled, the background loops.
// It blocks until ctx is cancelled, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.maybeReset(ctx); err != nil {
		return err
	}

	if a.cfg.Background.Enabled {
		if err := a.lifecycle.Start(ctx); err != nil {
			return fmt.Errorf("start background loops: %w", err)
		}
	} else {
		// the query path still relies on the indexes
		if err := a.catalog.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("prepare catalog: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if a.cfg.Background.Enabled {
			if err := a.lifecycle.Stop(shutdownCtx); err != nil {
				a.logger.Warn("background loops did not stop cleanly", "error", err)
			}
		}
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// maybeReset performs the destructive reset when, and only when, the
// request is confirmed with the exact catalog database name. A requested
// but unconfirmed reset aborts startup rather than being silently skipped.
func (a *Application) maybeReset(ctx context.Context) error {
	if !a.cfg.Background.Reset {
		return nil
	}
	if a.cfg.Background.ResetConfirm != a.cfg.Catalog.Database {
		return fmt.Errorf("reset requested but confirmation %q does not match database %q",
			a.cfg.Background.ResetConfirm, a.cfg.Catalog.Database)
	}
	return a.lifecycle.Reset(ctx)
}
