package bootstrap

import (
	"context"
	"fmt"
	"time"

	gcsclient "cloud.google.com/go/storage"

	"github.com/mkorchagin/smartdoc/internal/config"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
	"github.com/mkorchagin/smartdoc/internal/core/usecase"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/archive"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/extractor/pdfextract"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/llm/gemini"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/report"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/repository/postgres"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/resilience"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/storage/gcs"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/storage/localfs"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/textnorm"
	"github.com/mkorchagin/smartdoc/internal/observability/metrics"
)

type App struct {
	Config config.Config

	ClassifyUC ports.BatchClassifier
	ArchiveUC  ports.ArchiveService
	Reporter   *report.Reporter
	Metrics    *metrics.Metrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	taxonomy, err := config.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig())
	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.GeminiRPS, exec)
	classifier := gemini.NewClassifier(geminiClient, taxonomy.Labels, taxonomy.AllowUnrecognized)

	var recorder ports.OutcomeRecorder
	closeDB := func() {}
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewOutcomeRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			closeStore()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		recorder = repo
		closeDB = func() { _ = db.Close() }
	}

	classifyUC := usecase.NewClassifyBatchUseCase(
		pdfextract.New(),
		textnorm.New(),
		classifier,
		store,
		recorder,
		cfg.BatchWorkers,
		time.Duration(cfg.ClassifyTimeoutSeconds)*time.Second,
		cfg.ExcerptMaxChars,
	)
	archiveUC := usecase.NewDownloadArchiveUseCase(store, archive.NewBuilder(store))

	return &App{
		Config:     cfg,
		ClassifyUC: classifyUC,
		ArchiveUC:  archiveUC,
		Reporter:   report.NewReporter(store),
		Metrics:    metrics.New("smartdoc-api"),

		closeFn: func() {
			closeDB()
			closeStore()
		},
	}, nil
}

func newStore(ctx context.Context, cfg config.Config) (ports.DocumentStore, func(), error) {
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, nil, fmt.Errorf("GCS_BUCKET must be set for the gcs storage backend")
		}
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		return gcs.New(client, cfg.GCSBucket), func() { _ = client.Close() }, nil
	case "local":
		store, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
