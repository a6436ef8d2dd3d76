package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

// ClassifyBatchUseCase drives an upload batch: each document runs
// extract → normalize → classify → place on a bounded worker pool, with
// every failure captured at the worker boundary as a per-document
// outcome. One slow or broken document never aborts its siblings.
type ClassifyBatchUseCase struct {
	extractor  ports.TextExtractor
	normalizer ports.TextNormalizer
	classifier ports.Classifier
	store      ports.DocumentStore
	recorder   ports.OutcomeRecorder

	workers         int
	classifyTimeout time.Duration
	excerptLimit    int
}

func NewClassifyBatchUseCase(
	extractor ports.TextExtractor,
	normalizer ports.TextNormalizer,
	classifier ports.Classifier,
	store ports.DocumentStore,
	recorder ports.OutcomeRecorder,
	workers int,
	classifyTimeout time.Duration,
	excerptLimit int,
) *ClassifyBatchUseCase {
	if workers <= 0 {
		workers = 4
	}
	if classifyTimeout <= 0 {
		classifyTimeout = 30 * time.Second
	}
	return &ClassifyBatchUseCase{
		extractor:       extractor,
		normalizer:      normalizer,
		classifier:      classifier,
		store:           store,
		recorder:        recorder,
		workers:         workers,
		classifyTimeout: classifyTimeout,
		excerptLimit:    excerptLimit,
	}
}

// ClassifyBatch returns exactly one outcome per document, in upload
// order, regardless of completion order.
func (uc *ClassifyBatchUseCase) ClassifyBatch(ctx context.Context, docs []domain.Document) []domain.Outcome {
	batchID := uuid.NewString()
	started := time.Now()
	outcomes := make([]domain.Outcome, len(docs))

	g := new(errgroup.Group)
	g.SetLimit(uc.workers)
	for i := range docs {
		g.Go(func() error {
			outcomes[i] = uc.processOne(ctx, &docs[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failed++
		}
	}
	slog.Info("batch_classified",
		"batch_id", batchID,
		"documents", len(docs),
		"failed", failed,
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)

	if uc.recorder != nil {
		if err := uc.recorder.RecordBatch(ctx, batchID, outcomes); err != nil {
			slog.Warn("batch_outcomes_not_recorded", "batch_id", batchID, "error", err)
		}
	}
	return outcomes
}

func (uc *ClassifyBatchUseCase) processOne(ctx context.Context, doc *domain.Document) domain.Outcome {
	started := time.Now()
	name := domain.SanitizeFilename(doc.Name)
	outcome := domain.Outcome{File: doc.Name, State: domain.StateReceived}

	finish := func() domain.Outcome {
		outcome.Latency = time.Since(started)
		return outcome
	}

	if err := uc.store.Stage(ctx, name, bytes.NewReader(doc.Data)); err != nil {
		outcome.State = domain.StateFailed
		outcome.Err = domain.WrapError(domain.ErrPlacement, "stage document", err)
		return finish()
	}

	outcome.State = domain.StateExtracting
	pages, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		outcome.State = domain.StateFailed
		outcome.Err = err
		return finish()
	}

	text := uc.normalizer.Normalize(strings.Join(pages, " "))
	excerpt := uc.normalizer.Excerpt(text, uc.excerptLimit)

	outcome.State = domain.StateClassifying
	label := uc.classify(ctx, name, excerpt)

	if err := uc.store.Place(ctx, name, label); err != nil {
		outcome.State = domain.StateFailed
		outcome.Err = err
		return finish()
	}

	outcome.State = domain.StatePlaced
	outcome.Label = label
	return finish()
}

// classify never fails the document: any classifier error, including a
// timeout, degrades to the sentinel label.
func (uc *ClassifyBatchUseCase) classify(ctx context.Context, name, excerpt string) string {
	classifyCtx, cancel := context.WithTimeout(ctx, uc.classifyTimeout)
	defer cancel()

	label, err := uc.classifier.Classify(classifyCtx, excerpt)
	if err != nil {
		slog.Warn("classification_degraded", "file", name, "error", err)
		return domain.UnknownLabel
	}
	return domain.SanitizeLabel(label)
}
