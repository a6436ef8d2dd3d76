package ports

import (
	"context"
	"io"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
)

// BatchClassifier drives a whole upload batch through the pipeline.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, docs []domain.Document) []domain.Outcome
}

// ArchiveService builds the aggregate archive and cleans the store after
// a completed download cycle.
type ArchiveService interface {
	Remote() bool
	BuildTo(ctx context.Context, w io.Writer) error
	BuildAndPublish(ctx context.Context) (string, error)
	Cleanup(ctx context.Context) error
}
