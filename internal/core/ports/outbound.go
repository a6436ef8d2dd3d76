package ports

import (
	"context"
	"io"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
)

// TextExtractor decodes a document's raw bytes into page-ordered text.
// Blank or unparsable pages yield an empty string for that page.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]string, error)
}

// TextNormalizer cleans extracted text into a canonical flat string and
// bounds it to a classifier-sized excerpt.
type TextNormalizer interface {
	Normalize(text string) string
	Excerpt(text string, limit int) string
}

// Classifier maps a normalized text excerpt to a class label via the
// external generative capability.
type Classifier interface {
	Classify(ctx context.Context, excerpt string) (string, error)
}

// StoredObject addresses one placed document inside the store.
type StoredObject struct {
	Label string
	Name  string
}

// DocumentStore abstracts placing documents under class-named containers,
// backed by a local directory tree or a remote bucket.
type DocumentStore interface {
	// Stage writes an uploaded document into the incoming holding area.
	Stage(ctx context.Context, name string, data io.Reader) error
	// Place moves a staged document into its label container, creating the
	// container if absent (race-safe) and superseding any prior placement
	// of the same name under a different label.
	Place(ctx context.Context, name, label string) error
	List(ctx context.Context, label string) ([]string, error)
	ListAll(ctx context.Context) ([]StoredObject, error)
	Fetch(ctx context.Context, label, name string) (io.ReadCloser, error)
	// Purge removes all staged and placed documents and recreates the
	// empty top-level containers.
	Purge(ctx context.Context) error
}

// ArchivePublisher is implemented by stores that can host a built archive
// and hand out a retrievable URL (the remote bucket backend).
type ArchivePublisher interface {
	PublishArchive(ctx context.Context, name string, data io.Reader) (string, error)
}

// ArchiveBuilder streams a snapshot of the store into a single archive.
type ArchiveBuilder interface {
	Build(ctx context.Context, w io.Writer) error
}

// OutcomeRecorder persists per-document batch outcomes for audit.
type OutcomeRecorder interface {
	RecordBatch(ctx context.Context, batchID string, outcomes []domain.Outcome) error
}
