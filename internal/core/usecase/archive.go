package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

// DownloadArchiveUseCase builds the aggregate archive over the current
// store contents and performs the documented post-download cleanup.
type DownloadArchiveUseCase struct {
	store   ports.DocumentStore
	builder ports.ArchiveBuilder
}

func NewDownloadArchiveUseCase(store ports.DocumentStore, builder ports.ArchiveBuilder) *DownloadArchiveUseCase {
	return &DownloadArchiveUseCase{store: store, builder: builder}
}

// Remote reports whether the store can host the archive itself, in which
// case downloads respond with a URL instead of streaming bytes.
func (uc *DownloadArchiveUseCase) Remote() bool {
	_, ok := uc.store.(ports.ArchivePublisher)
	return ok
}

func (uc *DownloadArchiveUseCase) BuildTo(ctx context.Context, w io.Writer) error {
	return uc.builder.Build(ctx, w)
}

// BuildAndPublish builds the archive in memory, hands it to the store's
// publisher and returns the retrievable URL.
func (uc *DownloadArchiveUseCase) BuildAndPublish(ctx context.Context) (string, error) {
	publisher, ok := uc.store.(ports.ArchivePublisher)
	if !ok {
		return "", domain.WrapError(domain.ErrArchive, "publish archive", fmt.Errorf("store cannot host archives"))
	}

	var buf bytes.Buffer
	if err := uc.builder.Build(ctx, &buf); err != nil {
		return "", err
	}

	name := fmt.Sprintf("all_folders_%s.zip", time.Now().UTC().Format("20060102-150405"))
	url, err := publisher.PublishArchive(ctx, name, &buf)
	if err != nil {
		return "", domain.WrapError(domain.ErrArchive, "publish archive", err)
	}
	return url, nil
}

func (uc *DownloadArchiveUseCase) Cleanup(ctx context.Context) error {
	return uc.store.Purge(ctx)
}
