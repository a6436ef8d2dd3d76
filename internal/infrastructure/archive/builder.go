package archive

import (
	"archive/zip"
	"context"
	"io"
	"sort"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

// Builder streams every placed document into a single ZIP. The store is
// snapshotted at build time; a build racing an in-flight batch may omit
// or include a document depending on timing, which is accepted.
type Builder struct {
	store ports.DocumentStore
}

func NewBuilder(store ports.DocumentStore) *Builder {
	return &Builder{store: store}
}

// Build writes the archive to w. Entries are named <label>/<name> and
// ordered lexicographically by (label, name), so two builds over an
// unchanged store agree on entry order and content.
func (b *Builder) Build(ctx context.Context, w io.Writer) error {
	objects, err := b.store.ListAll(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrArchive, "snapshot store", err)
	}
	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Label != objects[j].Label {
			return objects[i].Label < objects[j].Label
		}
		return objects[i].Name < objects[j].Name
	})

	zw := zip.NewWriter(w)
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return domain.WrapError(domain.ErrArchive, "build canceled", err)
		}
		if err := b.appendEntry(ctx, zw, obj); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return domain.WrapError(domain.ErrArchive, "finalize archive", err)
	}
	return nil
}

func (b *Builder) appendEntry(ctx context.Context, zw *zip.Writer, obj ports.StoredObject) error {
	rc, err := b.store.Fetch(ctx, obj.Label, obj.Name)
	if err != nil {
		return domain.WrapError(domain.ErrArchive, "fetch entry", err)
	}
	defer rc.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   obj.Label + "/" + obj.Name,
		Method: zip.Deflate,
	})
	if err != nil {
		return domain.WrapError(domain.ErrArchive, "create entry", err)
	}
	if _, err := io.Copy(entry, rc); err != nil {
		return domain.WrapError(domain.ErrArchive, "stream entry", err)
	}
	return nil
}
