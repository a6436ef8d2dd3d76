package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

const (
	incomingPrefix = "incoming/"
	sortedPrefix   = "sorted/"
	archivePrefix  = "archives/"
)

// Store keeps documents in a single bucket under incoming/ and
// sorted/<label>/ prefixes, mirroring the local directory layout. GCS
// has no real directories, so label containers exist implicitly and
// concurrent placement into the same label needs no coordination beyond
// a per-label lock around the supersede scan.
type Store struct {
	client *storage.Client
	bucket string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(client *storage.Client, bucket string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) labelLock(label string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[label]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[label] = lock
	}
	return lock
}

func (s *Store) Stage(ctx context.Context, name string, data io.Reader) error {
	writer := s.client.Bucket(s.bucket).Object(incomingPrefix + name).NewWriter(ctx)
	if _, err := io.Copy(writer, data); err != nil {
		_ = writer.Close()
		return domain.WrapError(domain.ErrPlacement, "stage document", err)
	}
	if err := writer.Close(); err != nil {
		return domain.WrapError(domain.ErrPlacement, "stage document", err)
	}
	return nil
}

func (s *Store) Place(ctx context.Context, name, label string) error {
	lock := s.labelLock(label)
	lock.Lock()
	defer lock.Unlock()

	bucket := s.client.Bucket(s.bucket)
	src := bucket.Object(incomingPrefix + name)
	dst := bucket.Object(sortedPrefix + label + "/" + name)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.WrapError(domain.ErrPlacement, "place document", fmt.Errorf("document %s is not staged", name))
		}
		return domain.WrapError(domain.ErrPlacement, "place document", err)
	}
	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return domain.WrapError(domain.ErrPlacement, "place document", err)
	}

	if err := s.evictOtherLabels(ctx, name, label); err != nil {
		return domain.WrapError(domain.ErrPlacement, "place document", err)
	}
	return nil
}

// evictOtherLabels removes the same document name placed under any other
// label, so a re-classified document never appears twice.
func (s *Store) evictOtherLabels(ctx context.Context, name, keepLabel string) error {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: sortedPrefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		label, objName, ok := splitSorted(attrs.Name)
		if !ok || label == keepLabel || objName != name {
			continue
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return err
		}
	}
	return nil
}

func (s *Store) List(ctx context.Context, label string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: sortedPrefix + label + "/"})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list label %s: %w", label, err)
		}
		_, name, ok := splitSorted(attrs.Name)
		if !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) ListAll(ctx context.Context) ([]ports.StoredObject, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: sortedPrefix})
	var objects []ports.StoredObject
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list placed documents: %w", err)
		}
		label, name, ok := splitSorted(attrs.Name)
		if !ok {
			continue
		}
		objects = append(objects, ports.StoredObject{Label: label, Name: name})
	}
	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Label != objects[j].Label {
			return objects[i].Label < objects[j].Label
		}
		return objects[i].Name < objects[j].Name
	})
	return objects, nil
}

func (s *Store) Fetch(ctx context.Context, label, name string) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(s.bucket).Object(sortedPrefix + label + "/" + name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", label, name, err)
	}
	return reader, nil
}

func (s *Store) Purge(ctx context.Context) error {
	for _, prefix := range []string{incomingPrefix, sortedPrefix} {
		if err := s.deletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("purge %s: %w", prefix, err)
		}
	}
	return nil
}

func (s *Store) deletePrefix(ctx context.Context, prefix string) error {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return err
		}
	}
}

// PublishArchive uploads the built archive and makes it publicly
// readable, returning the direct download URL.
func (s *Store) PublishArchive(ctx context.Context, name string, data io.Reader) (string, error) {
	object := s.client.Bucket(s.bucket).Object(archivePrefix + name)

	writer := object.NewWriter(ctx)
	writer.ContentType = "application/zip"
	if _, err := io.Copy(writer, data); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize archive write: %w", err)
	}

	if err := object.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("publish archive: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s%s", s.bucket, archivePrefix, name), nil
}

func splitSorted(objectName string) (label, name string, ok bool) {
	rest := strings.TrimPrefix(objectName, sortedPrefix)
	if rest == objectName {
		return "", "", false
	}
	label, name, found := strings.Cut(rest, "/")
	if !found || label == "" || name == "" {
		return "", "", false
	}
	return label, name, true
}
