package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

const (
	incomingDir = "incoming"
	sortedDir   = "sorted"
)

// Storage keeps documents under <base>/incoming while they are in flight
// and under <base>/sorted/<label>/ once classified.
type Storage struct {
	basePath string

	mu         sync.Mutex
	labelLocks map[string]*sync.Mutex
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/documents"
	}
	s := &Storage{
		basePath:   basePath,
		labelLocks: make(map[string]*sync.Mutex),
	}
	if err := s.ensureLayout(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) ensureLayout() error {
	for _, dir := range []string{s.incoming(), s.sorted()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Storage) incoming() string { return filepath.Join(s.basePath, incomingDir) }
func (s *Storage) sorted() string   { return filepath.Join(s.basePath, sortedDir) }

func (s *Storage) Stage(_ context.Context, name string, data io.Reader) error {
	path := filepath.Join(s.incoming(), name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write staged file: %w", err)
	}
	return nil
}

// Place moves a staged document into its label directory. Creation of the
// label directory is serialized per label so concurrent placements into a
// new label cannot collide; the rename itself overwrites any same-named
// file already under that label.
func (s *Storage) Place(ctx context.Context, name, label string) error {
	lock := s.labelLock(label)
	lock.Lock()
	defer lock.Unlock()

	src := filepath.Join(s.incoming(), name)
	if _, err := os.Stat(src); err != nil {
		return domain.WrapError(domain.ErrPlacement, "locate staged document", err)
	}

	dstDir := filepath.Join(s.sorted(), label)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return domain.WrapError(domain.ErrPlacement, "create label dir", err)
	}

	if err := os.Rename(src, filepath.Join(dstDir, name)); err != nil {
		return domain.WrapError(domain.ErrPlacement, "move into label dir", err)
	}

	// Evict only once the new copy is in place, so a failed move cannot
	// leave the document with no placement at all.
	return s.evictOtherLabels(name, label)
}

// evictOtherLabels removes prior placements of name under any other label
// so a re-classified document never exists twice.
func (s *Storage) evictOtherLabels(name, keepLabel string) error {
	labels, err := os.ReadDir(s.sorted())
	if err != nil {
		return domain.WrapError(domain.ErrPlacement, "scan label dirs", err)
	}
	for _, entry := range labels {
		if !entry.IsDir() || entry.Name() == keepLabel {
			continue
		}
		stale := filepath.Join(s.sorted(), entry.Name(), name)
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.WrapError(domain.ErrPlacement, "remove superseded copy", err)
		}
	}
	return nil
}

func (s *Storage) List(_ context.Context, label string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.sorted(), label))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read label dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) ListAll(ctx context.Context) ([]ports.StoredObject, error) {
	labels, err := os.ReadDir(s.sorted())
	if err != nil {
		return nil, fmt.Errorf("read sorted dir: %w", err)
	}

	var objects []ports.StoredObject
	for _, labelEntry := range labels {
		if !labelEntry.IsDir() {
			continue
		}
		names, err := s.List(ctx, labelEntry.Name())
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			objects = append(objects, ports.StoredObject{Label: labelEntry.Name(), Name: name})
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Label != objects[j].Label {
			return objects[i].Label < objects[j].Label
		}
		return objects[i].Name < objects[j].Name
	})
	return objects, nil
}

func (s *Storage) Fetch(_ context.Context, label, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.sorted(), label, name))
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	return f, nil
}

// Purge drops every staged and placed document and recreates the empty
// incoming/sorted layout, the documented post-download cleanup.
func (s *Storage) Purge(_ context.Context) error {
	for _, dir := range []string{s.incoming(), s.sorted()} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("purge %s: %w", dir, err)
		}
	}
	return s.ensureLayout()
}

func (s *Storage) labelLock(label string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.labelLocks[label]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.labelLocks[label] = lock
	return lock
}
