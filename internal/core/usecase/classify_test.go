package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

type extractorFake struct {
	failFor map[string]error
	delay   time.Duration
}

func (f *extractorFake) Extract(_ context.Context, doc *domain.Document) ([]string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failFor[doc.Name]; ok {
		return nil, err
	}
	return []string{string(doc.Data), ""}, nil
}

type normalizerFake struct{}

func (normalizerFake) Normalize(text string) string {
	return strings.TrimSpace(text)
}

func (normalizerFake) Excerpt(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit]
}

type classifierFake struct {
	labels  map[string]string
	failFor map[string]error
	block   map[string]bool
}

func (f *classifierFake) Classify(ctx context.Context, excerpt string) (string, error) {
	if f.block[excerpt] {
		<-ctx.Done()
		return "", domain.WrapError(domain.ErrClassifier, "classify document", ctx.Err())
	}
	if err, ok := f.failFor[excerpt]; ok {
		return "", err
	}
	if label, ok := f.labels[excerpt]; ok {
		return label, nil
	}
	return "General", nil
}

type storeFake struct {
	mu       sync.Mutex
	staged   map[string]bool
	placed   map[string]string // name -> label
	placeErr map[string]error
	stageErr map[string]error
}

func newStoreFake() *storeFake {
	return &storeFake{
		staged:   make(map[string]bool),
		placed:   make(map[string]string),
		placeErr: make(map[string]error),
		stageErr: make(map[string]error),
	}
}

func (f *storeFake) Stage(_ context.Context, name string, data io.Reader) error {
	if err := f.stageErr[name]; err != nil {
		return err
	}
	if _, err := io.ReadAll(data); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged[name] = true
	return nil
}

func (f *storeFake) Place(_ context.Context, name, label string) error {
	if err := f.placeErr[name]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.staged[name] {
		return domain.WrapError(domain.ErrPlacement, "locate staged document", errors.New("not staged"))
	}
	delete(f.staged, name)
	f.placed[name] = label
	return nil
}

func (f *storeFake) List(context.Context, string) ([]string, error) { return nil, nil }

func (f *storeFake) ListAll(context.Context) ([]ports.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var objects []ports.StoredObject
	for name, label := range f.placed {
		objects = append(objects, ports.StoredObject{Label: label, Name: name})
	}
	return objects, nil
}

func (f *storeFake) Fetch(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *storeFake) Purge(context.Context) error { return nil }

type recorderFake struct {
	mu       sync.Mutex
	batchID  string
	outcomes []domain.Outcome
	err      error
}

func (f *recorderFake) RecordBatch(_ context.Context, batchID string, outcomes []domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchID = batchID
	f.outcomes = outcomes
	return f.err
}

func newUseCase(classifier ports.Classifier, store ports.DocumentStore, recorder ports.OutcomeRecorder) *ClassifyBatchUseCase {
	return NewClassifyBatchUseCase(
		&extractorFake{},
		normalizerFake{},
		classifier,
		store,
		recorder,
		4,
		time.Second,
		500,
	)
}

func TestClassifyBatchPreservesUploadOrder(t *testing.T) {
	const n = 12
	docs := make([]domain.Document, 0, n)
	labels := make(map[string]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("doc-%02d.pdf", i)
		docs = append(docs, domain.Document{Name: name, Data: []byte(name)})
		labels[name] = "Form"
	}

	store := newStoreFake()
	uc := NewClassifyBatchUseCase(
		&extractorFake{delay: time.Millisecond},
		normalizerFake{},
		&classifierFake{labels: labels},
		store,
		nil,
		3,
		time.Second,
		500,
	)

	outcomes := uc.ClassifyBatch(context.Background(), docs)
	if len(outcomes) != n {
		t.Fatalf("expected %d outcomes, got %d", n, len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.File != docs[i].Name {
			t.Fatalf("outcome %d = %s, want %s (upload order broken)", i, outcome.File, docs[i].Name)
		}
		if outcome.State != domain.StatePlaced {
			t.Fatalf("outcome %d state = %s, err = %v", i, outcome.State, outcome.Err)
		}
	}
}

func TestClassifierFailureDegradesToUnknownWithoutAffectingSiblings(t *testing.T) {
	docs := []domain.Document{
		{Name: "a.pdf", Data: []byte("broken")},
		{Name: "b.pdf", Data: []byte("fine")},
	}
	classifier := &classifierFake{
		labels:  map[string]string{"fine": "Letter"},
		failFor: map[string]error{"broken": domain.WrapError(domain.ErrClassifier, "classify document", errors.New("boom"))},
	}
	store := newStoreFake()

	outcomes := newUseCase(classifier, store, nil).ClassifyBatch(context.Background(), docs)

	if outcomes[0].Label != domain.UnknownLabel {
		t.Fatalf("expected sentinel label for a.pdf, got %q", outcomes[0].Label)
	}
	if outcomes[0].State != domain.StatePlaced {
		t.Fatalf("degraded classification must still place: %+v", outcomes[0])
	}
	if outcomes[1].Label != "Letter" || outcomes[1].State != domain.StatePlaced {
		t.Fatalf("sibling affected by classifier failure: %+v", outcomes[1])
	}
	if got := store.placed["a.pdf"]; got != domain.UnknownLabel {
		t.Fatalf("a.pdf placed under %q, want %q", got, domain.UnknownLabel)
	}
}

func TestClassifierTimeoutDegradesToUnknown(t *testing.T) {
	docs := []domain.Document{
		{Name: "slow.pdf", Data: []byte("slow")},
		{Name: "fast.pdf", Data: []byte("fast")},
	}
	classifier := &classifierFake{
		labels: map[string]string{"fast": "Email"},
		block:  map[string]bool{"slow": true},
	}
	store := newStoreFake()
	uc := NewClassifyBatchUseCase(
		&extractorFake{},
		normalizerFake{},
		classifier,
		store,
		nil,
		2,
		20*time.Millisecond,
		500,
	)

	outcomes := uc.ClassifyBatch(context.Background(), docs)
	if outcomes[0].Label != domain.UnknownLabel || outcomes[0].State != domain.StatePlaced {
		t.Fatalf("timeout must degrade to sentinel label, got %+v", outcomes[0])
	}
	if outcomes[1].Label != "Email" {
		t.Fatalf("sibling affected by timeout: %+v", outcomes[1])
	}
}

func TestExtractionFailureFailsOnlyThatDocument(t *testing.T) {
	docs := []domain.Document{
		{Name: "bad.pdf", Data: []byte("bad")},
		{Name: "good.pdf", Data: []byte("good")},
	}
	extractErr := domain.WrapError(domain.ErrExtraction, "parse pdf", errors.New("not a pdf"))
	store := newStoreFake()
	uc := NewClassifyBatchUseCase(
		&extractorFake{failFor: map[string]error{"bad.pdf": extractErr}},
		normalizerFake{},
		&classifierFake{labels: map[string]string{"good": "Contract"}},
		store,
		nil,
		2,
		time.Second,
		500,
	)

	outcomes := uc.ClassifyBatch(context.Background(), docs)
	if !outcomes[0].Failed() || !domain.IsKind(outcomes[0].Err, domain.ErrExtraction) {
		t.Fatalf("expected extraction failure for bad.pdf, got %+v", outcomes[0])
	}
	if outcomes[1].State != domain.StatePlaced || outcomes[1].Label != "Contract" {
		t.Fatalf("sibling affected by extraction failure: %+v", outcomes[1])
	}
	if _, placed := store.placed["bad.pdf"]; placed {
		t.Fatalf("failed document must not be placed")
	}
}

func TestPlacementFailureIsTerminal(t *testing.T) {
	docs := []domain.Document{{Name: "doc.pdf", Data: []byte("x")}}
	store := newStoreFake()
	store.placeErr["doc.pdf"] = domain.WrapError(domain.ErrPlacement, "move into label dir", errors.New("disk full"))

	outcomes := newUseCase(&classifierFake{}, store, nil).ClassifyBatch(context.Background(), docs)
	if !outcomes[0].Failed() || !domain.IsKind(outcomes[0].Err, domain.ErrPlacement) {
		t.Fatalf("expected placement failure, got %+v", outcomes[0])
	}
}

func TestModelLabelIsSanitizedBeforePlacement(t *testing.T) {
	docs := []domain.Document{{Name: "doc.pdf", Data: []byte("x")}}
	classifier := &classifierFake{labels: map[string]string{"x": "  ../etc/Resume\n "}}
	store := newStoreFake()

	outcomes := newUseCase(classifier, store, nil).ClassifyBatch(context.Background(), docs)
	if outcomes[0].Label != "etcResume" {
		t.Fatalf("label not sanitized: %q", outcomes[0].Label)
	}
	if store.placed["doc.pdf"] != outcomes[0].Label {
		t.Fatalf("store label %q differs from outcome %q", store.placed["doc.pdf"], outcomes[0].Label)
	}
}

func TestClassifyBatchRecordsOutcomes(t *testing.T) {
	docs := []domain.Document{
		{Name: "a.pdf", Data: []byte("a")},
		{Name: "b.pdf", Data: []byte("b")},
	}
	recorder := &recorderFake{}

	outcomes := newUseCase(&classifierFake{}, newStoreFake(), recorder).ClassifyBatch(context.Background(), docs)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if recorder.batchID == "" {
		t.Fatalf("expected a batch id to be recorded")
	}
	if len(recorder.outcomes) != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", len(recorder.outcomes))
	}
}

func TestRecorderFailureDoesNotAffectBatchResult(t *testing.T) {
	docs := []domain.Document{{Name: "a.pdf", Data: []byte("a")}}
	recorder := &recorderFake{err: errors.New("db down")}

	outcomes := newUseCase(&classifierFake{}, newStoreFake(), recorder).ClassifyBatch(context.Background(), docs)
	if outcomes[0].State != domain.StatePlaced {
		t.Fatalf("recorder failure must not fail the batch: %+v", outcomes[0])
	}
}

type excerptRecorder struct {
	got string
}

func (f *excerptRecorder) Classify(_ context.Context, excerpt string) (string, error) {
	f.got = excerpt
	return "Form", nil
}

func TestClassifierReceivesBoundedExcerpt(t *testing.T) {
	docs := []domain.Document{{Name: "long.pdf", Data: []byte(strings.Repeat("a", 600))}}
	recorder := &excerptRecorder{}
	uc := NewClassifyBatchUseCase(
		&extractorFake{},
		normalizerFake{},
		recorder,
		newStoreFake(),
		nil,
		1,
		time.Second,
		100,
	)

	uc.ClassifyBatch(context.Background(), docs)
	if len(recorder.got) != 100 {
		t.Fatalf("expected a 100-byte excerpt, got %d bytes", len(recorder.got))
	}
	if recorder.got != strings.Repeat("a", 100) {
		t.Fatalf("excerpt must be a prefix of the normalized text")
	}
}
