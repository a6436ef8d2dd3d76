package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/resilience"
)

var testLabels = []string{"Resume", "Contract", "Letter"}

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 1,
		BreakerEnabled:   false,
	})
}

func candidateResponse(text string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(raw)
}

func TestClassifyReturnsTrimmedLabel(t *testing.T) {
	var gotPath string
	var gotBody generateContentRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(candidateResponse("  Resume\n")))
	}))
	defer server.Close()

	client := New(server.URL, "gemini-2.0-flash", "test-key", 100, newTestExecutor())
	classifier := NewClassifier(client, testLabels, true)

	label, err := classifier.Classify(context.Background(), "Experience Education Skills")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if label != "Resume" {
		t.Fatalf("Classify() = %q, want %q", label, "Resume")
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected request path %q", gotPath)
	}

	prompt := gotBody.Contents[0].Parts[0].Text
	for _, label := range testLabels {
		if !strings.Contains(prompt, label) {
			t.Fatalf("prompt missing taxonomy label %q:\n%s", label, prompt)
		}
	}
	if !strings.Contains(prompt, "Unknown") {
		t.Fatalf("prompt missing unrecognized option:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Experience Education Skills") {
		t.Fatalf("prompt missing document excerpt:\n%s", prompt)
	}
}

func TestClassifyServerErrorIsClassifierError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "gemini-2.0-flash", "test-key", 100, newTestExecutor())
	classifier := NewClassifier(client, testLabels, false)

	_, err := classifier.Classify(context.Background(), "text")
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
	if !domain.IsKind(err, domain.ErrClassifier) {
		t.Fatalf("expected ErrClassifier, got %v", err)
	}
}

func TestClassifyRetriesTransientStatus(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(candidateResponse("Letter")))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 1,
		RetryMaxBackoff:     1,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	client := New(server.URL, "gemini-2.0-flash", "test-key", 100, exec)
	classifier := NewClassifier(client, testLabels, false)

	label, err := classifier.Classify(context.Background(), "Dear Sir")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if label != "Letter" {
		t.Fatalf("Classify() = %q, want %q", label, "Letter")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestClassifyEmptyResponseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "gemini-2.0-flash", "test-key", 100, newTestExecutor())
	classifier := NewClassifier(client, testLabels, false)

	_, err := classifier.Classify(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrClassifier) {
		t.Fatalf("expected ErrClassifier for empty response, got %v", err)
	}
}

func TestClassifyHonorsContextTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(candidateResponse("Letter")))
	}))
	defer server.Close()
	defer close(release)

	client := New(server.URL, "gemini-2.0-flash", "test-key", 100, newTestExecutor())
	classifier := NewClassifier(client, testLabels, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := classifier.Classify(ctx, "text")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !domain.IsKind(err, domain.ErrClassifier) {
		t.Fatalf("expected ErrClassifier wrapping, got %v", err)
	}
}
