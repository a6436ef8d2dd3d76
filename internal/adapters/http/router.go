package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/core/ports"
	"github.com/mkorchagin/smartdoc/internal/observability/metrics"
)

// maxUploadBytes caps a whole multipart upload batch.
const maxUploadBytes = 256 << 20

// ReportWriter renders the current store contents as a spreadsheet.
type ReportWriter interface {
	WriteXLSX(ctx context.Context, w io.Writer) error
}

type Router struct {
	classifier ports.BatchClassifier
	archive    ports.ArchiveService
	reporter   ReportWriter
	metrics    *metrics.Metrics
	service    string
}

func NewRouter(
	classifier ports.BatchClassifier,
	archive ports.ArchiveService,
	reporter ReportWriter,
	m *metrics.Metrics,
	service string,
) *Router {
	return &Router{
		classifier: classifier,
		archive:    archive,
		reporter:   reporter,
		metrics:    m,
		service:    service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/upload", rt.upload)
	mux.HandleFunc("/download", rt.download)
	mux.HandleFunc("/report", rt.report)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = corsMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadEntry is one document's line in the upload response.
type uploadEntry struct {
	File  string `json:"file"`
	Class string `json:"class,omitempty"`
	Time  string `json:"time,omitempty"`
	Error string `json:"error,omitempty"`
}

type uploadFooter struct {
	Message      string `json:"message"`
	DownloadLink string `json:"download_link"`
}

func (rt *Router) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No files part in the request"})
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No files part in the request"})
		return
	}

	docs := make([]domain.Document, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("cannot read uploaded file %s", header.Filename)})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("cannot read uploaded file %s", header.Filename)})
			return
		}
		docs = append(docs, domain.Document{Name: header.Filename, Data: data})
	}

	outcomes := rt.classifier.ClassifyBatch(r.Context(), docs)
	if rt.metrics != nil {
		rt.metrics.ObserveBatch(len(outcomes))
	}

	sorted := 0
	response := make([]any, 0, len(outcomes)+1)
	for _, outcome := range outcomes {
		if rt.metrics != nil {
			rt.metrics.ObserveDocument(rt.service, string(outcome.State), outcome.Latency)
		}
		entry := uploadEntry{File: outcome.File}
		if outcome.Failed() {
			entry.Error = outcome.Err.Error()
		} else {
			entry.Class = outcome.Label
			entry.Time = fmt.Sprintf("%.2fs", outcome.Latency.Seconds())
			sorted++
		}
		response = append(response, entry)
	}
	response = append(response, uploadFooter{
		Message:      fmt.Sprintf("%d files uploaded and sorted successfully", sorted),
		DownloadLink: "/download",
	})

	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.archive.Remote() {
		url, err := rt.archive.BuildAndPublish(r.Context())
		if rt.metrics != nil {
			rt.metrics.ObserveArchiveBuild(rt.service, err)
		}
		if err != nil {
			slog.Error("archive_publish_failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build archive"})
			return
		}
		rt.cleanupAfterDownload(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="all_folders.zip"`)
	err := rt.archive.BuildTo(r.Context(), w)
	if rt.metrics != nil {
		rt.metrics.ObserveArchiveBuild(rt.service, err)
	}
	if err != nil {
		// Headers are already out; the truncated stream is all we can signal.
		slog.Error("archive_stream_failed", "error", err)
		return
	}
	rt.cleanupAfterDownload(r.Context())
}

func (rt *Router) cleanupAfterDownload(ctx context.Context) {
	if err := rt.archive.Cleanup(ctx); err != nil {
		slog.Warn("post_download_cleanup_failed", "error", err)
	}
}

func (rt *Router) report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.reporter == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reporting is not enabled"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="classification_report.xlsx"`)
	if err := rt.reporter.WriteXLSX(r.Context(), w); err != nil {
		slog.Error("report_failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
