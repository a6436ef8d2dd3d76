package domain

import "time"

// DocumentState tracks one document's progress through the pipeline.
type DocumentState string

const (
	StateReceived    DocumentState = "received"
	StateExtracting  DocumentState = "extracting"
	StateClassifying DocumentState = "classifying"
	StatePlaced      DocumentState = "placed"
	StateFailed      DocumentState = "failed"
)

// UnknownLabel is the fallback class when classification fails or the
// model cannot recognize the document.
const UnknownLabel = "Unknown"

// Document is one uploaded file. Immutable once received; the bytes are
// staged into the store and consumed by extraction.
type Document struct {
	Name string
	Data []byte
}

// Outcome is the per-document result of a batch run. Exactly one Outcome
// exists per submitted Document, in upload order.
type Outcome struct {
	File    string
	Label   string
	State   DocumentState
	Err     error
	Latency time.Duration
}

// Failed reports whether the document ended in a terminal failure state.
// A degraded classification (UnknownLabel) is not a failure.
func (o Outcome) Failed() bool {
	return o.State == StateFailed
}
