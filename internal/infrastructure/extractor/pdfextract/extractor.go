package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
)

// Extractor pulls page-ordered plain text out of PDF bytes.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, doc *domain.Document) (pages []string, err error) {
	// The pdf package panics on some malformed cross-reference tables;
	// convert that into an extraction error instead of killing the worker.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = domain.WrapError(domain.ErrExtraction, "parse pdf", fmt.Errorf("panic: %v", r))
		}
	}()

	if len(doc.Data) == 0 {
		return nil, domain.WrapError(domain.ErrExtraction, "parse pdf", errors.New("empty document"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "parse pdf", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// An unreadable page is an empty page, not a failed document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
