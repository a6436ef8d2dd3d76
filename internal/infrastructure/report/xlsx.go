package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mkorchagin/smartdoc/internal/core/ports"
)

const sheetName = "Classification"

// Reporter renders the current store contents as a spreadsheet, one row
// per placed document.
type Reporter struct {
	store ports.DocumentStore
}

func NewReporter(store ports.DocumentStore) *Reporter {
	return &Reporter{store: store}
}

func (r *Reporter) WriteXLSX(ctx context.Context, w io.Writer) error {
	objects, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list placed documents: %w", err)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	if err := file.SetSheetName(file.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := file.SetCellValue(sheetName, "A1", "Class"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := file.SetCellValue(sheetName, "B1", "Document"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, object := range objects {
		row := i + 2
		if err := file.SetCellValue(sheetName, fmt.Sprintf("A%d", row), object.Label); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if err := file.SetCellValue(sheetName, fmt.Sprintf("B%d", row), object.Name); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
