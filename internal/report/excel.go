package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/faxfinity/faxsort/internal/journal"
)

const sheetName = "Verarbeitung"

var header = []interface{}{
	"Zeitpunkt", "Original", "Neuer Name", "Status", "Kategorie", "Absender", "Patient", "Details",
}

// Write renders the journal entries as an XLSX processing report.
func Write(entries []journal.Entry, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		row := []interface{}{
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Original,
			e.FinalName,
			e.State,
			e.Category,
			e.Sender,
			e.Patient,
			e.Detail,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
