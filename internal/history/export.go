package history

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"driverreview/internal/models"
)

const exportSheet = "Decisions"

var exportHeader = []interface{}{
	"Decided At", "Driver ID", "Telegram ID", "Full Name", "Outcome", "Reasons",
}

// WriteXLSX writes decisions as a single-sheet workbook, one row per decision
// after a header row.
func WriteXLSX(w io.Writer, decisions []models.Decision) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, d := range decisions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			d.DecidedAt.UTC().Format(time.RFC3339),
			d.DriverID,
			d.TelegramID,
			d.FullName,
			d.Outcome(),
			strings.Join(d.Reasons, ", "),
		}
		if err = f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "D", "D", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "F", "F", 60); err != nil {
		return err
	}

	return f.Write(w)
}
