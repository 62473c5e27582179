package ratings

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"risk_framework/internal/store"
)

// exportHeader is the fixed column order of the results workbook.
var exportHeader = []string{
	"project_id", "project_name", "rating_date", "optic_name",
	"rating", "justification", "recommendation",
}

const exportDateLayout = "2006-01-02"

// ExportWorkbook writes assessment rows to an xlsx file. A missing file is
// created with a header row; an existing file gets the rows appended after
// its last populated row, without repeating the header.
func ExportWorkbook(path string, rows []store.Assessment) error {
	if len(rows) == 0 {
		return nil
	}

	var f *excelize.File
	var sheet string
	var startRow int

	if _, err := os.Stat(path); os.IsNotExist(err) {
		f = excelize.NewFile()
		sheet = f.GetSheetName(0)
		if err := writeRow(f, sheet, 1, headerCells()); err != nil {
			f.Close()
			return err
		}
		startRow = 2
	} else {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open results workbook %s: %w", path, err)
		}
		sheet = f.GetSheetName(0)
		existing, err := f.GetRows(sheet)
		if err != nil {
			f.Close()
			return fmt.Errorf("read results workbook %s: %w", path, err)
		}
		startRow = len(existing) + 1
	}
	defer f.Close()

	for i, row := range rows {
		cells := []any{
			row.ProjectID,
			row.ProjectName,
			row.RatingDate.Format(exportDateLayout),
			row.OpticName,
			row.Rating,
			row.Justification,
			row.Recommendation,
		}
		if err := writeRow(f, sheet, startRow+i, cells); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save results workbook %s: %w", path, err)
	}
	return nil
}

func headerCells() []any {
	cells := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		cells[i] = h
	}
	return cells
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
