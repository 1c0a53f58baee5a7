package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"eps-report/internal/types"
)

const sheetName = "EPS Report"

// WriteXLSX writes the result table with numeric cells plus bucket and changed columns
func WriteXLSX(path string, results []types.ValuationResult) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := append(append([]string{}, Columns...), "Bucket", "Changed")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for idx, r := range results {
		values := []any{
			r.StockID,
			r.Name,
			r.LatestClose,
			r.EstimatedEPS,
			r.LastMonthYoYGrowth,
			r.Cheap,
			r.Fair,
			r.Expensive,
			string(r.Bucket),
			r.Changed,
		}
		cell, _ := excelize.CoordinatesToCellName(1, idx+2)
		if err := wb.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", idx+2, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = wb.SetColWidth(sheetName, "A", last, 14)
	_ = wb.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write xlsx %s: %w", path, err)
	}
	return nil
}
