package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"eps-report/internal/types"
)

// column widths in mm
var pdfWidths = []float64{24.7, 24.7, 17.6, 17.6, 24.7, 17.6, 17.6, 17.6}

// WritePDF renders the result table on A4 pages
func WritePDF(path string, results []types.ValuationResult, opts Options) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)

	font := "Arial"
	if opts.FontPath != "" {
		if _, err := os.Stat(opts.FontPath); err == nil {
			font = opts.FontName
			if font == "" {
				font = "ReportFont"
			}
			pdf.AddUTF8Font(font, "", opts.FontPath)
		}
	}

	header := func() {
		pdf.SetFont(font, "", 10)
		pdf.SetFillColor(128, 128, 128)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range Columns {
			pdf.CellFormat(pdfWidths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.SetHeaderFunc(header)
	pdf.AddPage()

	pdf.SetFont(font, "", 10)
	for _, r := range results {
		for i, cell := range row(r) {
			align := "C"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(pdfWidths[i], 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf %s: %w", path, err)
	}
	return nil
}
