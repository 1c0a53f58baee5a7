// Package report renders a ranked result set as PDF and XLSX files.
package report

import (
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"eps-report/internal/types"
)

// Columns of the report table
var Columns = []string{"Stock", "Name", "Close", "Est. EPS", "Last-month YoY", "Cheap", "Fair", "Expensive"}

type Options struct {
	OutputDir string
	// FontPath is a TTF used for CJK names when it exists
	FontPath string
	FontName string
}

// FileName returns eps_report_<YYYYMMDD>[_<portfolio>].<ext>
func FileName(day time.Time, portfolio, ext string) string {
	name := "eps_report_" + day.Format("20060102")
	if portfolio != "" {
		name += "_" + portfolio
	}
	return name + "." + ext
}

// Path joins FileName onto the output dir
func (o Options) Path(day time.Time, portfolio, ext string) string {
	return filepath.Join(o.OutputDir, FileName(day, portfolio, ext))
}

func row(r types.ValuationResult) []string {
	return []string{
		r.StockID,
		r.Name,
		price(r.LatestClose),
		price(r.EstimatedEPS),
		price(r.LastMonthYoYGrowth) + "%",
		price(r.Cheap),
		price(r.Fair),
		price(r.Expensive),
	}
}

// price prints an already rounded figure with exactly two decimals
func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
