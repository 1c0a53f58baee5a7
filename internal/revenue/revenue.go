// Package revenue imports the monthly revenue open-data CSV into the store.
package revenue

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"eps-report/internal/api"
	"eps-report/internal/logger"
	"eps-report/internal/types"
)

// DefaultSource is the listed-company monthly revenue file
const DefaultSource = "https://mopsfin.twse.com.tw/opendata/t187ap05_L.csv"

const (
	colStockID = "公司代號"
	colRevenue = "營業收入-當月營收"
	colYoY     = "營業收入-去年同月增減(%)"
)

// Row is one company line of the CSV
type Row struct {
	StockID        string `csv:"公司代號"`
	MonthlyRevenue string `csv:"營業收入-當月營收"`
	YoYGrowth      string `csv:"營業收入-去年同月增減(%)"`
}

// Writer is the store side used by the importer
type Writer interface {
	UpsertMonthlyRevenue(ctx context.Context, records []types.MonthlyRevenueRecord) error
}

type Importer struct {
	client *api.Client
	store  Writer
}

func NewImporter(client *api.Client, store Writer) *Importer {
	return &Importer{client: client, store: store}
}

// Import reads source (a path or http(s) URL), keeps the rows whose code is
// in codes, stamps them with month and upserts them. It returns the number
// of rows written.
func (im *Importer) Import(ctx context.Context, source string, month types.Month, codes map[string]bool) (int, error) {
	raw, err := im.read(ctx, source)
	if err != nil {
		return 0, err
	}

	rows, err := Parse(raw)
	if err != nil {
		return 0, err
	}

	records := Filter(ctx, rows, codes, month)
	if len(records) == 0 {
		logger.Warn(ctx, "No portfolio rows in revenue file", "source", source, "rows", len(rows))
		return 0, nil
	}

	if err := im.store.UpsertMonthlyRevenue(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to save monthly revenue: %w", err)
	}
	logger.Info(ctx, "Monthly revenue imported", "month", month.String(), "rows", len(records))
	return len(records), nil
}

func (im *Importer) read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := im.client.GET(ctx, source, api.BrowserHeaders())
		if err != nil {
			return nil, fmt.Errorf("failed to download revenue file: %w", err)
		}
		return resp.Body, nil
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read revenue file: %w", err)
	}
	return b, nil
}

// Parse decodes the CSV after checking the required columns are present
func Parse(raw []byte) ([]Row, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	header, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read revenue header: %w", err)
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range []string{colStockID, colRevenue, colYoY} {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("revenue file is missing columns: %s", strings.Join(missing, ", "))
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse revenue file: %w", err)
	}
	return rows, nil
}

// Filter converts rows for the given codes. Rows with an unreadable revenue
// are skipped; an empty yoy cell becomes nil.
func Filter(ctx context.Context, rows []Row, codes map[string]bool, month types.Month) []types.MonthlyRevenueRecord {
	var out []types.MonthlyRevenueRecord
	for _, r := range rows {
		id := strings.TrimSpace(r.StockID)
		if !codes[id] {
			continue
		}
		revenue, ok, err := parseNumber(r.MonthlyRevenue)
		if err != nil || !ok {
			logger.Warn(ctx, "Skipping revenue row", "stock_id", id, "value", r.MonthlyRevenue)
			continue
		}
		rec := types.MonthlyRevenueRecord{
			StockID:        id,
			RevenueMonth:   month,
			MonthlyRevenue: revenue,
		}
		if yoy, ok, err := parseNumber(r.YoYGrowth); err == nil && ok {
			rec.YoYGrowth = &yoy
		}
		out = append(out, rec)
	}
	return out
}

// parseNumber reports ok=false for an empty cell
func parseNumber(s string) (float64, bool, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
