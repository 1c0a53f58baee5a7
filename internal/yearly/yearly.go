// Package yearly imports each stock's yearly trading range (high, low and
// average close) from the TWSE and TPEx statistics pages.
package yearly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eps-report/internal/logger"
	"eps-report/internal/types"
)

// DefaultInterval spaces requests to the exchanges
const DefaultInterval = 3 * time.Second

// ErrNoRecentData is returned when a stock has no row inside the lookback window
var ErrNoRecentData = errors.New("no yearly data in window")

// Source fetches the published yearly rows of one stock
type Source interface {
	Market() types.Market
	// Lookback is how many years before the current one are kept
	Lookback() int
	Fetch(ctx context.Context, stockID string) ([]types.YearlyPriceRecord, error)
}

// Store is the database side used by the importer
type Store interface {
	StoredYears(ctx context.Context, market types.Market, stockID string) (map[int]bool, error)
	LastStockForYear(ctx context.Context, market types.Market, year int) (string, error)
	UpsertYearlyPrices(ctx context.Context, market types.Market, records []types.YearlyPriceRecord) error
}

// Summary counts what one import run did
type Summary struct {
	Market types.Market
	// Resumed stocks were skipped because an earlier run already reached them
	Resumed   int
	Processed int
	Written   int
}

type Importer struct {
	source Source
	store  Store
	now    func() time.Time
}

func NewImporter(source Source, store Store) *Importer {
	return &Importer{source: source, store: store, now: time.Now}
}

// Run imports stocks in order. It resumes after the largest stock id that
// already has a row for last year, and stops at the first stock that fails.
func (im *Importer) Run(ctx context.Context, stocks []types.Stock) (Summary, error) {
	market := im.source.Market()
	sum := Summary{Market: market}
	year := im.now().Year()

	last, err := im.store.LastStockForYear(ctx, market, year-1)
	if err != nil {
		return sum, err
	}
	if last != "" {
		logger.Info(ctx, "Resuming yearly import", "market", market, "after", last)
	}

	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if last != "" && stock.ID <= last {
			logger.Debug(ctx, "Already processed", "market", market, "stock_id", stock.ID)
			sum.Resumed++
			continue
		}

		n, err := im.importStock(ctx, stock.ID, year)
		if err != nil {
			return sum, fmt.Errorf("failed to import %s %s: %w", stock.ID, stock.Name, err)
		}
		sum.Processed++
		sum.Written += n
		logger.Info(ctx, "Yearly prices saved", "market", market, "stock_id", stock.ID, "name", stock.Name, "rows", n)
	}
	return sum, nil
}

func (im *Importer) importStock(ctx context.Context, stockID string, year int) (int, error) {
	market := im.source.Market()
	records, err := im.source.Fetch(ctx, stockID)
	if err != nil {
		return 0, err
	}

	from := year - im.source.Lookback()
	var recent []types.YearlyPriceRecord
	for _, r := range records {
		if r.Year >= from && r.Year <= year {
			recent = append(recent, r)
		}
	}
	if len(recent) == 0 {
		return 0, fmt.Errorf("%w [%d, %d]", ErrNoRecentData, from, year)
	}

	stored, err := im.store.StoredYears(ctx, market, stockID)
	if err != nil {
		return 0, err
	}
	fresh := recent[:0]
	for _, r := range recent {
		if stored[r.Year] {
			logger.Debug(ctx, "Year already stored", "market", market, "stock_id", stockID, "year", r.Year)
			continue
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := im.store.UpsertYearlyPrices(ctx, market, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
