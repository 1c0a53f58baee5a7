package database

import (
	"context"
	"database/sql"
	"fmt"

	"eps-report/internal/types"
)

// yearlyTables maps a market to its price history table. Table names cannot
// be bound as parameters, so only these two are ever interpolated.
var yearlyTables = map[types.Market]string{
	types.MarketTWSE: "YearlyData",
	types.MarketTPEx: "OTCYearlyData",
}

// YearlyPrices reads and writes the per-market yearly trading range tables
type YearlyPrices struct {
	db *sql.DB
}

func NewYearlyPrices(db *DB) *YearlyPrices {
	return &YearlyPrices{db: db.Conn()}
}

func yearlyTable(market types.Market) (string, error) {
	table, ok := yearlyTables[market]
	if !ok {
		return "", fmt.Errorf("no yearly price table for market %q", market)
	}
	return table, nil
}

// StoredYears returns the years already held for stockID
func (y *YearlyPrices) StoredYears(ctx context.Context, market types.Market, stockID string) (map[int]bool, error) {
	table, err := yearlyTable(market)
	if err != nil {
		return nil, err
	}
	rows, err := y.db.QueryContext(ctx, `SELECT year FROM `+table+` WHERE stock_no = ?`, stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stored years: %w", err)
	}
	defer rows.Close()

	years := make(map[int]bool)
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan stored year: %w", err)
		}
		years[year] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stored years: %w", err)
	}
	return years, nil
}

// LastStockForYear returns the largest stock id holding a row for year, or
// "" when there is none
func (y *YearlyPrices) LastStockForYear(ctx context.Context, market types.Market, year int) (string, error) {
	table, err := yearlyTable(market)
	if err != nil {
		return "", err
	}
	var last sql.NullString
	err = y.db.QueryRowContext(ctx, `SELECT MAX(stock_no) FROM `+table+` WHERE year = ?`, year).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to query last processed stock: %w", err)
	}
	return last.String, nil
}

// Get returns one stored row, or nil when absent
func (y *YearlyPrices) Get(ctx context.Context, market types.Market, stockID string, year int) (*types.YearlyPriceRecord, error) {
	table, err := yearlyTable(market)
	if err != nil {
		return nil, err
	}
	var (
		r         = types.YearlyPriceRecord{StockID: stockID, Year: year}
		high, low sql.NullFloat64
		avg       sql.NullFloat64
		hd, ld    sql.NullString
	)
	err = y.db.QueryRowContext(ctx, `
		SELECT highest_price, highest_date, lowest_price, lowest_date, average_close_price
		FROM `+table+`
		WHERE stock_no = ? AND year = ?
	`, stockID, year).Scan(&high, &hd, &low, &ld, &avg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query yearly price %s %d: %w", stockID, year, err)
	}
	r.HighestPrice, r.HighestDate = high.Float64, hd.String
	r.LowestPrice, r.LowestDate = low.Float64, ld.String
	r.AverageClose = avg.Float64
	return &r, nil
}

// UpsertYearlyPrices inserts or replaces rows in one transaction
func (y *YearlyPrices) UpsertYearlyPrices(ctx context.Context, market types.Market, records []types.YearlyPriceRecord) error {
	table, err := yearlyTable(market)
	if err != nil {
		return err
	}
	return WithTransaction(y.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO `+table+`
			(stock_no, year, highest_price, highest_date, lowest_price, lowest_date, average_close_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare yearly price upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.StockID, r.Year, r.HighestPrice, r.HighestDate, r.LowestPrice, r.LowestDate, r.AverageClose); err != nil {
				return fmt.Errorf("failed to upsert yearly price %s %d: %w", r.StockID, r.Year, err)
			}
		}
		return nil
	})
}
