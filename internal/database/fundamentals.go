package database

import (
	"context"
	"database/sql"
	"fmt"

	"eps-report/internal/logger"
	"eps-report/internal/types"
	"eps-report/internal/valuation"
)

// Fundamentals reads and writes the quarterly, monthly revenue and yearly
// multiple tables.
type Fundamentals struct {
	db *sql.DB
}

var _ valuation.FundamentalsReader = (*Fundamentals)(nil)

func NewFundamentals(db *DB) *Fundamentals {
	return &Fundamentals{db: db.Conn()}
}

const quarterlyColumns = `quarter, eps, net_income_after_tax, quarter_revenue, capital`

func (f *Fundamentals) QuarterlyYears(ctx context.Context, stockID string) ([]int, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT DISTINCT CAST(SUBSTR(quarter, 1, 4) AS INTEGER) AS y
		FROM stock_quarterly
		WHERE stock_no = ?
		ORDER BY y
	`, stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan fiscal year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fiscal years: %w", err)
	}
	return years, nil
}

func (f *Fundamentals) QuarterlyRange(ctx context.Context, stockID string, from, to int) ([]types.QuarterlyRecord, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT `+quarterlyColumns+`
		FROM stock_quarterly
		WHERE stock_no = ?
		  AND CAST(SUBSTR(quarter, 1, 4) AS INTEGER) BETWEEN ? AND ?
		ORDER BY quarter DESC
	`, stockID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query quarterly range: %w", err)
	}
	defer rows.Close()
	return scanQuarterly(ctx, rows, stockID)
}

func (f *Fundamentals) RecentQuarterly(ctx context.Context, stockID string, n int) ([]types.QuarterlyRecord, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT `+quarterlyColumns+`
		FROM stock_quarterly
		WHERE stock_no = ?
		ORDER BY quarter DESC
		LIMIT ?
	`, stockID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent quarters: %w", err)
	}
	defer rows.Close()
	return scanQuarterly(ctx, rows, stockID)
}

// scanQuarterly skips rows whose quarter is not YYYYQn so one bad cell does
// not abort the batch
func scanQuarterly(ctx context.Context, rows *sql.Rows, stockID string) ([]types.QuarterlyRecord, error) {
	var out []types.QuarterlyRecord
	for rows.Next() {
		var (
			quarter                          string
			eps, netIncome, revenue, capital sql.NullFloat64
		)
		if err := rows.Scan(&quarter, &eps, &netIncome, &revenue, &capital); err != nil {
			return nil, fmt.Errorf("failed to scan quarterly row: %w", err)
		}
		q, err := types.ParseQuarter(quarter)
		if err != nil {
			logger.Warn(ctx, "Skipping quarterly row with malformed quarter", "stock_id", stockID, "quarter", quarter, "error", err)
			continue
		}
		out = append(out, types.QuarterlyRecord{
			StockID:           stockID,
			Quarter:           q,
			EPS:               eps.Float64,
			NetIncomeAfterTax: netIncome.Float64,
			QuarterRevenue:    revenue.Float64,
			Capital:           capital.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quarterly rows: %w", err)
	}
	return out, nil
}

func (f *Fundamentals) RecentMonthlyRevenue(ctx context.Context, stockID string, n int) ([]types.MonthlyRevenueRecord, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT revenue_month, monthly_revenue, yoy_growth
		FROM monthly_revenue
		WHERE stock_no = ?
		ORDER BY revenue_month DESC
		LIMIT ?
	`, stockID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly revenue: %w", err)
	}
	defer rows.Close()

	var out []types.MonthlyRevenueRecord
	for rows.Next() {
		var (
			month        string
			revenue, yoy sql.NullFloat64
		)
		if err := rows.Scan(&month, &revenue, &yoy); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		m, err := types.ParseMonth(month)
		if err != nil {
			return nil, fmt.Errorf("stock %s: %w", stockID, err)
		}
		rec := types.MonthlyRevenueRecord{
			StockID:        stockID,
			RevenueMonth:   m,
			MonthlyRevenue: revenue.Float64,
		}
		if yoy.Valid {
			v := yoy.Float64
			rec.YoYGrowth = &v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly revenue: %w", err)
	}
	return out, nil
}

func (f *Fundamentals) YearlyMultiples(ctx context.Context, stockID string, from, to int) ([]types.YearlyMultipleRecord, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT year, highest_per, average_per, lowest_per
		FROM YearlyPER
		WHERE stock_no = ?
		  AND year BETWEEN ? AND ?
		ORDER BY year
	`, stockID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query yearly multiples: %w", err)
	}
	defer rows.Close()

	var out []types.YearlyMultipleRecord
	for rows.Next() {
		var (
			year           int
			high, avg, low sql.NullFloat64
		)
		if err := rows.Scan(&year, &high, &avg, &low); err != nil {
			return nil, fmt.Errorf("failed to scan yearly multiples: %w", err)
		}
		out = append(out, types.YearlyMultipleRecord{
			StockID:    stockID,
			Year:       year,
			HighestPER: nullable(high),
			AveragePER: nullable(avg),
			LowestPER:  nullable(low),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating yearly multiples: %w", err)
	}
	return out, nil
}

// UpsertQuarterly inserts or replaces quarterly rows in one transaction
func (f *Fundamentals) UpsertQuarterly(ctx context.Context, records []types.QuarterlyRecord) error {
	return WithTransaction(f.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO stock_quarterly
			(stock_no, `+quarterlyColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare quarterly upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.StockID, r.Quarter.String(), r.EPS, r.NetIncomeAfterTax, r.QuarterRevenue, r.Capital); err != nil {
				return fmt.Errorf("failed to upsert quarter %s %s: %w", r.StockID, r.Quarter, err)
			}
		}
		return nil
	})
}

// UpsertMonthlyRevenue inserts or replaces monthly rows; a nil yoy is stored as NULL
func (f *Fundamentals) UpsertMonthlyRevenue(ctx context.Context, records []types.MonthlyRevenueRecord) error {
	return WithTransaction(f.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO monthly_revenue
			(stock_no, monthly_revenue, yoy_growth, revenue_month)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare monthly revenue upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.StockID, r.MonthlyRevenue, toNull(r.YoYGrowth), r.RevenueMonth.String()); err != nil {
				return fmt.Errorf("failed to upsert revenue %s %s: %w", r.StockID, r.RevenueMonth, err)
			}
		}
		return nil
	})
}

// UpsertYearlyMultiples inserts or replaces yearly multiple rows
func (f *Fundamentals) UpsertYearlyMultiples(ctx context.Context, records []types.YearlyMultipleRecord) error {
	return WithTransaction(f.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO YearlyPER
			(stock_no, year, highest_per, average_per, lowest_per)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare yearly multiple upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.StockID, r.Year, toNull(r.HighestPER), toNull(r.AveragePER), toNull(r.LowestPER)); err != nil {
				return fmt.Errorf("failed to upsert multiples %s %d: %w", r.StockID, r.Year, err)
			}
		}
		return nil
	})
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
