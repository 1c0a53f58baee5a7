package valuation

import (
	"context"

	"eps-report/internal/types"
)

// FundamentalsReader is the read side of the fundamentals store.
// "Recent" queries return rows ordered by period, most recent first.
type FundamentalsReader interface {
	// QuarterlyYears returns the distinct fiscal years with quarterly rows
	QuarterlyYears(ctx context.Context, stockID string) ([]int, error)
	// QuarterlyRange returns quarterly rows with from <= year <= to
	QuarterlyRange(ctx context.Context, stockID string, from, to int) ([]types.QuarterlyRecord, error)
	RecentQuarterly(ctx context.Context, stockID string, n int) ([]types.QuarterlyRecord, error)
	RecentMonthlyRevenue(ctx context.Context, stockID string, n int) ([]types.MonthlyRevenueRecord, error)
	// YearlyMultiples returns rows with from <= year <= to, ordered by year
	YearlyMultiples(ctx context.Context, stockID string, from, to int) ([]types.YearlyMultipleRecord, error)
}
