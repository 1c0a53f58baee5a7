package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eps-report/internal/types"
)

func setupYearlyPrices(t *testing.T) *YearlyPrices {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "stock_data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return NewYearlyPrices(db)
}

func TestYearlyPrices_PerMarketTables(t *testing.T) {
	ctx := context.Background()
	y := setupYearlyPrices(t)

	require.NoError(t, y.UpsertYearlyPrices(ctx, types.MarketTWSE, []types.YearlyPriceRecord{
		{StockID: "2330", Year: 2023, HighestPrice: 593, HighestDate: "112/07/31", LowestPrice: 446, LowestDate: "112/01/03", AverageClose: 532.5},
		{StockID: "2317", Year: 2023, HighestPrice: 120, LowestPrice: 98, AverageClose: 104},
	}))
	require.NoError(t, y.UpsertYearlyPrices(ctx, types.MarketTPEx, []types.YearlyPriceRecord{
		{StockID: "3152", Year: 2022, HighestPrice: 300, LowestPrice: 200, AverageClose: 250},
	}))

	years, err := y.StoredYears(ctx, types.MarketTWSE, "2330")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{2023: true}, years)

	years, err = y.StoredYears(ctx, types.MarketTWSE, "3152")
	require.NoError(t, err)
	assert.Empty(t, years)

	last, err := y.LastStockForYear(ctx, types.MarketTWSE, 2023)
	require.NoError(t, err)
	assert.Equal(t, "2330", last)

	last, err = y.LastStockForYear(ctx, types.MarketTPEx, 2023)
	require.NoError(t, err)
	assert.Empty(t, last)

	got, err := y.Get(ctx, types.MarketTWSE, "2330", 2023)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "112/07/31", got.HighestDate)
	assert.Equal(t, 532.5, got.AverageClose)

	missing, err := y.Get(ctx, types.MarketTPEx, "2330", 2023)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestYearlyPrices_ReplaceAndUnknownMarket(t *testing.T) {
	ctx := context.Background()
	y := setupYearlyPrices(t)

	rec := types.YearlyPriceRecord{StockID: "2330", Year: 2023, HighestPrice: 1, LowestPrice: 1, AverageClose: 1}
	require.NoError(t, y.UpsertYearlyPrices(ctx, types.MarketTWSE, []types.YearlyPriceRecord{rec}))
	rec.AverageClose = 2
	require.NoError(t, y.UpsertYearlyPrices(ctx, types.MarketTWSE, []types.YearlyPriceRecord{rec}))

	got, err := y.Get(ctx, types.MarketTWSE, "2330", 2023)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.AverageClose)

	_, err = y.StoredYears(ctx, types.Market("nyse"), "2330")
	assert.Error(t, err)
}
