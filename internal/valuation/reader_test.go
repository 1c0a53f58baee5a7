package valuation

import (
	"context"
	"errors"
	"sort"

	"eps-report/internal/types"
)

// memReader is an in-memory FundamentalsReader
type memReader struct {
	quarterly map[string][]types.QuarterlyRecord
	monthly   map[string][]types.MonthlyRevenueRecord
	multiples map[string][]types.YearlyMultipleRecord
	err       error
}

func newMemReader() *memReader {
	return &memReader{
		quarterly: make(map[string][]types.QuarterlyRecord),
		monthly:   make(map[string][]types.MonthlyRevenueRecord),
		multiples: make(map[string][]types.YearlyMultipleRecord),
	}
}

var errStore = errors.New("store unavailable")

func (m *memReader) addQuarter(id string, year, q int, eps, netIncome, revenue, capital float64) {
	m.quarterly[id] = append(m.quarterly[id], types.QuarterlyRecord{
		StockID:           id,
		Quarter:           types.Quarter{Year: year, Q: q},
		EPS:               eps,
		NetIncomeAfterTax: netIncome,
		QuarterRevenue:    revenue,
		Capital:           capital,
	})
}

func (m *memReader) addMonth(id string, year, month int, yoy *float64) {
	m.monthly[id] = append(m.monthly[id], types.MonthlyRevenueRecord{
		StockID:      id,
		RevenueMonth: types.Month{Year: year, Month: month},
		YoYGrowth:    yoy,
	})
}

func (m *memReader) addMultiple(id string, year int, high, avg, low *float64) {
	m.multiples[id] = append(m.multiples[id], types.YearlyMultipleRecord{
		StockID:    id,
		Year:       year,
		HighestPER: high,
		AveragePER: avg,
		LowestPER:  low,
	})
}

func (m *memReader) QuarterlyYears(_ context.Context, id string) ([]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := map[int]bool{}
	var years []int
	for _, r := range m.quarterly[id] {
		if !seen[r.Quarter.Year] {
			seen[r.Quarter.Year] = true
			years = append(years, r.Quarter.Year)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (m *memReader) QuarterlyRange(_ context.Context, id string, from, to int) ([]types.QuarterlyRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []types.QuarterlyRecord
	for _, r := range m.sortedQuarters(id) {
		if r.Quarter.Year >= from && r.Quarter.Year <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReader) RecentQuarterly(_ context.Context, id string, n int) ([]types.QuarterlyRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows := m.sortedQuarters(id)
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (m *memReader) RecentMonthlyRevenue(_ context.Context, id string, n int) ([]types.MonthlyRevenueRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows := append([]types.MonthlyRevenueRecord(nil), m.monthly[id]...)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].RevenueMonth.String() > rows[j].RevenueMonth.String()
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (m *memReader) YearlyMultiples(_ context.Context, id string, from, to int) ([]types.YearlyMultipleRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []types.YearlyMultipleRecord
	for _, r := range m.multiples[id] {
		if r.Year >= from && r.Year <= to {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// sortedQuarters returns rows most recent first
func (m *memReader) sortedQuarters(id string) []types.QuarterlyRecord {
	rows := append([]types.QuarterlyRecord(nil), m.quarterly[id]...)
	sort.Slice(rows, func(i, j int) bool { return rows[j].Quarter.Before(rows[i].Quarter) })
	return rows
}

func f(v float64) *float64 { return &v }
