package valuation

import (
	"context"
	"fmt"
)

// IsEligible reports whether the stock has enough history and was profitable
// in every year of the profit window ending at reportYear.
func (e *Engine) IsEligible(ctx context.Context, stockID string, reportYear int) (bool, error) {
	years, err := e.reader.QuarterlyYears(ctx, stockID)
	if err != nil {
		return false, fmt.Errorf("failed to read fiscal years for %s: %w", stockID, err)
	}
	if len(years) < e.config.MinHistoryYears {
		return false, nil
	}

	from := reportYear - e.config.ProfitWindowYears + 1
	rows, err := e.reader.QuarterlyRange(ctx, stockID, from, reportYear)
	if err != nil {
		return false, fmt.Errorf("failed to read quarterly EPS for %s: %w", stockID, err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	yearlyEPS := make(map[int]float64)
	for _, r := range rows {
		yearlyEPS[r.Quarter.Year] += r.EPS
	}

	for y := from; y <= reportYear; y++ {
		eps, ok := yearlyEPS[y]
		if !ok {
			if e.config.AllowMissingYears {
				continue
			}
			return false, nil
		}
		if eps <= 0 {
			return false, nil
		}
	}
	return true, nil
}
