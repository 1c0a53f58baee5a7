package valuation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"eps-report/internal/types"
)

// Bands is the cheap/fair/expensive price range and the multiples behind it
type Bands struct {
	Cheap     float64
	Fair      float64
	Expensive float64
	// Years kept after outlier removal
	Years []int
}

// PriceBands returns nil when no complete multiple row survives trimming
func (e *Engine) PriceBands(ctx context.Context, stockID string, eps float64, reportYear int) (*Bands, error) {
	from := reportYear - e.config.LookbackYears + 1
	rows, err := e.reader.YearlyMultiples(ctx, stockID, from, reportYear)
	if err != nil {
		return nil, fmt.Errorf("failed to read yearly multiples for %s: %w", stockID, err)
	}
	return ComputeBands(rows, eps), nil
}

// ComputeBands drops incomplete rows, removes IQR outliers and scales the
// mean multiples by eps.
func ComputeBands(rows []types.YearlyMultipleRecord, eps float64) *Bands {
	complete := make([]types.YearlyMultipleRecord, 0, len(rows))
	for _, r := range rows {
		if r.Complete() {
			complete = append(complete, r)
		}
	}

	kept := RemoveOutliers(complete)
	if len(kept) == 0 {
		return nil
	}

	high, mid, low := columns(kept)
	b := &Bands{
		Cheap:     eps * stat.Mean(low, nil),
		Fair:      eps * stat.Mean(mid, nil),
		Expensive: eps * stat.Mean(high, nil),
	}
	for _, r := range kept {
		b.Years = append(b.Years, r.Year)
	}
	return b
}

// RemoveOutliers drops a row when any of its three multiples lies outside
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR] for that column. Rows must be complete.
func RemoveOutliers(rows []types.YearlyMultipleRecord) []types.YearlyMultipleRecord {
	if len(rows) == 0 {
		return nil
	}
	high, mid, low := columns(rows)
	outlier := make([]bool, len(rows))
	for _, col := range [][]float64{high, mid, low} {
		lower, upper := iqrBounds(col)
		for i, v := range col {
			if v < lower || v > upper {
				outlier[i] = true
			}
		}
	}

	kept := make([]types.YearlyMultipleRecord, 0, len(rows))
	for i, r := range rows {
		if !outlier[i] {
			kept = append(kept, r)
		}
	}
	return kept
}

func columns(rows []types.YearlyMultipleRecord) (high, mid, low []float64) {
	high = make([]float64, len(rows))
	mid = make([]float64, len(rows))
	low = make([]float64, len(rows))
	for i, r := range rows {
		high[i] = *r.HighestPER
		mid[i] = *r.AveragePER
		low[i] = *r.LowestPER
	}
	return high, mid, low
}

func iqrBounds(col []float64) (lower, upper float64) {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)
	q1 := Quantile7(0.25, sorted)
	q3 := Quantile7(0.75, sorted)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// Quantile7 returns the p-quantile of sorted data using linear interpolation
// between order statistics at h = (n-1)p (Hyndman-Fan type 7).
func Quantile7(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
