package valuation

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Estimate is the forward EPS with the inputs it was derived from
type Estimate struct {
	EPS              float64
	NetMargin        float64
	Growth           float64
	PriorYearRevenue float64
	CapitalBase      float64
	// RecentYoY holds the two most recent monthly yoy figures, absent as 0
	RecentYoY [2]float64
}

// EstimateEPS projects next EPS from prior-year revenue, blended revenue
// growth and trailing net margin. EPS <= 0 means not computable.
func (e *Engine) EstimateEPS(ctx context.Context, stockID string, reportYear int) (*Estimate, error) {
	recent, err := e.reader.RecentQuarterly(ctx, stockID, e.config.MarginQuarters)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent quarters for %s: %w", stockID, err)
	}

	netIncome := make([]float64, 0, len(recent))
	revenue := make([]float64, 0, len(recent))
	for _, q := range recent {
		netIncome = append(netIncome, q.NetIncomeAfterTax)
		revenue = append(revenue, q.QuarterRevenue)
	}
	est := &Estimate{}
	if totalRevenue := floats.Sum(revenue); totalRevenue != 0 {
		est.NetMargin = floats.Sum(netIncome) / totalRevenue
	}

	months, err := e.reader.RecentMonthlyRevenue(ctx, stockID, e.config.GrowthMonths)
	if err != nil {
		return nil, fmt.Errorf("failed to read monthly revenue for %s: %w", stockID, err)
	}
	yoy := make([]float64, len(months))
	for i, m := range months {
		if m.YoYGrowth != nil {
			yoy[i] = *m.YoYGrowth
		}
	}
	for i := 0; i < len(yoy) && i < 2; i++ {
		est.RecentYoY[i] = yoy[i]
	}
	est.Growth = BlendedGrowth(yoy)

	prior, err := e.reader.QuarterlyRange(ctx, stockID, reportYear-1, reportYear-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read prior year revenue for %s: %w", stockID, err)
	}
	for _, q := range prior {
		est.PriorYearRevenue += q.QuarterRevenue
	}

	if len(recent) > 0 {
		est.CapitalBase = recent[0].Capital / 10
	}

	est.EPS = ProjectEPS(est.PriorYearRevenue, est.Growth, est.NetMargin, est.CapitalBase)
	return est, nil
}

// BlendedGrowth is the lesser of the mean and the most recent value of a
// most-recent-first yoy series. An empty series yields 0.
func BlendedGrowth(yoy []float64) float64 {
	if len(yoy) == 0 {
		return 0
	}
	return math.Min(stat.Mean(yoy, nil), yoy[0])
}

// ProjectEPS applies the projection formula; capitalBase <= 0 yields 0
func ProjectEPS(priorYearRevenue, growth, margin, capitalBase float64) float64 {
	if capitalBase <= 0 {
		return 0
	}
	return priorYearRevenue * (1 + growth/100) * margin / capitalBase
}
