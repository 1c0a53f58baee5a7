package valuation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
	"eps-report/internal/types"
)

// Engine runs eligibility, estimation, banding and classification per stock
type Engine struct {
	config Config
	reader FundamentalsReader
	now    func() time.Time
}

var _ interfaces.Valuator = (*Engine)(nil)

// NewEngine creates an engine; zero config fields take their defaults
func NewEngine(config Config, reader FundamentalsReader) *Engine {
	return &Engine{
		config: config.WithDefaults(),
		reader: reader,
		now:    time.Now,
	}
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.config
}

// Run values every requested stock and returns the results ranked by bucket
// priority. A store failure aborts the whole run.
func (e *Engine) Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error) {
	results := make([]types.ValuationResult, 0, len(req.Stocks))
	for _, stock := range req.Stocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		price, hasPrice := req.Prices[stock.ID]
		res, err := e.ValueStock(ctx, stock, req.ReportYear, price, hasPrice)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results = append(results, *res)
		}
	}

	Rank(results)

	return &types.RunResult{
		RunID:       uuid.NewString(),
		ReportYear:  req.ReportYear,
		GeneratedAt: e.now(),
		Considered:  len(req.Stocks),
		Results:     results,
	}, nil
}

// ValueStock returns nil without error when the stock is excluded for lack
// of data, a non-positive estimate or a missing price.
func (e *Engine) ValueStock(ctx context.Context, stock types.Stock, reportYear int, latestClose float64, hasPrice bool) (*types.ValuationResult, error) {
	eligible, err := e.IsEligible(ctx, stock.ID, reportYear)
	if err != nil {
		return nil, err
	}
	if !eligible {
		logger.Debug(ctx, "Stock not eligible", "stock_id", stock.ID, "report_year", reportYear)
		return nil, nil
	}

	est, err := e.EstimateEPS(ctx, stock.ID, reportYear)
	if err != nil {
		return nil, err
	}
	if est.EPS <= 0 {
		logger.Debug(ctx, "Estimated EPS not positive",
			"stock_id", stock.ID,
			"eps", est.EPS,
			"capital_base", est.CapitalBase,
		)
		return nil, nil
	}

	bands, err := e.PriceBands(ctx, stock.ID, est.EPS, reportYear)
	if err != nil {
		return nil, err
	}
	if bands == nil {
		logger.Debug(ctx, "No usable yearly multiples", "stock_id", stock.ID)
		return nil, nil
	}
	logger.Debug(ctx, "Bands computed", "stock_id", stock.ID, "bands", bands.String())

	if !hasPrice {
		logger.Debug(ctx, "No latest price", "stock_id", stock.ID)
		return nil, nil
	}

	res := &types.ValuationResult{
		StockID:            stock.ID,
		Name:               stock.Name,
		LatestClose:        round2(latestClose),
		EstimatedEPS:       round2(est.EPS),
		LastMonthYoYGrowth: round2(est.RecentYoY[0]),
		Cheap:              round2(bands.Cheap),
		Fair:               round2(bands.Fair),
		Expensive:          round2(bands.Expensive),
	}
	res.Bucket = Classify(res.LatestClose, res.Cheap, res.Expensive, est.RecentYoY)

	logger.Valuation(ctx, res.StockID, string(res.Bucket), res.LatestClose, res.Cheap, res.Fair, res.Expensive,
		"estimated_eps", res.EstimatedEPS,
		"growth", est.Growth,
		"net_margin", est.NetMargin,
	)
	return res, nil
}

// Rank sorts results by bucket priority, keeping input order within a bucket
func Rank(results []types.ValuationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Bucket.Priority() < results[j].Bucket.Priority()
	})
}

// round2 rounds the exact binary value of v to 2 decimals, ties to even.
// 2.675 is stored as 2.67499... and becomes 2.67.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// String is used in log lines
func (b *Bands) String() string {
	return fmt.Sprintf("cheap=%.2f fair=%.2f expensive=%.2f years=%v", b.Cheap, b.Fair, b.Expensive, b.Years)
}
