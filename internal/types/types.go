package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quarter identifies a fiscal quarter, e.g. 2024Q3
type Quarter struct {
	Year int
	Q    int
}

func (q Quarter) String() string {
	return fmt.Sprintf("%04dQ%d", q.Year, q.Q)
}

// Before reports whether q is an earlier period than other
func (q Quarter) Before(other Quarter) bool {
	if q.Year != other.Year {
		return q.Year < other.Year
	}
	return q.Q < other.Q
}

// ParseQuarter parses the "YYYYQn" form used by the store
func ParseQuarter(s string) (Quarter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 6 || s[4] != 'Q' {
		return Quarter{}, fmt.Errorf("invalid quarter %q: want YYYYQn", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: %w", s, err)
	}
	q, err := strconv.Atoi(s[5:])
	if err != nil || q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: quarter must be 1-4", s)
	}
	return Quarter{Year: year, Q: q}, nil
}

// Month identifies a revenue month, e.g. 2024-07
type Month struct {
	Year  int
	Month int
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// ParseMonth parses "YYYY-MM"
func ParseMonth(s string) (Month, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Month{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("invalid month %q: month must be 1-12", s)
	}
	return Month{Year: year, Month: month}, nil
}

// QuarterlyRecord is one fiscal quarter of a stock's income statement.
// Absent numeric cells are read as 0.
type QuarterlyRecord struct {
	StockID           string  `json:"stock_id"`
	Quarter           Quarter `json:"quarter"`
	EPS               float64 `json:"eps"`
	NetIncomeAfterTax float64 `json:"net_income_after_tax"`
	QuarterRevenue    float64 `json:"quarter_revenue"`
	Capital           float64 `json:"capital"`
}

// MonthlyRevenueRecord is one month of reported revenue. YoYGrowth is a
// percentage and nil when the source left it blank.
type MonthlyRevenueRecord struct {
	StockID        string   `json:"stock_id"`
	RevenueMonth   Month    `json:"revenue_month"`
	MonthlyRevenue float64  `json:"monthly_revenue"`
	YoYGrowth      *float64 `json:"yoy_growth,omitempty"`
}

// YearlyMultipleRecord holds one calendar year of price/earnings ratios
type YearlyMultipleRecord struct {
	StockID    string   `json:"stock_id"`
	Year       int      `json:"year"`
	HighestPER *float64 `json:"highest_per,omitempty"`
	AveragePER *float64 `json:"average_per,omitempty"`
	LowestPER  *float64 `json:"lowest_per,omitempty"`
}

// Complete reports whether all three multiples are present
func (r YearlyMultipleRecord) Complete() bool {
	return r.HighestPER != nil && r.AveragePER != nil && r.LowestPER != nil
}

// Stock is a portfolio entry
type Stock struct {
	ID   string `json:"stock_id"`
	Name string `json:"name"`
}

// Bucket is the valuation class of a stock
type Bucket string

const (
	BucketRed    Bucket = "red"
	BucketOrange Bucket = "orange"
	BucketGreen  Bucket = "green"
	BucketNone   Bucket = "none"
)

// Priority orders buckets for ranking; lower is more attractively priced
func (b Bucket) Priority() int {
	switch b {
	case BucketRed:
		return 0
	case BucketOrange:
		return 1
	case BucketGreen:
		return 2
	default:
		return 3
	}
}

// Emoji is the indicator used in notifications
func (b Bucket) Emoji() string {
	switch b {
	case BucketRed:
		return "🔴"
	case BucketOrange:
		return "🟠"
	case BucketGreen:
		return "🟢"
	default:
		return "⚪"
	}
}

// ValuationResult is the per-stock output of a run. Changed is filled in by
// the run-state diff.
type ValuationResult struct {
	StockID            string  `json:"stock_id"`
	Name               string  `json:"name"`
	LatestClose        float64 `json:"latest_close"`
	EstimatedEPS       float64 `json:"estimated_eps"`
	LastMonthYoYGrowth float64 `json:"last_month_yoy_growth"`
	Cheap              float64 `json:"cheap"`
	Fair               float64 `json:"fair"`
	Expensive          float64 `json:"expensive"`
	Bucket             Bucket  `json:"bucket"`
	Changed            bool    `json:"changed"`
}

// RunRequest is the input of one valuation batch
type RunRequest struct {
	ReportYear int
	Stocks     []Stock
	// Prices maps stock id to latest close
	Prices map[string]float64
}

// RunResult is the ranked output of one valuation batch
type RunResult struct {
	RunID       string            `json:"run_id"`
	ReportYear  int               `json:"report_year"`
	GeneratedAt time.Time         `json:"generated_at"`
	Considered  int               `json:"considered"`
	Results     []ValuationResult `json:"results"`
}

// BucketMap returns stock id to bucket for every result
func (r *RunResult) BucketMap() map[string]Bucket {
	m := make(map[string]Bucket, len(r.Results))
	for _, res := range r.Results {
		m[res.StockID] = res.Bucket
	}
	return m
}

// Market is the exchange a stock trades on
type Market string

const (
	MarketTWSE Market = "twse"
	MarketTPEx Market = "tpex"
)

// ParseMarket accepts "twse" or "tpex" (also "otc"), case-insensitive
func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "twse":
		return MarketTWSE, nil
	case "tpex", "otc":
		return MarketTPEx, nil
	default:
		return "", fmt.Errorf("invalid market %q: want twse or tpex", s)
	}
}

// YearlyPriceRecord is one calendar year of a stock's trading range. Dates
// are kept as published by the exchange.
type YearlyPriceRecord struct {
	StockID      string  `json:"stock_id"`
	Year         int     `json:"year"`
	HighestPrice float64 `json:"highest_price"`
	HighestDate  string  `json:"highest_date"`
	LowestPrice  float64 `json:"lowest_price"`
	LowestDate   string  `json:"lowest_date"`
	AverageClose float64 `json:"average_close_price"`
}
