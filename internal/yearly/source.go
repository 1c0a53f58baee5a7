package yearly

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"eps-report/internal/api"
	"eps-report/internal/types"
)

const (
	TWSEURL = "https://www.twse.com.tw/rwd/zh/afterTrading/FMNPTK"
	TPExURL = "https://www.tpex.org.tw/www/zh-tw/statistics/yearlyStock"

	// yearField marks the yearly statistics table
	yearField = "年度"
	// rocOffset converts a Minguo year to a calendar year
	rocOffset = 1911
)

// ErrNoYearlyTable is returned when a response holds no yearly table
var ErrNoYearlyTable = errors.New("no yearly trading table")

// columns are the row positions of the fields kept from a yearly table
type columns struct {
	high, highDate, low, lowDate, avgClose int
}

type exchangeSource struct {
	market   types.Market
	url      string
	lookback int
	cols     columns
	client   *api.Client
	post     bool
}

// NewTWSE reads the listed-market FMNPTK yearly table. An empty endpoint uses TWSEURL.
func NewTWSE(client *api.Client, endpoint string) Source {
	if endpoint == "" {
		endpoint = TWSEURL
	}
	return &exchangeSource{
		market:   types.MarketTWSE,
		url:      endpoint,
		lookback: 5,
		cols:     columns{high: 4, highDate: 5, low: 6, lowDate: 7, avgClose: 8},
		client:   client,
	}
}

// NewTPEx reads the OTC yearlyStock table. An empty endpoint uses TPExURL.
func NewTPEx(client *api.Client, endpoint string) Source {
	if endpoint == "" {
		endpoint = TPExURL
	}
	return &exchangeSource{
		market:   types.MarketTPEx,
		url:      endpoint,
		lookback: 11,
		cols:     columns{high: 5, highDate: 6, low: 7, lowDate: 8, avgClose: 9},
		client:   client,
		post:     true,
	}
}

func (s *exchangeSource) Market() types.Market {
	return s.market
}

func (s *exchangeSource) Lookback() int {
	return s.lookback
}

func (s *exchangeSource) Fetch(ctx context.Context, stockID string) ([]types.YearlyPriceRecord, error) {
	var (
		resp *api.Response
		err  error
	)
	if s.post {
		resp, err = s.client.Do(ctx, &api.Request{
			Method: http.MethodPost,
			URL:    s.url,
			Form:   url.Values{"code": {stockID}, "id": {""}, "response": {"json"}},
			Headers: map[string]string{
				"Origin":  "https://www.tpex.org.tw",
				"Referer": TPExURL,
			},
		})
	} else {
		q := url.Values{"stockNo": {stockID}, "response": {"json"}}
		resp, err = s.client.GET(ctx, s.url+"?"+q.Encode(), map[string]string{
			"Referer": "https://www.twse.com.tw/",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s yearly data: %w", s.market, err)
	}

	var body payload
	if err := resp.ParseJSON(&body); err != nil {
		return nil, err
	}
	rows, ok := body.yearlyRows()
	if !ok {
		return nil, ErrNoYearlyTable
	}
	return parseRows(stockID, rows, s.cols)
}

type table struct {
	Fields []string `json:"fields"`
	Data   [][]any  `json:"data"`
}

// payload accepts both the "tables" envelope and a single top-level table
type payload struct {
	Tables []table `json:"tables"`
	table
}

func (p payload) yearlyRows() ([][]any, bool) {
	for _, t := range p.Tables {
		if slices.Contains(t.Fields, yearField) {
			return t.Data, true
		}
	}
	if slices.Contains(p.Fields, yearField) {
		return p.Data, true
	}
	return nil, false
}

// parseRows converts raw table rows. Column 0 is the Minguo year; prices may
// carry thousands separators.
func parseRows(stockID string, rows [][]any, cols columns) ([]types.YearlyPriceRecord, error) {
	last := max(cols.high, cols.highDate, cols.low, cols.lowDate, cols.avgClose)
	out := make([]types.YearlyPriceRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) <= last {
			return nil, fmt.Errorf("row %d: want %d columns, got %d", i, last+1, len(row))
		}
		roc, err := strconv.Atoi(cell(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid year %q", i, cell(row[0]))
		}
		high, err := price(row[cols.high])
		if err != nil {
			return nil, fmt.Errorf("row %d: highest price: %w", i, err)
		}
		low, err := price(row[cols.low])
		if err != nil {
			return nil, fmt.Errorf("row %d: lowest price: %w", i, err)
		}
		avg, err := price(row[cols.avgClose])
		if err != nil {
			return nil, fmt.Errorf("row %d: average close: %w", i, err)
		}
		out = append(out, types.YearlyPriceRecord{
			StockID:      stockID,
			Year:         roc + rocOffset,
			HighestPrice: high,
			HighestDate:  cell(row[cols.highDate]),
			LowestPrice:  low,
			LowestDate:   cell(row[cols.lowDate]),
			AverageClose: avg,
		})
	}
	return out, nil
}

func cell(v any) string {
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

func price(v any) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(cell(v), ",", ""))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
