// Package pricefeed fetches the latest close for listed and OTC stocks.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"eps-report/internal/api"
	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
)

// ErrNoPrices is returned when every source failed
var ErrNoPrices = errors.New("no price source available")

// Source is one upstream quote list
type Source interface {
	Name() string
	Fetch(ctx context.Context) (map[string]float64, error)
}

// Chain merges sources in order; the first source holding an id wins
type Chain struct {
	sources []Source
}

var _ interfaces.PriceFeed = (*Chain)(nil)

func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// LatestPrices fails only when every source fails
func (c *Chain) LatestPrices(ctx context.Context) (map[string]float64, error) {
	prices := make(map[string]float64)
	var errs []error
	for _, src := range c.sources {
		got, err := src.Fetch(ctx)
		if err != nil {
			logger.ErrorWithErr(ctx, "Price source failed", err, "source", src.Name())
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		added := 0
		for id, p := range got {
			if _, ok := prices[id]; ok {
				continue
			}
			prices[id] = p
			added++
		}
		logger.Info(ctx, "Fetched prices", "source", src.Name(), "quotes", len(got), "added", added)
	}

	if len(c.sources) > 0 && len(errs) == len(c.sources) {
		return nil, fmt.Errorf("%w: %w", ErrNoPrices, errors.Join(errs...))
	}
	return prices, nil
}

// quoteSource is a JSON array endpoint with a code field and a price field
type quoteSource struct {
	name       string
	url        string
	codeField  string
	priceField string
	client     *api.Client
}

func (s *quoteSource) Name() string {
	return s.name
}

func (s *quoteSource) Fetch(ctx context.Context) (map[string]float64, error) {
	resp, err := s.client.GET(ctx, s.url, api.NoCacheHeaders())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s quotes: %w", s.name, err)
	}

	var rows []map[string]any
	if err := resp.ParseJSON(&rows); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(rows))
	skipped := 0
	for _, row := range rows {
		code, _ := row[s.codeField].(string)
		code = strings.TrimSpace(code)
		price, ok := parsePrice(row[s.priceField])
		if code == "" || !ok {
			skipped++
			continue
		}
		prices[code] = price
	}
	if skipped > 0 {
		logger.Debug(ctx, "Skipped malformed quotes", "source", s.name, "skipped", skipped)
	}
	return prices, nil
}

func parsePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case string:
		p = strings.ReplaceAll(strings.TrimSpace(p), ",", "")
		if p == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return p, true
	default:
		return 0, false
	}
}
