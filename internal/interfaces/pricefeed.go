package interfaces

import "context"

// PriceFeed returns the latest close per stock id
type PriceFeed interface {
	LatestPrices(ctx context.Context) (map[string]float64, error)
}
