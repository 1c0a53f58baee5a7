package interfaces

import (
	"context"

	"eps-report/internal/types"
)

// Valuator values a batch of stocks and ranks them by bucket
type Valuator interface {
	Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error)
}
