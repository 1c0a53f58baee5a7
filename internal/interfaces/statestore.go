package interfaces

import (
	"context"

	"eps-report/internal/types"
)

// StateStore persists the bucket of every stock from the previous run
type StateStore interface {
	Load(ctx context.Context) (map[string]types.Bucket, error)
	Replace(ctx context.Context, state map[string]types.Bucket) error
}
