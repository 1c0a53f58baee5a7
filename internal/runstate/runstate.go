// Package runstate tracks the bucket each stock held on the previous run.
package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
	"eps-report/internal/types"
)

// Diff flags a stock as changed only when it has a prior bucket that differs
// from the current one. next is the full replacement state.
func Diff(current, prior map[string]types.Bucket) (changed map[string]bool, next map[string]types.Bucket) {
	changed = make(map[string]bool, len(current))
	next = make(map[string]types.Bucket, len(current))
	for id, bucket := range current {
		prev, ok := prior[id]
		changed[id] = ok && prev != bucket
		next[id] = bucket
	}
	return changed, next
}

// Apply sets Changed on every result and returns the replacement state
func Apply(ctx context.Context, results []types.ValuationResult, prior map[string]types.Bucket) map[string]types.Bucket {
	current := make(map[string]types.Bucket, len(results))
	for _, r := range results {
		current[r.StockID] = r.Bucket
	}
	changed, next := Diff(current, prior)
	for i := range results {
		id := results[i].StockID
		results[i].Changed = changed[id]
		if changed[id] {
			logger.Transition(ctx, id, string(prior[id]), string(results[i].Bucket))
		}
	}
	return next
}

// FileStore keeps the state as a flat JSON object of stock id to bucket
type FileStore struct {
	path string
}

var _ interfaces.StateStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns an empty state when the file is missing or unreadable as JSON
func (s *FileStore) Load(ctx context.Context) (map[string]types.Bucket, error) {
	state := make(map[string]types.Bucket)

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	if err := json.Unmarshal(b, &state); err != nil {
		logger.Warn(ctx, "Ignoring malformed state file", "path", s.path, "error", err)
		return make(map[string]types.Bucket), nil
	}
	return state, nil
}

// Replace overwrites the state with a write-temp-then-rename
func (s *FileStore) Replace(_ context.Context, state map[string]types.Bucket) error {
	if state == nil {
		state = map[string]types.Bucket{}
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
