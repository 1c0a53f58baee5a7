// Package portfolio reads stock universe files of "<code> <name...>" lines.
package portfolio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"eps-report/internal/logger"
	"eps-report/internal/types"
)

// ErrNotFound is returned when a portfolio file does not exist
var ErrNotFound = errors.New("portfolio file not found")

// Load parses one portfolio file. Blank and '#' lines are skipped, lines
// without a name are ignored and name words are joined without a separator.
func Load(path string) ([]types.Stock, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio %s: %w", path, err)
	}
	defer f.Close()

	var list list
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		list.add(types.Stock{ID: parts[0], Name: strings.Join(parts[1:], "")})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read portfolio %s: %w", path, err)
	}
	return list.stocks, nil
}

// LoadMany merges several files; missing files are logged and skipped
func LoadMany(ctx context.Context, paths ...string) ([]types.Stock, error) {
	var list list
	for _, p := range paths {
		stocks, err := Load(p)
		if errors.Is(err, ErrNotFound) {
			logger.Warn(ctx, "Universe file missing", "path", p)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, s := range stocks {
			list.add(s)
		}
	}
	return list.stocks, nil
}

// Name is the file name without directory and extension, used to tag reports
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadCodes reads only the first field of every non-blank, non-comment line,
// so lines holding just a code count too
func LoadCodes(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio %s: %w", path, err)
	}
	defer f.Close()

	codes := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		codes[fields[0]] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read portfolio %s: %w", path, err)
	}
	return codes, nil
}

// Codes returns the set of stock ids
func Codes(stocks []types.Stock) map[string]bool {
	codes := make(map[string]bool, len(stocks))
	for _, s := range stocks {
		codes[s.ID] = true
	}
	return codes
}

// list keeps first-seen order; a repeated id takes the later name
type list struct {
	stocks []types.Stock
	index  map[string]int
}

func (l *list) add(s types.Stock) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[s.ID]; ok {
		l.stocks[i].Name = s.Name
		return
	}
	l.index[s.ID] = len(l.stocks)
	l.stocks = append(l.stocks, s)
}
