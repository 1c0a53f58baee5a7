// Package runlog keeps a daily JSON-lines history of valuation runs.
package runlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"eps-report/internal/types"
)

// Entry is one valued stock of one run
type Entry struct {
	Time       string `json:"time"`
	RunID      string `json:"run_id"`
	ReportYear int    `json:"report_year"`
	Portfolio  string `json:"portfolio,omitempty"`
	types.ValuationResult
}

type Log struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

// New writes under dir, dating files in loc
func New(dir string, loc *time.Location) *Log {
	if loc == nil {
		loc = time.Local
	}
	return &Log{dir: dir, loc: loc, now: time.Now}
}

func (l *Log) Dir() string {
	return l.dir
}

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.In(l.loc).Format("2006-01-02")+".txt")
}

// Append writes one line per result of run to today's file
func (l *Log) Append(run *types.RunResult, portfolio string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().In(l.loc)
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	ts := now.Format("2006-01-02 15:04:05")
	for _, r := range run.Results {
		e := Entry{
			Time:            ts,
			RunID:           run.RunID,
			ReportYear:      run.ReportYear,
			Portfolio:       portfolio,
			ValuationResult: r,
		}
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write history entry: %w", err)
		}
	}
	return nil
}

// CompressOlder gzips .txt files not modified within retentionDays.
// Files that fail to compress are left in place.
func (l *Log) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	compressed := 0
	err := filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			_ = os.Remove(gz)
			return nil
		}
		_ = os.Remove(p)
		compressed++
		return nil
	})
	return compressed, err
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
