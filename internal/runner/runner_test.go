package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eps-report/internal/notify"
	"eps-report/internal/report"
	"eps-report/internal/runlog"
	"eps-report/internal/runstate"
	"eps-report/internal/types"
)

type stubFeed struct {
	prices map[string]float64
	err    error
}

func (f *stubFeed) LatestPrices(context.Context) (map[string]float64, error) {
	return f.prices, f.err
}

type stubValuator struct {
	results []types.ValuationResult
	err     error
	got     types.RunRequest
}

func (v *stubValuator) Run(_ context.Context, req types.RunRequest) (*types.RunResult, error) {
	v.got = req
	if v.err != nil {
		return nil, v.err
	}
	results := append([]types.ValuationResult(nil), v.results...)
	return &types.RunResult{RunID: "run-1", ReportYear: req.ReportYear, Considered: len(req.Stocks), Results: results}, nil
}

type recordingNotifier struct {
	enabled bool
	textErr error
	texts   []string
	docs    []string
}

func (n *recordingNotifier) Enabled() bool { return n.enabled }

func (n *recordingNotifier) SendText(_ context.Context, text string) error {
	n.texts = append(n.texts, text)
	return n.textErr
}

func (n *recordingNotifier) SendDocument(_ context.Context, path, _ string) error {
	n.docs = append(n.docs, path)
	return nil
}

type failingState struct{ loadErr, replaceErr error }

func (s failingState) Load(context.Context) (map[string]types.Bucket, error) {
	return map[string]types.Bucket{}, s.loadErr
}

func (s failingState) Replace(context.Context, map[string]types.Bucket) error {
	return s.replaceErr
}

var stocks = []types.Stock{{ID: "2330", Name: "TSMC"}, {ID: "2317", Name: "Hon Hai"}}

func results() []types.ValuationResult {
	return []types.ValuationResult{
		{StockID: "2330", Name: "TSMC", LatestClose: 500, EstimatedEPS: 40, Cheap: 600, Fair: 700, Expensive: 800, Bucket: types.BucketRed},
		{StockID: "2317", Name: "Hon Hai", LatestClose: 200, EstimatedEPS: 10, Cheap: 100, Fair: 120, Expensive: 150, Bucket: types.BucketGreen},
	}
}

func newRunner(t *testing.T, v *stubValuator, feed *stubFeed, n *recordingNotifier) (*Runner, *runstate.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	state := runstate.NewFileStore(filepath.Join(dir, "last_color.json"))
	r := New(v, feed, state, n, runlog.New(filepath.Join(dir, "logs"), time.UTC), Options{
		Report:        report.Options{OutputDir: filepath.Join(dir, "out")},
		WriteXLSX:     true,
		RetentionDays: 7,
		Location:      time.UTC,
	})
	r.now = func() time.Time { return time.Date(2024, 8, 15, 9, 0, 0, 0, time.UTC) }
	return r, state, dir
}

func TestRun_FullBatch(t *testing.T) {
	ctx := context.Background()
	v := &stubValuator{results: results()}
	n := &recordingNotifier{enabled: true}
	r, state, dir := newRunner(t, v, &stubFeed{prices: map[string]float64{"2330": 500, "2317": 200}}, n)

	require.NoError(t, state.Replace(ctx, map[string]types.Bucket{"2330": types.BucketOrange, "2317": types.BucketGreen}))

	out, err := r.Run(ctx, Job{ReportYear: 2024, Stocks: stocks})
	require.NoError(t, err)

	assert.Equal(t, 2024, v.got.ReportYear)
	assert.Equal(t, 500.0, v.got.Prices["2330"])

	require.Len(t, out.Run.Results, 2)
	assert.True(t, out.Run.Results[0].Changed)
	assert.False(t, out.Run.Results[1].Changed)

	saved, err := state.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.Bucket{"2330": types.BucketRed, "2317": types.BucketGreen}, saved)

	assert.Equal(t, filepath.Join(dir, "out", "eps_report_20240815.pdf"), out.PDFPath)
	assert.FileExists(t, out.PDFPath)
	assert.FileExists(t, out.XLSXPath)
	assert.FileExists(t, filepath.Join(dir, "logs", "2024-08-15.txt"))

	assert.True(t, out.Delivered)
	require.Len(t, n.texts, 1)
	assert.Equal(t, notify.SummaryText(out.Run.Results), n.texts[0])
	assert.Contains(t, n.texts[0], "🔴🔺 `2330` TSMC")
	assert.Equal(t, []string{out.PDFPath}, n.docs)
}

func TestRun_NoResultsLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{enabled: true}
	r, state, dir := newRunner(t, &stubValuator{}, &stubFeed{prices: map[string]float64{}}, n)

	prior := map[string]types.Bucket{"2330": types.BucketGreen}
	require.NoError(t, state.Replace(ctx, prior))

	out, err := r.Run(ctx, Job{ReportYear: 2024, Stocks: stocks})
	require.NoError(t, err)
	assert.Empty(t, out.Run.Results)
	assert.Empty(t, out.PDFPath)

	saved, err := state.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, prior, saved)
	assert.Empty(t, n.texts)

	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_PriceFeedFailureAborts(t *testing.T) {
	feedErr := errors.New("all sources down")
	v := &stubValuator{results: results()}
	r, state, _ := newRunner(t, v, &stubFeed{err: feedErr}, &recordingNotifier{enabled: true})

	_, err := r.Run(context.Background(), Job{ReportYear: 2024, Stocks: stocks})
	require.ErrorIs(t, err, feedErr)
	assert.Empty(t, v.got.Stocks)
	assert.NoFileExists(t, state.Path())
}

func TestRun_ValuationFailureAborts(t *testing.T) {
	storeErr := errors.New("database is locked")
	r, state, _ := newRunner(t, &stubValuator{err: storeErr}, &stubFeed{prices: map[string]float64{}}, &recordingNotifier{})

	_, err := r.Run(context.Background(), Job{ReportYear: 2024, Stocks: stocks})
	require.ErrorIs(t, err, storeErr)
	assert.NoFileExists(t, state.Path())
}

func TestRun_StateFailuresAbort(t *testing.T) {
	boom := errors.New("disk full")
	tests := []struct {
		name  string
		state failingState
	}{
		{"load", failingState{loadErr: boom}},
		{"replace", failingState{replaceErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{enabled: true}
			r := New(&stubValuator{results: results()}, &stubFeed{prices: map[string]float64{}}, tt.state, n, nil, Options{
				Report: report.Options{OutputDir: t.TempDir()},
			})
			_, err := r.Run(context.Background(), Job{ReportYear: 2024, Stocks: stocks})
			require.ErrorIs(t, err, boom)
			assert.Empty(t, n.texts)
		})
	}
}

func TestRun_DeliveryFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{enabled: true, textErr: errors.New("telegram: 502")}
	r, state, _ := newRunner(t, &stubValuator{results: results()}, &stubFeed{prices: map[string]float64{}}, n)

	out, err := r.Run(ctx, Job{ReportYear: 2024, Stocks: stocks})
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.Len(t, n.docs, 1)

	saved, err := state.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestRun_DisabledNotifier(t *testing.T) {
	n := &recordingNotifier{}
	r, _, _ := newRunner(t, &stubValuator{results: results()}, &stubFeed{prices: map[string]float64{}}, n)

	out, err := r.Run(context.Background(), Job{ReportYear: 2024, Stocks: stocks, Portfolio: "watch"})
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.Empty(t, n.texts)
	assert.Equal(t, "eps_report_20240815_watch.pdf", filepath.Base(out.PDFPath))
}

func TestScheduled_BuildsJobPerTick(t *testing.T) {
	v := &stubValuator{results: results()}
	r, _, _ := newRunner(t, v, &stubFeed{prices: map[string]float64{}}, &recordingNotifier{})

	calls := 0
	s := NewScheduled("eps-report", r, func(context.Context) (Job, error) {
		calls++
		return Job{ReportYear: 2023 + calls, Stocks: stocks}, nil
	})
	assert.Equal(t, "eps-report", s.Name())

	require.NoError(t, s.Run(context.Background()))
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2025, v.got.ReportYear)

	failing := NewScheduled("broken", r, func(context.Context) (Job, error) {
		return Job{}, errors.New("no portfolio")
	})
	assert.Error(t, failing.Run(context.Background()))
}
