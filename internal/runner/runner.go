// Package runner wires one report batch: prices, valuation, run state,
// history, report files and delivery.
package runner

import (
	"context"
	"fmt"
	"time"

	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
	"eps-report/internal/notify"
	"eps-report/internal/report"
	"eps-report/internal/runlog"
	"eps-report/internal/runstate"
	"eps-report/internal/trace"
	"eps-report/internal/types"
)

// DocumentCaption is sent with the PDF
const DocumentCaption = "EPS report"

type Options struct {
	Report        report.Options
	WriteXLSX     bool
	RetentionDays int
	Location      *time.Location
}

type Runner struct {
	valuator interfaces.Valuator
	feed     interfaces.PriceFeed
	state    interfaces.StateStore
	notifier interfaces.Notifier
	history  *runlog.Log
	opts     Options
	now      func() time.Time
}

func New(valuator interfaces.Valuator, feed interfaces.PriceFeed, state interfaces.StateStore, notifier interfaces.Notifier, history *runlog.Log, opts Options) *Runner {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Runner{
		valuator: valuator,
		feed:     feed,
		state:    state,
		notifier: notifier,
		history:  history,
		opts:     opts,
		now:      time.Now,
	}
}

// Job is one batch request
type Job struct {
	ReportYear int
	Stocks     []types.Stock
	// Portfolio tags report file names; empty for the default universe
	Portfolio string
}

// Outcome describes what a batch produced
type Outcome struct {
	Run       *types.RunResult
	PDFPath   string
	XLSXPath  string
	Delivered bool
}

// Run executes one batch. Price, valuation and state failures abort the
// batch; history, rendering and delivery failures are only logged. A batch
// with no results leaves the state untouched.
func (r *Runner) Run(ctx context.Context, job Job) (*Outcome, error) {
	op := logger.StartOperation(ctx, "runner.Run", "report_year", job.ReportYear, "stocks", len(job.Stocks))
	ctx = op.GetContext()

	prices, err := r.feed.LatestPrices(ctx)
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("failed to fetch latest prices: %w", err)
	}

	run, err := r.valuator.Run(ctx, types.RunRequest{
		ReportYear: job.ReportYear,
		Stocks:     job.Stocks,
		Prices:     prices,
	})
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("failed to value stocks: %w", err)
	}

	trace.AnnotateRun(ctx, run.RunID, job.ReportYear, job.Portfolio)
	out := &Outcome{Run: run}
	if len(run.Results) == 0 {
		logger.Info(ctx, "No stock qualified; nothing to report", "run_id", run.RunID)
		op.End("valued", 0)
		return out, nil
	}

	prior, err := r.state.Load(ctx)
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("failed to load previous buckets: %w", err)
	}
	next := runstate.Apply(ctx, run.Results, prior)
	if err := r.state.Replace(ctx, next); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("failed to save buckets: %w", err)
	}

	r.recordHistory(ctx, run, job.Portfolio)
	r.render(ctx, out, job.Portfolio)
	out.Delivered = r.deliver(ctx, out)

	op.End("run_id", run.RunID, "valued", len(run.Results), "delivered", out.Delivered)
	return out, nil
}

func (r *Runner) recordHistory(ctx context.Context, run *types.RunResult, portfolio string) {
	if r.history == nil {
		return
	}
	if err := r.history.Append(run, portfolio); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append run history", err, "dir", r.history.Dir())
		return
	}
	if n, err := r.history.CompressOlder(r.opts.RetentionDays); err != nil {
		logger.ErrorWithErr(ctx, "Failed to compress old history", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed old history files", "files", n)
	}
}

func (r *Runner) render(ctx context.Context, out *Outcome, portfolio string) {
	day := r.now().In(r.opts.Location)

	pdfPath := r.opts.Report.Path(day, portfolio, "pdf")
	if err := report.WritePDF(pdfPath, out.Run.Results, r.opts.Report); err != nil {
		logger.ErrorWithErr(ctx, "Failed to write PDF report", err, "path", pdfPath)
	} else {
		out.PDFPath = pdfPath
		logger.Info(ctx, "PDF report written", "path", pdfPath)
	}

	if !r.opts.WriteXLSX {
		return
	}
	xlsxPath := r.opts.Report.Path(day, portfolio, "xlsx")
	if err := report.WriteXLSX(xlsxPath, out.Run.Results); err != nil {
		logger.ErrorWithErr(ctx, "Failed to write XLSX report", err, "path", xlsxPath)
	} else {
		out.XLSXPath = xlsxPath
		logger.Info(ctx, "XLSX report written", "path", xlsxPath)
	}
}

// deliver sends the summary and then the PDF
func (r *Runner) deliver(ctx context.Context, out *Outcome) bool {
	if r.notifier == nil || !r.notifier.Enabled() {
		logger.Debug(ctx, "Notifier not configured; skipping delivery")
		return false
	}

	ok := true
	if text := notify.SummaryText(out.Run.Results); text != "" {
		if err := r.notifier.SendText(ctx, text); err != nil {
			logger.ErrorWithErr(ctx, "Failed to send summary", err)
			ok = false
		}
	}
	if out.PDFPath != "" {
		if err := r.notifier.SendDocument(ctx, out.PDFPath, DocumentCaption); err != nil {
			logger.ErrorWithErr(ctx, "Failed to send report document", err, "path", out.PDFPath)
			ok = false
		}
	}
	return ok
}

// Scheduled adapts the runner to scheduler.Job. build is called on every
// tick so the report year and universe are resolved at run time.
type Scheduled struct {
	name   string
	runner *Runner
	build  func(ctx context.Context) (Job, error)
}

func NewScheduled(name string, r *Runner, build func(ctx context.Context) (Job, error)) *Scheduled {
	return &Scheduled{name: name, runner: r, build: build}
}

func (s *Scheduled) Name() string {
	return s.name
}

func (s *Scheduled) Run(ctx context.Context) error {
	job, err := s.build(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	_, err = s.runner.Run(ctx, job)
	return err
}
