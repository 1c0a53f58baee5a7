// Command report values the portfolio, writes the PDF/XLSX report and
// delivers it over Telegram, once or on a cron schedule.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eps-report/internal/logger"
	"eps-report/internal/runner"
	"eps-report/internal/scheduler"
	"eps-report/internal/trace"
)

func main() {
	var (
		reportYear    = flag.Int("report-year", 0, "report year (default: current year)")
		portfolioPath = flag.String("portfolio-cfg", "", "portfolio file; default universe when empty")
		configPath    = flag.String("config", "config.yaml", "config file")
		schedule      = flag.String("schedule", "", "cron expression; overrides config schedule")
	)
	flag.Parse()

	if err := initializeSystem(); err != nil {
		logger.ErrorWithErr(context.Background(), "Failed to initialize", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(shutdownCtx)
	}()

	if err := run(ctx, *configPath, *portfolioPath, *reportYear, *schedule); err != nil {
		logger.ErrorWithErr(ctx, "EPS report failed", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, portfolioPath string, reportYear int, schedule string) error {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if schedule != "" {
		cfg.Schedule = schedule
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	r := initializeRunner(ctx, cfg, db)
	loc := cfg.Location()

	build := func(ctx context.Context) (runner.Job, error) {
		stocks, name, err := loadStocks(ctx, cfg, portfolioPath)
		if err != nil {
			return runner.Job{}, err
		}
		year := reportYear
		if year == 0 {
			year = time.Now().In(loc).Year()
		}
		logger.Info(ctx, "Batch prepared", "report_year", year, "stocks", len(stocks), "portfolio", name)
		return runner.Job{ReportYear: year, Stocks: stocks, Portfolio: name}, nil
	}

	if cfg.Schedule == "" {
		job, err := build(ctx)
		if err != nil {
			return err
		}
		_, err = r.Run(ctx, job)
		return err
	}

	s := scheduler.New(ctx)
	if err := s.AddJob(cfg.Schedule, runner.NewScheduled("eps-report", r, build)); err != nil {
		return err
	}
	s.RunUntilDone(ctx)
	return nil
}
