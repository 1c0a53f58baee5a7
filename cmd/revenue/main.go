// Command revenue imports the monthly revenue CSV for portfolio stocks into
// the fundamentals store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"eps-report/internal/api"
	"eps-report/internal/database"
	"eps-report/internal/logger"
	"eps-report/internal/portfolio"
	"eps-report/internal/revenue"
	"eps-report/internal/store"
	"eps-report/internal/types"
)

func main() {
	var (
		monthFlag     = flag.String("month", "", "revenue month YYYY-MM (default: previous month)")
		source        = flag.String("csv", revenue.DefaultSource, "CSV path or URL")
		portfolioPath = flag.String("portfolio-cfg", "", "portfolio file; default universe when empty")
		configPath    = flag.String("config", "config.yaml", "config file")
	)
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := run(ctx, *configPath, *portfolioPath, *source, *monthFlag); err != nil {
		logger.ErrorWithErr(ctx, "Revenue import failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, portfolioPath, source, monthFlag string) error {
	cfg, err := store.LoadConfigOrDefault(configPath)
	if err != nil {
		return err
	}

	month, err := resolveMonth(monthFlag, time.Now().In(cfg.Location()))
	if err != nil {
		return err
	}

	stocks, err := loadStocks(ctx, cfg, portfolioPath)
	if err != nil {
		return err
	}

	db, err := database.New(database.Config{Path: cfg.Database.Path, Name: "fundamentals"})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	client := api.NewClient(
		api.WithTimeout(time.Duration(cfg.Prices.TimeoutSeconds)*time.Second),
		api.WithHeaders(api.BrowserHeaders()),
	)
	n, err := revenue.NewImporter(client, database.NewFundamentals(db)).
		Import(ctx, source, month, portfolio.Codes(stocks))
	if err != nil {
		return err
	}
	logger.Info(ctx, "Monthly revenue imported", "month", month.String(), "rows", n, "source", source)
	return nil
}

// resolveMonth parses value, or returns the month before now when empty
func resolveMonth(value string, now time.Time) (types.Month, error) {
	if value != "" {
		return types.ParseMonth(value)
	}
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	return types.Month{Year: prev.Year(), Month: int(prev.Month())}, nil
}

func loadStocks(ctx context.Context, cfg *store.Config, portfolioPath string) ([]types.Stock, error) {
	if portfolioPath != "" {
		stocks, err := portfolio.Load(portfolioPath)
		if !errors.Is(err, portfolio.ErrNotFound) {
			return stocks, err
		}
		logger.Warn(ctx, "Portfolio file missing; using default universe", "path", portfolioPath)
	}
	return portfolio.LoadMany(ctx, cfg.Universe.Files...)
}
