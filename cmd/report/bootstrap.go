package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"eps-report/internal/api"
	"eps-report/internal/database"
	"eps-report/internal/interfaces"
	"eps-report/internal/logger"
	"eps-report/internal/notify"
	"eps-report/internal/portfolio"
	"eps-report/internal/pricefeed"
	"eps-report/internal/report"
	"eps-report/internal/runlog"
	"eps-report/internal/runner"
	"eps-report/internal/runstate"
	"eps-report/internal/store"
	"eps-report/internal/trace"
	"eps-report/internal/types"
	"eps-report/internal/valuation"
	"eps-report/internal/valuation/valuationobs"
)

// initializeSystem loads .env and sets up logging and tracing
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init("report"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfigOrDefault(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// openDatabase opens the fundamentals store and applies the schema
func openDatabase(ctx context.Context, cfg *store.Config) (*database.DB, error) {
	db, err := database.New(database.Config{Path: cfg.Database.Path, Name: "fundamentals"})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(ctx, "Fundamentals store ready", "path", db.Path())
	return db, nil
}

// initializeValuator builds the valuation engine with observability
func initializeValuator(cfg *store.Config, db *database.DB) interfaces.Valuator {
	engine := valuation.NewEngine(cfg.Valuation, database.NewFundamentals(db))
	return valuationobs.Wrap(engine)
}

// initializePriceFeed consults the listed market first, then OTC
func initializePriceFeed(cfg *store.Config) interfaces.PriceFeed {
	client := api.NewClient(
		api.WithTimeout(time.Duration(cfg.Prices.TimeoutSeconds)*time.Second),
		api.WithHeaders(api.NoCacheHeaders()),
	)
	return pricefeed.NewChain(
		pricefeed.NewTWSE(client, cfg.Prices.TWSEURL),
		pricefeed.NewTPEx(client, cfg.Prices.TPExURL),
	)
}

// initializeNotifier reads the bot credentials from the configured env names
func initializeNotifier(ctx context.Context, cfg *store.Config) interfaces.Notifier {
	client := api.NewClient(
		api.WithTimeout(60*time.Second),
		api.WithMinInterval(time.Duration(cfg.Telegram.MinIntervalMS)*time.Millisecond),
	)
	tg := notify.NewTelegram(notify.TelegramConfig{
		APIURL:    cfg.Telegram.APIURL,
		Token:     os.Getenv(cfg.Telegram.TokenEnv),
		ChatID:    os.Getenv(cfg.Telegram.ChatIDEnv),
		ParseMode: "Markdown",
	}, client)
	if !tg.Enabled() {
		logger.Warn(ctx, "Telegram credentials not set; reports will not be delivered",
			"token_env", cfg.Telegram.TokenEnv, "chat_id_env", cfg.Telegram.ChatIDEnv)
	}
	return tg
}

func initializeRunner(ctx context.Context, cfg *store.Config, db *database.DB) *runner.Runner {
	loc := cfg.Location()
	return runner.New(
		initializeValuator(cfg, db),
		initializePriceFeed(cfg),
		runstate.NewFileStore(cfg.State.Path),
		initializeNotifier(ctx, cfg),
		runlog.New(cfg.History.Dir, loc),
		runner.Options{
			Report: report.Options{
				OutputDir: cfg.Report.OutputDir,
				FontPath:  cfg.Report.FontPath,
				FontName:  cfg.Report.FontName,
			},
			WriteXLSX:     cfg.Report.XLSX,
			RetentionDays: cfg.History.RetentionDays,
			Location:      loc,
		},
	)
}

// loadStocks reads the portfolio file, or the default universe when none is
// given or the file does not exist. The returned name tags report files and
// follows portfolioPath even when the universe is used instead.
func loadStocks(ctx context.Context, cfg *store.Config, portfolioPath string) ([]types.Stock, string, error) {
	var name string
	if portfolioPath != "" {
		name = portfolio.Name(portfolioPath)
		stocks, err := portfolio.Load(portfolioPath)
		switch {
		case err == nil:
			return stocks, name, nil
		case errors.Is(err, portfolio.ErrNotFound):
			logger.Warn(ctx, "Portfolio file missing; using default universe", "path", portfolioPath)
		default:
			return nil, "", err
		}
	}
	stocks, err := portfolio.LoadMany(ctx, cfg.Universe.Files...)
	if err != nil {
		return nil, "", err
	}
	return stocks, name, nil
}
