// Command yearly imports each stock's yearly trading range from TWSE and
// TPEx into the YearlyData and OTCYearlyData tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"eps-report/internal/api"
	"eps-report/internal/database"
	"eps-report/internal/logger"
	"eps-report/internal/portfolio"
	"eps-report/internal/store"
	"eps-report/internal/trace"
	"eps-report/internal/types"
	"eps-report/internal/yearly"
)

func main() {
	var (
		market        = flag.String("market", "all", "twse, tpex or all")
		portfolioPath = flag.String("portfolio-cfg", "", "stock list; default is the market's universe file")
		configPath    = flag.String("config", "config.yaml", "config file")
	)
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if err := trace.Init("yearly"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(shutdownCtx)
	}()

	if err := run(ctx, *configPath, *market, *portfolioPath); err != nil {
		logger.ErrorWithErr(ctx, "Yearly import failed", err)
		stop()
		os.Exit(1)
	}
}

// target is one market and the stock list imported for it
type target struct {
	market types.Market
	file   string
}

// plan resolves --market and --portfolio-cfg into the markets to import
func plan(cfg *store.Config, market, portfolioPath string) ([]target, error) {
	files := map[types.Market]string{
		types.MarketTWSE: cfg.Yearly.TWSEFile,
		types.MarketTPEx: cfg.Yearly.TPExFile,
	}
	var markets []types.Market
	if market == "" || market == "all" {
		markets = []types.Market{types.MarketTWSE, types.MarketTPEx}
	} else {
		m, err := types.ParseMarket(market)
		if err != nil {
			return nil, err
		}
		markets = []types.Market{m}
	}
	if portfolioPath != "" && len(markets) > 1 {
		return nil, errors.New("--portfolio-cfg needs a single --market")
	}

	targets := make([]target, 0, len(markets))
	for _, m := range markets {
		file := files[m]
		if portfolioPath != "" {
			file = portfolioPath
		}
		targets = append(targets, target{market: m, file: file})
	}
	return targets, nil
}

func run(ctx context.Context, configPath, market, portfolioPath string) error {
	cfg, err := store.LoadConfigOrDefault(configPath)
	if err != nil {
		return err
	}
	targets, err := plan(cfg, market, portfolioPath)
	if err != nil {
		return err
	}

	db, err := database.New(database.Config{Path: cfg.Database.Path, Name: "yearly"})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	prices := database.NewYearlyPrices(db)

	client := api.NewClient(
		api.WithTimeout(time.Duration(cfg.Prices.TimeoutSeconds)*time.Second),
		api.WithHeaders(api.BrowserHeaders()),
		api.WithMinInterval(time.Duration(cfg.Yearly.IntervalMS)*time.Millisecond),
	)
	sources := map[types.Market]yearly.Source{
		types.MarketTWSE: yearly.NewTWSE(client, cfg.Yearly.TWSEURL),
		types.MarketTPEx: yearly.NewTPEx(client, cfg.Yearly.TPExURL),
	}

	for _, t := range targets {
		stocks, err := portfolio.Load(t.file)
		if errors.Is(err, portfolio.ErrNotFound) {
			logger.Warn(ctx, "Stock list not found, skipping market", "market", t.market, "path", t.file)
			continue
		}
		if err != nil {
			return err
		}

		timer := logger.StartOperation(ctx, "yearly_import", "market", t.market, "stocks", len(stocks))
		sum, err := yearly.NewImporter(sources[t.market], prices).Run(timer.GetContext(), stocks)
		if err != nil {
			timer.EndWithError(err)
			return err
		}
		timer.End("resumed", sum.Resumed, "processed", sum.Processed, "written", sum.Written)
	}
	return nil
}
