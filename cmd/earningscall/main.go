// Command earningscall sends one Telegram message listing today's earnings
// calls of portfolio stocks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"eps-report/internal/api"
	"eps-report/internal/earningscall"
	"eps-report/internal/logger"
	"eps-report/internal/notify"
	"eps-report/internal/portfolio"
	"eps-report/internal/store"
)

func main() {
	var (
		portfolioPath = flag.String("portfolio-cfg", "", "portfolio file (or first argument)")
		configPath    = flag.String("config", "config.yaml", "config file")
	)
	flag.Parse()
	if *portfolioPath == "" && flag.NArg() > 0 {
		*portfolioPath = flag.Arg(0)
	}

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if *portfolioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: earningscall [--config config.yaml] <portfolio-cfg>")
		os.Exit(2)
	}
	if err := run(ctx, *configPath, *portfolioPath); err != nil {
		logger.ErrorWithErr(ctx, "Earnings-call check failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, portfolioPath string) error {
	cfg, err := store.LoadConfigOrDefault(configPath)
	if err != nil {
		return err
	}

	codes, err := portfolio.LoadCodes(portfolioPath)
	if err != nil {
		return err
	}

	client := api.NewClient(
		api.WithTimeout(60*time.Second),
		api.WithMinInterval(time.Duration(cfg.Telegram.MinIntervalMS)*time.Millisecond),
	)
	tg := notify.NewTelegram(notify.TelegramConfig{
		APIURL: cfg.Telegram.APIURL,
		Token:  os.Getenv(cfg.Telegram.TokenEnv),
		ChatID: os.Getenv(cfg.Telegram.ChatIDEnv),
	}, client)

	scraper := earningscall.NewScraper(cfg.EarningsCall.URL, time.Duration(cfg.Prices.TimeoutSeconds)*time.Second)
	labels, err := earningscall.Notify(ctx, scraper, tg, codes, time.Now().In(cfg.Location()))
	if err != nil {
		return err
	}
	logger.Info(ctx, "Earnings-call check done", "portfolio", portfolio.Name(portfolioPath), "matched", labels)
	return nil
}
