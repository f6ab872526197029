package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gr-satt/bordem/config"
	"github.com/gr-satt/bordem/internal/adapters/logger"
	"github.com/gr-satt/bordem/internal/bitmex"
	"github.com/gr-satt/bordem/internal/marketdata"
	"github.com/gr-satt/bordem/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "XBTUSD", "contract symbol")
	timeframe := flag.String("timeframe", "1h", "candle bucket size (1m, 5m, 1h, 1d)")
	count := flag.Int("count", 500, "number of candles to fetch")
	out := flag.String("out", "", "output CSV path (default data/<symbol>_<timeframe>_<date>.csv)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client. Market data is public, so credentials
	// are not required here.
	client, err := bitmex.New(bitmex.Config{
		UseTestnet:     cfg.UseTestnet,
		Logger:         appLogger,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		CacheDir:       cfg.CacheDir,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize exchange client")
		log.Fatalf("FATAL: Failed to initialize exchange client: %v", err)
	}

	md, err := marketdata.New(marketdata.Config{Client: client, Logger: appLogger})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize market data facade")
		log.Fatalf("FATAL: Failed to initialize market data facade: %v", err)
	}

	fmt.Printf("Fetching %d %s candles for %s...\n", *count, *timeframe, *symbol)
	candles, err := md.Candles(context.Background(), *symbol, *timeframe, *count)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched candles", map[string]interface{}{"count": len(candles)})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s.csv", *symbol, *timeframe, time.Now().Format("20060102"))
	}
	if err := utils.WriteCandlesToCSV(candles, filename); err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": filename})
}
