package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"github.com/gr-satt/bordem/config"
	"github.com/gr-satt/bordem/internal/adapters/logger"
	"github.com/gr-satt/bordem/internal/adapters/mailer"
	"github.com/gr-satt/bordem/internal/adapters/sqlite"
	"github.com/gr-satt/bordem/internal/app"
	"github.com/gr-satt/bordem/internal/bitmex"
	"github.com/gr-satt/bordem/internal/marketdata"
	"github.com/gr-satt/bordem/internal/ports"
	"github.com/gr-satt/bordem/internal/risk"
	"github.com/gr-satt/bordem/internal/trading"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Exchange Client
	client, err := bitmex.New(bitmex.Config{
		APIKey:         cfg.APIKey,
		APISecret:      cfg.APISecret,
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
	appLogger.Info(context.Background(), "Exchange client initialized")

	// 5. Initialize Facades
	trader, err := trading.New(trading.Config{
		Client: client,
		Logger: appLogger,
		Events: repo,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading facade")
		log.Fatalf("FATAL: Failed to initialize trading facade: %v", err)
	}

	md, err := marketdata.New(marketdata.Config{
		Client: client,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize market data facade")
		log.Fatalf("FATAL: Failed to initialize market data facade: %v", err)
	}

	// 6. Initialize Risk Manager
	riskMgr, err := risk.New(risk.Config{
		FailsafeFloor: cfg.FailsafeFloor,
		Trader:        trader,
		Logger:        appLogger,
		Events:        repo,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}

	// 7. Initialize Mailer (optional)
	var alertMailer ports.Mailer
	if cfg.AlertsEnabled() {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			To:       cfg.MailTo,
			Logger:   appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize mailer")
			log.Fatalf("FATAL: Failed to initialize mailer: %v", err)
		}
		alertMailer = m
		appLogger.Info(context.Background(), "Alert mailer initialized")
	} else {
		appLogger.Warn(context.Background(), "SMTP not configured, alerts disabled")
	}

	// 8. Initialize Application Service
	monitorService, err := app.NewMonitorService(cfg, appLogger, trader, md, riskMgr, repo, alertMailer)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize monitor service")
		log.Fatalf("FATAL: Failed to initialize monitor service: %v", err)
	}
	appLogger.Info(context.Background(), "Monitor service initialized")

	// 9. Start the Service
	if err := monitorService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Monitor service exited with error")
		log.Fatalf("FATAL: Monitor service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
