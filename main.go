package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"signalbot/config"
	"signalbot/internal/adapters/binanceclient"
	"signalbot/internal/adapters/logger"
	"signalbot/internal/adapters/sqlite"
	"signalbot/internal/adapters/telegram"
	"signalbot/internal/app"
	"signalbot/internal/martingale"
	"signalbot/internal/strategy"
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
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Price Source (Binance Adapter, public market data only)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 5. Initialize Notifier (Telegram Adapter)
	notifier, err := telegram.New(telegram.Config{
		Token:  cfg.TelegramToken,
		ChatID: cfg.TelegramChatID,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Telegram notifier")
		log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
	}
	appLogger.Info(context.Background(), "Telegram notifier initialized")

	// 6. Initialize Martingale Engine
	engine, err := martingale.New(martingale.Config{
		MaxSteps:        cfg.MaxSteps,
		TriggerPct:      cfg.TriggerPct,
		Step1Multiplier: cfg.Step1Multiplier,
		StepNMultiplier: cfg.StepNMultiplier,
		TP1Pct:          cfg.TP1Pct,
		TP2Pct:          cfg.TP2Pct,
		Cooldown:        cfg.SuggestionCooldown,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize martingale engine")
		log.Fatalf("FATAL: Failed to initialize martingale engine: %v", err)
	}
	appLogger.Info(context.Background(), "Martingale engine initialized")

	// 7. Initialize Strategy
	stratCfg := strategy.DefaultShortSignalConfig(appLogger)
	stratCfg.RSIPeriod = cfg.StrategyRSIPeriod
	stratCfg.RSIOverbought = cfg.StrategyRSIOverbought
	stratCfg.EMAPeriod = cfg.StrategyEMAPeriod
	stratCfg.MACDFast = cfg.StrategyMACDFast
	stratCfg.MACDSlow = cfg.StrategyMACDSlow
	stratCfg.MACDSignal = cfg.StrategyMACDSignal
	stratCfg.WarmupCandles = cfg.StrategyWarmupCandles
	stratCfg.MinConfidence = cfg.MinConfidence
	stratCfg.Martingale = cfg.MartingaleEnabled
	strat, err := strategy.NewShortSignal(stratCfg)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize strategy")
		log.Fatalf("FATAL: Failed to initialize strategy: %v", err)
	}
	appLogger.Info(context.Background(), "Strategy initialized", map[string]interface{}{"name": strat.Name()})

	// 8. Initialize Application Service
	signalService, err := app.NewSignalService(
		cfg,
		appLogger,
		binanceClient, // Pass the concrete implementation, service expects the interface
		repo,          // Pass the concrete implementation, service expects the interface
		repo,          // Pass the concrete implementation, service expects the interface
		notifier,
		strat,
		engine,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal service")
		log.Fatalf("FATAL: Failed to initialize signal service: %v", err)
	}
	appLogger.Info(context.Background(), "Signal service initialized")

	// 9. Start the Service
	// Use context.Background() as the base context for the application run
	if err := signalService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Signal service exited with error")
		log.Fatalf("FATAL: Signal service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
