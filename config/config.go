package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"signalbot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Exchange
	IsTestnet     bool
	Symbols       []string
	KlineInterval string

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Martingale Parameters
	MartingaleEnabled  bool
	MaxSteps           int
	TriggerPct         float64
	Step1Multiplier    float64
	StepNMultiplier    float64
	TP1Pct             float64
	TP2Pct             float64
	SuggestionCooldown time.Duration

	// Strategy Parameters
	StrategyRSIPeriod     int
	StrategyRSIOverbought float64
	StrategyEMAPeriod     int
	StrategyMACDFast      int
	StrategyMACDSlow      int
	StrategyMACDSignal    int
	StrategyWarmupCandles int
	MinConfidence         float64

	// Cadence
	ScanInterval  time.Duration
	PollInterval  time.Duration
	ReportCron    string
	EntryCooldown time.Duration
	SignalExpiry  time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Exchange
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	symbolsStr := getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,XRPUSDT,TURBOUSDT,CAKEUSDT,1000PEPEUSDT")
	for _, s := range strings.Split(symbolsStr, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	cfg.KlineInterval = getEnv("KLINE_INTERVAL", "4h")
	if cfg.KlineInterval == "" {
		errs = append(errs, "KLINE_INTERVAL must be set")
	}

	// Telegram
	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	if cfg.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN must be set")
	}
	chatID, err := getEnvAsInt64Required("TELEGRAM_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_CHAT_ID: %v", err))
	} else if chatID == 0 {
		errs = append(errs, "TELEGRAM_CHAT_ID must be set")
	}
	cfg.TelegramChatID = chatID

	// Martingale Parameters
	cfg.MartingaleEnabled = getEnvAsBool("MARTINGALE_ENABLED", true)
	cfg.MaxSteps = getEnvAsInt("MARTINGALE_MAX_STEPS", 5)
	if cfg.MaxSteps < 1 {
		errs = append(errs, "MARTINGALE_MAX_STEPS must be at least 1")
	}
	cfg.TriggerPct = getEnvAsFloat("MARTINGALE_TRIGGER_PCT", 15.0)
	if cfg.TriggerPct <= 0 {
		errs = append(errs, "MARTINGALE_TRIGGER_PCT must be positive")
	}
	cfg.Step1Multiplier = getEnvAsFloat("MARTINGALE_STEP1_MULTIPLIER", 2.5)
	cfg.StepNMultiplier = getEnvAsFloat("MARTINGALE_STEPN_MULTIPLIER", 1.35)
	if cfg.Step1Multiplier <= 0 || cfg.StepNMultiplier <= 0 {
		errs = append(errs, "martingale margin multipliers must be positive")
	}
	cfg.TP1Pct = getEnvAsFloat("MARTINGALE_TP1_PCT", 10.0)
	cfg.TP2Pct = getEnvAsFloat("MARTINGALE_TP2_PCT", 15.0)
	if cfg.TP1Pct <= 0 || cfg.TP2Pct <= cfg.TP1Pct {
		errs = append(errs, "martingale targets must satisfy 0 < TP1_PCT < TP2_PCT")
	}
	cooldownMinutes := getEnvAsInt("MARTINGALE_COOLDOWN_MINUTES", 30)
	if cooldownMinutes < 0 {
		errs = append(errs, "MARTINGALE_COOLDOWN_MINUTES cannot be negative")
	}
	cfg.SuggestionCooldown = time.Duration(cooldownMinutes) * time.Minute

	// Strategy Parameters (using defaults if not set)
	cfg.StrategyRSIPeriod = getEnvAsInt("STRATEGY_RSI_PERIOD", 14)
	cfg.StrategyRSIOverbought = getEnvAsFloat("STRATEGY_RSI_OVERBOUGHT", 65.0)
	cfg.StrategyEMAPeriod = getEnvAsInt("STRATEGY_EMA_PERIOD", 50)
	cfg.StrategyMACDFast = getEnvAsInt("STRATEGY_MACD_FAST", 12)
	cfg.StrategyMACDSlow = getEnvAsInt("STRATEGY_MACD_SLOW", 26)
	cfg.StrategyMACDSignal = getEnvAsInt("STRATEGY_MACD_SIGNAL", 9)
	cfg.StrategyWarmupCandles = getEnvAsInt("STRATEGY_WARMUP_CANDLES", 200)
	cfg.MinConfidence = getEnvAsFloat("MIN_CONFIDENCE", 0.7)

	if cfg.StrategyRSIPeriod <= 0 || cfg.StrategyEMAPeriod <= 0 {
		errs = append(errs, "strategy periods (RSI, EMA) must be positive")
	}
	if cfg.StrategyMACDFast <= 0 || cfg.StrategyMACDSlow <= cfg.StrategyMACDFast || cfg.StrategyMACDSignal <= 0 {
		errs = append(errs, "invalid MACD periods (need 0 < FAST < SLOW and positive SIGNAL)")
	}
	if cfg.StrategyRSIOverbought <= 0 || cfg.StrategyRSIOverbought > 100 {
		errs = append(errs, "STRATEGY_RSI_OVERBOUGHT must be between 0 and 100")
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		errs = append(errs, "MIN_CONFIDENCE must be between 0 and 1")
	}

	// Cadence
	scanMinutes := getEnvAsInt("SCAN_INTERVAL_MINUTES", 5)
	if scanMinutes <= 0 {
		errs = append(errs, "SCAN_INTERVAL_MINUTES must be positive")
	}
	cfg.ScanInterval = time.Duration(scanMinutes) * time.Minute

	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 60)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	cfg.ReportCron = getEnv("REPORT_CRON", "0 9 * * *")

	entryCooldownMinutes := getEnvAsInt("ENTRY_COOLDOWN_MINUTES", 30)
	if entryCooldownMinutes < 0 {
		errs = append(errs, "ENTRY_COOLDOWN_MINUTES cannot be negative")
	}
	cfg.EntryCooldown = time.Duration(entryCooldownMinutes) * time.Minute

	expiryHours := getEnvAsInt("SIGNAL_EXPIRY_HOURS", 48)
	if expiryHours <= 0 {
		errs = append(errs, "SIGNAL_EXPIRY_HOURS must be positive")
	}
	cfg.SignalExpiry = time.Duration(expiryHours) * time.Hour

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/signalbot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64Required(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
