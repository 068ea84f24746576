// Package strategy contains the market-scan logic that proposes entry
// signals from kline data. Strategies are advisory; they never place
// orders or talk to storage.
package strategy

import (
	"context"
	"fmt"
	"time"

	"signalbot/internal/domain"
	"signalbot/internal/ports"
	"signalbot/internal/strategy/indicators"
)

// ShortSignalConfig holds the parameters of the data-driven SHORT
// strategy. Percentages are in percent.
type ShortSignalConfig struct {
	Logger ports.Logger

	RSIPeriod     int
	RSIOverbought float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	EMAPeriod     int

	// WarmupCandles is the kline history required before a decision.
	WarmupCandles int

	MinConfidence  float64
	HighConfidence float64

	// Standalone target offsets from the entry price.
	TP1Pct float64
	TP2Pct float64
	SLPct  float64

	// SymbolBoost adds a per-symbol confidence bonus from historical
	// win-rate analysis.
	SymbolBoost map[string]float64

	// Martingale marks generated signals as the first step of a
	// sequence rather than standalone advice.
	Martingale bool
}

// DefaultSymbolBoost returns the historical win-rate bonuses.
func DefaultSymbolBoost() map[string]float64 {
	return map[string]float64{
		"THEUSDT":        0.15,
		"PORTALUSDT":     0.15,
		"1000000MOGUSDT": 0.15,
		"LISTAUSDT":      0.10,
		"TURBOUSDT":      0.10,
		"CAKEUSDT":       0.05,
		"XRPUSDT":        0.05,
		"BTCUSDT":        0.05,
		"1000BONKUSDT":   0.05,
	}
}

// DefaultShortSignalConfig returns the stock strategy parameters.
func DefaultShortSignalConfig(logger ports.Logger) ShortSignalConfig {
	return ShortSignalConfig{
		Logger:         logger,
		RSIPeriod:      14,
		RSIOverbought:  65,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		EMAPeriod:      50,
		WarmupCandles:  200,
		MinConfidence:  0.70,
		HighConfidence: 0.85,
		TP1Pct:         8,
		TP2Pct:         13,
		SLPct:          5,
		SymbolBoost:    DefaultSymbolBoost(),
		Martingale:     true,
	}
}

// ShortSignal is the data-driven SHORT strategy: overbought RSI, a
// bearish MACD with a fresh crossunder, and price under the long EMA.
type ShortSignal struct {
	cfg  ShortSignalConfig
	rsi  *indicators.RSI
	macd *indicators.MACD
	ema  *indicators.MovingAverage
}

// NewShortSignal creates the strategy, validating the configuration.
func NewShortSignal(cfg ShortSignalConfig) (*ShortSignal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if cfg.RSIPeriod < 2 {
		return nil, fmt.Errorf("%w: RSI period must be at least 2, got %d", ports.ErrConfigurationError, cfg.RSIPeriod)
	}
	if cfg.MACDFast < 1 || cfg.MACDSlow <= cfg.MACDFast || cfg.MACDSignal < 1 {
		return nil, fmt.Errorf("%w: invalid MACD periods %d/%d/%d", ports.ErrConfigurationError, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	}
	if cfg.EMAPeriod < 2 {
		return nil, fmt.Errorf("%w: EMA period must be at least 2, got %d", ports.ErrConfigurationError, cfg.EMAPeriod)
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("%w: min confidence must be in (0,1], got %f", ports.ErrConfigurationError, cfg.MinConfidence)
	}
	if cfg.TP1Pct <= 0 || cfg.TP2Pct <= cfg.TP1Pct || cfg.SLPct <= 0 {
		return nil, fmt.Errorf("%w: need 0 < TP1 < TP2 and positive SL", ports.ErrConfigurationError)
	}

	warmup := cfg.WarmupCandles
	minWarmup := cfg.MACDSlow + cfg.MACDSignal + 1 // one extra point for crossunder detection
	if cfg.EMAPeriod+1 > minWarmup {
		minWarmup = cfg.EMAPeriod + 1
	}
	if warmup < minWarmup {
		return nil, fmt.Errorf("%w: warmup %d is below the indicator minimum %d", ports.ErrConfigurationError, warmup, minWarmup)
	}

	return &ShortSignal{
		cfg: cfg,
		rsi: indicators.NewRSI(indicators.RSIConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.RSIPeriod},
			Overbought:      cfg.RSIOverbought,
			Oversold:        100 - cfg.RSIOverbought,
		}),
		macd: indicators.NewMACD(indicators.MACDConfig{
			FastPeriod:   cfg.MACDFast,
			SlowPeriod:   cfg.MACDSlow,
			SignalPeriod: cfg.MACDSignal,
		}),
		ema: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.EMAPeriod},
			Type:            indicators.ExponentialMovingAverage,
		}),
	}, nil
}

// Name returns the name of the strategy.
func (s *ShortSignal) Name() string {
	return "Data-Driven SHORT"
}

// RequiredDataPoints returns the minimum number of klines needed for a decision.
func (s *ShortSignal) RequiredDataPoints() int {
	return s.cfg.WarmupCandles
}

// GenerateSignal evaluates the klines and returns a SHORT proposal, or
// nil, nil when the setup is not present.
func (s *ShortSignal) GenerateSignal(ctx context.Context, symbol string, klines []*domain.Kline) (*domain.Signal, error) {
	if len(klines) < s.cfg.WarmupCandles {
		s.cfg.Logger.Debug(ctx, "not enough kline history", map[string]interface{}{
			"symbol": symbol, "have": len(klines), "need": s.cfg.WarmupCandles,
		})
		return nil, nil
	}

	rsi, err := s.rsi.Calculate(ctx, klines)
	if err != nil {
		return nil, fmt.Errorf("RSI calculation failed for %s: %w", symbol, err)
	}
	macdSeries, err := s.macd.Series(ctx, klines)
	if err != nil {
		return nil, fmt.Errorf("MACD calculation failed for %s: %w", symbol, err)
	}
	ema, err := s.ema.Calculate(ctx, klines)
	if err != nil {
		return nil, fmt.Errorf("EMA calculation failed for %s: %w", symbol, err)
	}

	price := klines[len(klines)-1].Close
	cur := macdSeries[len(macdSeries)-1]
	prev := macdSeries[len(macdSeries)-2]

	conditions := []bool{
		rsi > s.cfg.RSIOverbought,
		cur.MACD < cur.Signal,
		prev.MACD >= prev.Signal && cur.MACD < cur.Signal, // fresh crossunder
		price < ema,
	}
	met := 0
	for _, ok := range conditions {
		if ok {
			met++
		}
	}

	confidence := float64(met)/float64(len(conditions)) + s.cfg.SymbolBoost[symbol]
	if confidence > 1 {
		confidence = 1
	}
	if confidence < s.cfg.MinConfidence {
		s.cfg.Logger.Debug(ctx, "confidence below threshold", map[string]interface{}{
			"symbol": symbol, "confidence": confidence, "conditionsMet": met,
		})
		return nil, nil
	}

	leverage, margin := 20.0, 15.0
	if confidence >= s.cfg.HighConfidence {
		leverage, margin = 25.0, 20.0
	}

	kind := domain.SignalStandalone
	step := 0
	if s.cfg.Martingale {
		kind = domain.SignalInitial
		step = 1
	}

	sig := &domain.Signal{
		Symbol:            symbol,
		Direction:         domain.Short,
		Kind:              kind,
		Status:            domain.SignalActive,
		EntryPrice:        price,
		StopLoss:          price * (1 + s.cfg.SLPct/100),
		TakeProfit1:       price * (1 - s.cfg.TP1Pct/100),
		TakeProfit2:       price * (1 - s.cfg.TP2Pct/100),
		Confidence:        confidence,
		StrategyName:      s.Name(),
		RecommendedLev:    leverage,
		RecommendedMargin: margin,
		Indicators: domain.IndicatorSnapshot{
			RSI:        rsi,
			MACD:       cur.MACD,
			MACDSignal: cur.Signal,
			EMA50:      ema,
		},
		StepNumber: step,
		SignalTime: time.Now(),
	}

	s.cfg.Logger.Info(ctx, "short signal generated", map[string]interface{}{
		"symbol": symbol, "kind": string(kind), "confidence": confidence,
		"leverage": leverage, "margin": margin, "entry": price,
	})
	return sig, nil
}
