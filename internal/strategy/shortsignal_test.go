package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalbot/internal/domain"
	"signalbot/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func klinesFromCloses(closes []float64) []*domain.Kline {
	now := time.Now()
	klines := make([]*domain.Kline, len(closes))
	for i, c := range closes {
		klines[i] = &domain.Kline{
			OpenTime: now.Add(time.Duration(i-len(closes)) * 4 * time.Hour),
			Close:    c,
		}
	}
	return klines
}

// flatThenDrop builds a series that sits at base and falls on the very
// last candle. The drop flips the MACD under its signal line on that
// candle and pulls price below the EMA, so exactly three of the four
// entry conditions hold.
func flatThenDrop(n int, base, last float64) []*domain.Kline {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base
	}
	closes[n-1] = last
	return klinesFromCloses(closes)
}

func steadyUptrend(n int, base, step float64) []*domain.Kline {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + float64(i)*step
	}
	return klinesFromCloses(closes)
}

func TestNewShortSignal_ConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ShortSignalConfig)
	}{
		{"missing logger", func(c *ShortSignalConfig) { c.Logger = nil }},
		{"bad RSI period", func(c *ShortSignalConfig) { c.RSIPeriod = 1 }},
		{"slow not beyond fast", func(c *ShortSignalConfig) { c.MACDSlow = c.MACDFast }},
		{"bad min confidence", func(c *ShortSignalConfig) { c.MinConfidence = 0 }},
		{"TP2 not beyond TP1", func(c *ShortSignalConfig) { c.TP2Pct = c.TP1Pct }},
		{"warmup below indicator minimum", func(c *ShortSignalConfig) { c.WarmupCandles = 30 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultShortSignalConfig(noopLogger{})
			tt.mutate(&cfg)
			_, err := NewShortSignal(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}
}

func TestShortSignal_GenerateSignal(t *testing.T) {
	ctx := context.Background()

	newStrategy := func(t *testing.T, mutate func(*ShortSignalConfig)) *ShortSignal {
		t.Helper()
		cfg := DefaultShortSignalConfig(noopLogger{})
		if mutate != nil {
			mutate(&cfg)
		}
		s, err := NewShortSignal(cfg)
		require.NoError(t, err)
		return s
	}

	t.Run("not enough history", func(t *testing.T) {
		s := newStrategy(t, nil)
		sig, err := s.GenerateSignal(ctx, "TURBOUSDT", flatThenDrop(150, 100, 90))
		require.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("uptrend has no short setup", func(t *testing.T) {
		s := newStrategy(t, nil)
		sig, err := s.GenerateSignal(ctx, "TURBOUSDT", steadyUptrend(200, 100, 1))
		require.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("breakdown candle generates initial signal", func(t *testing.T) {
		s := newStrategy(t, nil)
		sig, err := s.GenerateSignal(ctx, "SOLUSDT", flatThenDrop(200, 100, 90))
		require.NoError(t, err)
		require.NotNil(t, sig)

		assert.Equal(t, "SOLUSDT", sig.Symbol)
		assert.Equal(t, domain.Short, sig.Direction)
		assert.Equal(t, domain.SignalInitial, sig.Kind)
		assert.Equal(t, domain.SignalActive, sig.Status)
		assert.Equal(t, 1, sig.StepNumber)

		// Bearish MACD, fresh crossunder and price under the EMA hold;
		// RSI does not. Three of four conditions, no symbol bonus.
		assert.InDelta(t, 0.75, sig.Confidence, 1e-9)
		assert.InDelta(t, 20.0, sig.RecommendedLev, 1e-9)
		assert.InDelta(t, 15.0, sig.RecommendedMargin, 1e-9)

		assert.InDelta(t, 90.0, sig.EntryPrice, 1e-9)
		assert.InDelta(t, 90.0*0.92, sig.TakeProfit1, 1e-9)
		assert.InDelta(t, 90.0*0.87, sig.TakeProfit2, 1e-9)
		assert.InDelta(t, 90.0*1.05, sig.StopLoss, 1e-9)

		assert.Less(t, sig.Indicators.MACD, sig.Indicators.MACDSignal)
		assert.Greater(t, sig.Indicators.EMA50, sig.EntryPrice)
	})

	t.Run("symbol bonus raises the sizing tier", func(t *testing.T) {
		s := newStrategy(t, nil)
		sig, err := s.GenerateSignal(ctx, "THEUSDT", flatThenDrop(200, 100, 90))
		require.NoError(t, err)
		require.NotNil(t, sig)

		assert.InDelta(t, 0.90, sig.Confidence, 1e-9)
		assert.InDelta(t, 25.0, sig.RecommendedLev, 1e-9)
		assert.InDelta(t, 20.0, sig.RecommendedMargin, 1e-9)
	})

	t.Run("martingale disabled emits standalone advice", func(t *testing.T) {
		s := newStrategy(t, func(c *ShortSignalConfig) { c.Martingale = false })
		sig, err := s.GenerateSignal(ctx, "SOLUSDT", flatThenDrop(200, 100, 90))
		require.NoError(t, err)
		require.NotNil(t, sig)
		assert.Equal(t, domain.SignalStandalone, sig.Kind)
		assert.Equal(t, 0, sig.StepNumber)
		assert.True(t, sig.IsStandalone())
	})

	t.Run("raised confidence floor filters the setup", func(t *testing.T) {
		s := newStrategy(t, func(c *ShortSignalConfig) { c.MinConfidence = 0.8 })
		sig, err := s.GenerateSignal(ctx, "SOLUSDT", flatThenDrop(200, 100, 90))
		require.NoError(t, err)
		assert.Nil(t, sig)
	})
}

func TestShortSignal_Metadata(t *testing.T) {
	s, err := NewShortSignal(DefaultShortSignalConfig(noopLogger{}))
	require.NoError(t, err)
	assert.Equal(t, "Data-Driven SHORT", s.Name())
	assert.Equal(t, 200, s.RequiredDataPoints())
}
