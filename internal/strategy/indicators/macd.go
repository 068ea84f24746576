package indicators

import (
	"context"
	"fmt"
	"signalbot/internal/domain"
)

// MACDConfig holds configuration for the MACD indicator
type MACDConfig struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// MACDValue holds the full MACD output for one evaluation point
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD implements the Moving Average Convergence Divergence indicator
type MACD struct {
	BaseIndicator
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance
func NewMACD(config MACDConfig) *MACD {
	return &MACD{
		BaseIndicator: BaseIndicator{Config: IndicatorConfig{Period: config.SlowPeriod + config.SignalPeriod}},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MACD) Name() string {
	return "MACD"
}

// Calculate computes the latest MACD line value
func (m *MACD) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	v, err := m.CalculateAll(ctx, klines)
	if err != nil {
		return 0, err
	}
	return v.MACD, nil
}

// CalculateAll computes the MACD line, signal line and histogram for the
// latest kline.
func (m *MACD) CalculateAll(ctx context.Context, klines []*domain.Kline) (MACDValue, error) {
	series, err := m.Series(ctx, klines)
	if err != nil {
		return MACDValue{}, err
	}
	return series[len(series)-1], nil
}

// Series computes MACD values for every evaluation point after warmup.
// The last element corresponds to the latest kline; callers use the
// final two elements to detect crossovers.
func (m *MACD) Series(ctx context.Context, klines []*domain.Kline) ([]MACDValue, error) {
	minPoints := m.config.SlowPeriod + m.config.SignalPeriod
	if len(klines) < minPoints {
		return nil, fmt.Errorf("not enough data (%d) to calculate MACD for periods %d/%d/%d",
			len(klines), m.config.FastPeriod, m.config.SlowPeriod, m.config.SignalPeriod)
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	fastEMA := emaSeries(closes, m.config.FastPeriod)
	slowEMA := emaSeries(closes, m.config.SlowPeriod)

	// MACD line exists only where the slow EMA does.
	macdLine := make([]float64, 0, len(closes)-m.config.SlowPeriod+1)
	offset := m.config.SlowPeriod - m.config.FastPeriod
	for i := range slowEMA {
		macdLine = append(macdLine, fastEMA[i+offset]-slowEMA[i])
	}

	signalLine := emaSeries(macdLine, m.config.SignalPeriod)

	values := make([]MACDValue, len(signalLine))
	macdOffset := len(macdLine) - len(signalLine)
	for i := range signalLine {
		macd := macdLine[i+macdOffset]
		values[i] = MACDValue{
			MACD:      macd,
			Signal:    signalLine[i],
			Histogram: macd - signalLine[i],
		}
	}
	return values, nil
}

// emaSeries computes the EMA over the values, seeded with an SMA of the
// first period elements. The result has len(values)-period+1 elements.
func emaSeries(values []float64, period int) []float64 {
	multiplier := 2.0 / float64(period+1)

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}
