package domain

import "time"

// IndicatorSnapshot captures the indicator values at signal time.
type IndicatorSnapshot struct {
	RSI        float64
	MACD       float64
	MACDSignal float64
	EMA50      float64
}

// Signal is one piece of advice the bot emitted: the first entry of a
// sequence, a martingale step, or a standalone trade suggestion.
type Signal struct {
	ID        int64
	Symbol    string
	Direction Direction
	Kind      SignalKind
	Status    SignalStatus

	EntryPrice  float64
	StopLoss    float64 // standalone signals only; sequences carry no stop-loss
	TakeProfit1 float64
	TakeProfit2 float64

	Confidence        float64
	StrategyName      string
	RecommendedLev    float64
	RecommendedMargin float64
	Indicators        IndicatorSnapshot

	// Sequence linkage; zero for standalone signals.
	SequenceID int64
	StepNumber int

	SignalTime time.Time

	// Set when the signal resolves.
	Outcome   SignalOutcome
	ExitPrice float64
	ExitTime  time.Time
	PNL       float64 // theoretical, based on recommended margin and leverage
	PNLPct    float64
}

// IsStandalone reports whether the signal is tracked on its own rather
// than as part of a sequence.
func (s *Signal) IsStandalone() bool {
	return s.SequenceID == 0
}
