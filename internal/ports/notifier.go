package ports

import (
	"context"
	"time"

	"signalbot/internal/domain"
)

// Suggestion is the structured payload for a martingale re-entry
// suggestion. The engine produces it; rendering and delivery are
// entirely the notifier's concern.
type Suggestion struct {
	SequenceID int64
	Symbol     string
	Direction  domain.Direction

	CurrentStep int
	NextStep    int
	MaxSteps    int

	LastEntryPrice float64
	CurrentPrice   float64
	PriceMovePct   float64
	TriggerPct     float64

	SuggestedEntry  float64
	SuggestedMargin float64

	CurrentWeightedAvg float64
	CurrentTotalMargin float64
	CurrentTP1         float64
	CurrentTP2         float64

	NewWeightedAvg float64
	NewTotalMargin float64
	NewTP1         float64
	NewTP2         float64
}

// SequenceClosure is the structured payload emitted when a sequence
// reaches one of its profit targets.
type SequenceClosure struct {
	Sequence *domain.Sequence
	PNL      float64
	PNLPct   float64
	Duration time.Duration
}

// StartupInfo summarizes the running configuration for the startup notice.
type StartupInfo struct {
	StrategyName     string
	MartingaleActive bool
	Symbols          []string
	ScanInterval     time.Duration
	PollInterval     time.Duration
}

// Notifier delivers structured bot decisions to an external messaging
// channel. Implementations own all formatting; callers never pass
// preformatted text.
type Notifier interface {
	// NotifyStartup announces that the service came up.
	NotifyStartup(ctx context.Context, info StartupInfo) error
	// NotifySignal delivers a new entry signal (initial or standalone).
	NotifySignal(ctx context.Context, sig *domain.Signal) error
	// NotifySuggestion delivers a martingale re-entry suggestion.
	NotifySuggestion(ctx context.Context, s Suggestion) error
	// NotifySequenceClosed delivers a sequence close notice with its PnL.
	NotifySequenceClosed(ctx context.Context, c SequenceClosure) error
	// NotifySignalClosed delivers a standalone signal resolution.
	NotifySignalClosed(ctx context.Context, sig *domain.Signal) error
	// NotifyReport delivers a periodic performance summary.
	NotifyReport(ctx context.Context, p *Performance, window time.Duration) error
}
