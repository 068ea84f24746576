package ports

import (
	"context"
	"time"

	"signalbot/internal/domain"
)

// SequenceRepository defines the interface for storing and retrieving
// martingale sequences. The store exclusively owns persisted state; the
// engine only ever sees snapshots.
type SequenceRepository interface {
	// CreateSequence persists a new sequence (with its initial step) and
	// returns its assigned ID.
	CreateSequence(ctx context.Context, seq *domain.Sequence) (int64, error)
	// SaveSequence persists a mutated sequence snapshot. Returns
	// ErrConflict (wrapped) if the stored version no longer matches the
	// snapshot's; the caller must retry with a fresh read.
	SaveSequence(ctx context.Context, seq *domain.Sequence) error
	// FindSequenceByID retrieves a sequence with all its steps.
	// Returns nil, nil if not found.
	FindSequenceByID(ctx context.Context, id int64) (*domain.Sequence, error)
	// FindActiveSequences retrieves all sequences with status ACTIVE.
	FindActiveSequences(ctx context.Context) ([]*domain.Sequence, error)
	// FindActiveSequenceBySymbol retrieves the active sequence for a
	// symbol and direction, if any. Returns nil, nil if none is open.
	FindActiveSequenceBySymbol(ctx context.Context, symbol string, dir domain.Direction) (*domain.Sequence, error)
	// TouchSuggestionTime records the last suggestion timestamp without
	// bumping the sequence version.
	TouchSuggestionTime(ctx context.Context, id int64, at time.Time) error
}

// SignalRepository defines the interface for storing emitted signals and
// their results.
type SignalRepository interface {
	// CreateSignal persists a new signal record and returns its assigned ID.
	CreateSignal(ctx context.Context, sig *domain.Signal) (int64, error)
	// UpdateSignal persists a mutated signal (status, outcome, PnL).
	UpdateSignal(ctx context.Context, sig *domain.Signal) error
	// FindActiveStandaloneSignals retrieves active signals without a
	// sequence linkage.
	FindActiveStandaloneSignals(ctx context.Context) ([]*domain.Signal, error)
	// CloseSignalsForSequence marks all active signals of a sequence closed.
	CloseSignalsForSequence(ctx context.Context, sequenceID int64, outcome domain.SignalOutcome, exitPrice float64, at time.Time) error
	// GetPerformance aggregates closed-signal statistics since the given time.
	GetPerformance(ctx context.Context, since time.Time) (*Performance, error)
}

// Performance summarizes closed-signal results over a reporting window.
type Performance struct {
	TotalSignals   int
	WinningSignals int
	LosingSignals  int
	WinRate        float64 // percent
	TotalPNL       float64
	AvgPNL         float64
	BestPNL        float64
	WorstPNL       float64
}
