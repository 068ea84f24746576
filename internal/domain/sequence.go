package domain

import "time"

// Step is one manually-entered position within a martingale sequence.
type Step struct {
	StepNumber int       // 1-based, strictly increasing, gapless
	EntryPrice float64   // price at which this step was entered
	Margin     float64   // capital allocated to this step
	Multiplier float64   // margin scaling factor vs the prior step (informational)
	EntryTime  time.Time // timestamp when the step was entered
}

// Sequence is a chain of same-direction entries sharing one directional
// thesis. Profit targets and PnL are always derived from the
// margin-weighted average of all step entry prices, never from the
// first entry alone.
type Sequence struct {
	ID        int64
	Symbol    string
	Direction Direction // immutable after creation
	Status    SequenceStatus

	// Steps in chronological order. Append-only.
	Steps []Step

	// Derived, recomputed whenever a step is appended.
	WeightedAvgEntry float64
	TakeProfit1      float64
	TakeProfit2      float64

	// Martingale parameters fixed at creation.
	MaxSteps   int
	TriggerPct float64
	TP1Pct     float64
	TP2Pct     float64
	Leverage   float64

	// Cooldown gating for suggestions. Zero value means no suggestion yet.
	LastSuggestionTime time.Time

	// Set only on transition to CLOSED.
	CloseOutcome CloseOutcome
	ClosePrice   float64
	CloseTime    time.Time

	OpenedAt time.Time

	// Optimistic concurrency token managed by the store.
	Version int64
}

// IsActive reports whether the sequence is still open.
func (s *Sequence) IsActive() bool {
	return s.Status == SequenceActive
}

// LastStep returns the most recent step. The store guarantees every
// created sequence has at least one step; callers must not invoke this
// on an empty sequence.
func (s *Sequence) LastStep() Step {
	return s.Steps[len(s.Steps)-1]
}

// TotalMargin returns the sum of margin over all steps.
func (s *Sequence) TotalMargin() float64 {
	var total float64
	for _, st := range s.Steps {
		total += st.Margin
	}
	return total
}

// Clone returns a deep copy of the sequence. The engine mutates only
// copies, leaving the caller's snapshot untouched.
func (s *Sequence) Clone() *Sequence {
	cp := *s
	cp.Steps = make([]Step, len(s.Steps))
	copy(cp.Steps, s.Steps)
	return &cp
}
