package domain

// Direction represents the side of a position (LONG or SHORT).
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// IsValid reports whether the direction is one of the known values.
func (d Direction) IsValid() bool {
	return d == Long || d == Short
}

// SequenceStatus represents the lifecycle state of a martingale sequence.
type SequenceStatus string

const (
	SequenceActive SequenceStatus = "ACTIVE"
	SequenceClosed SequenceStatus = "CLOSED"
)

// CloseOutcome indicates which profit target closed a sequence.
type CloseOutcome string

const (
	OutcomeTP1 CloseOutcome = "CLOSED_TP1"
	OutcomeTP2 CloseOutcome = "CLOSED_TP2"
)

// SignalKind classifies an emitted signal within martingale tracking.
type SignalKind string

const (
	SignalInitial    SignalKind = "INITIAL"    // first entry of a sequence
	SignalMartingale SignalKind = "MARTINGALE" // additional entry in a sequence
	SignalStandalone SignalKind = "STANDALONE" // single trade, no sequence
)

// SignalStatus represents the tracking state of an emitted signal.
type SignalStatus string

const (
	SignalActive SignalStatus = "ACTIVE"
	SignalClosed SignalStatus = "CLOSED"
)

// SignalOutcome records how a standalone signal resolved.
type SignalOutcome string

const (
	SignalHitTP1  SignalOutcome = "HIT_TP1"
	SignalHitTP2  SignalOutcome = "HIT_TP2"
	SignalHitSL   SignalOutcome = "HIT_SL"
	SignalExpired SignalOutcome = "EXPIRED"
)

// IsWin reports whether the outcome counts as a winning signal.
func (o SignalOutcome) IsWin() bool {
	return o == SignalHitTP1 || o == SignalHitTP2
}
