// Package martingale implements the re-entry ladder logic: when price
// moves against the last entry of an active sequence by a configured
// percentage, the engine suggests a larger follow-up entry, and profit
// targets are always recomputed from the margin-weighted average of all
// entries. The engine is pure; it operates on sequence snapshots and
// never touches storage, the price feed or messaging.
package martingale

import (
	"fmt"
	"math"
	"time"

	"signalbot/internal/domain"
	"signalbot/internal/ports"
)

// Action classifies a trigger evaluation result.
type Action string

const (
	ActionSuggest  Action = "SUGGEST"
	ActionNoAction Action = "NO_ACTION"
)

// TriggerDecision is the outcome of evaluating an active sequence
// against the current price.
type TriggerDecision struct {
	Action Action
	// Reason is set for NO_ACTION: why no suggestion was emitted.
	Reason string
	// Suggestion is set for SUGGEST.
	Suggestion *ports.Suggestion
}

// CloseDecision is the outcome of checking a sequence's profit targets.
type CloseDecision struct {
	ShouldClose bool
	Outcome     domain.CloseOutcome
}

// PnLResult is the theoretical result of closing a whole sequence at a
// given price, computed from the weighted average entry.
type PnLResult struct {
	PNLPct      float64
	PNL         float64
	TotalMargin float64
	AvgEntry    float64
}

// Config holds the martingale parameters. All percentage fields are in
// percent, not fractions.
type Config struct {
	MaxSteps        int
	TriggerPct      float64       // adverse move from the last entry that arms a suggestion
	Step1Multiplier float64       // margin multiplier for the step 1 -> 2 transition
	StepNMultiplier float64       // margin multiplier for later transitions
	TP1Pct          float64       // first target distance from the weighted average
	TP2Pct          float64       // second target distance from the weighted average
	Cooldown        time.Duration // minimum gap between suggestions per sequence
}

// DefaultConfig returns the stock ladder parameters.
func DefaultConfig() Config {
	return Config{
		MaxSteps:        5,
		TriggerPct:      15.0,
		Step1Multiplier: 2.5,
		StepNMultiplier: 1.35,
		TP1Pct:          10.0,
		TP2Pct:          15.0,
		Cooldown:        30 * time.Minute,
	}
}

// Engine evaluates and mutates martingale sequences according to a
// fixed configuration.
type Engine struct {
	cfg Config
}

// New creates the engine, validating the configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.MaxSteps < 1 {
		return nil, fmt.Errorf("%w: max steps must be at least 1, got %d", ports.ErrConfigurationError, cfg.MaxSteps)
	}
	if cfg.TriggerPct <= 0 {
		return nil, fmt.Errorf("%w: trigger percent must be positive, got %f", ports.ErrConfigurationError, cfg.TriggerPct)
	}
	if cfg.Step1Multiplier <= 0 || cfg.StepNMultiplier <= 0 {
		return nil, fmt.Errorf("%w: margin multipliers must be positive", ports.ErrConfigurationError)
	}
	if cfg.TP1Pct <= 0 || cfg.TP2Pct <= cfg.TP1Pct {
		return nil, fmt.Errorf("%w: need 0 < TP1 < TP2, got TP1=%f TP2=%f", ports.ErrConfigurationError, cfg.TP1Pct, cfg.TP2Pct)
	}
	if cfg.Cooldown < 0 {
		return nil, fmt.Errorf("%w: cooldown must not be negative", ports.ErrConfigurationError)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewSequence builds an active sequence around its first entry. The
// result carries no ID; the store assigns one.
func (e *Engine) NewSequence(symbol string, dir domain.Direction, entryPrice, margin, leverage float64, now time.Time) (*domain.Sequence, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is empty", ports.ErrInvalidInput)
	}
	if !dir.IsValid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ports.ErrInvalidInput, dir)
	}
	if entryPrice <= 0 || margin <= 0 || leverage <= 0 {
		return nil, fmt.Errorf("%w: entry price, margin and leverage must be positive", ports.ErrInvalidInput)
	}

	seq := &domain.Sequence{
		Symbol:    symbol,
		Direction: dir,
		Status:    domain.SequenceActive,
		Steps: []domain.Step{{
			StepNumber: 1,
			EntryPrice: entryPrice,
			Margin:     margin,
			Multiplier: 1.0,
			EntryTime:  now,
		}},
		MaxSteps:   e.cfg.MaxSteps,
		TriggerPct: e.cfg.TriggerPct,
		TP1Pct:     e.cfg.TP1Pct,
		TP2Pct:     e.cfg.TP2Pct,
		Leverage:   leverage,
		OpenedAt:   now,
	}
	e.recompute(seq)
	return seq, nil
}

// EvaluateTrigger decides whether an active sequence warrants a
// re-entry suggestion at the current price. It never mutates the
// sequence; recording the suggestion time is the caller's job, after
// the suggestion was actually delivered.
func (e *Engine) EvaluateTrigger(seq *domain.Sequence, price float64, now time.Time) (TriggerDecision, error) {
	if !seq.IsActive() {
		return TriggerDecision{}, fmt.Errorf("%w: sequence %d", ports.ErrAlreadyClosed, seq.ID)
	}
	if price <= 0 {
		return TriggerDecision{}, fmt.Errorf("%w: price must be positive, got %f", ports.ErrInvalidInput, price)
	}
	if len(seq.Steps) == 0 {
		return TriggerDecision{}, fmt.Errorf("%w: sequence %d has no steps", ports.ErrInvalidState, seq.ID)
	}

	// A full ladder never suggests, regardless of price.
	if len(seq.Steps) >= seq.MaxSteps {
		return TriggerDecision{
			Action: ActionNoAction,
			Reason: fmt.Sprintf("max steps reached (%d/%d)", len(seq.Steps), seq.MaxSteps),
		}, nil
	}

	last := seq.LastStep()
	movePct := adverseMovePct(seq.Direction, last.EntryPrice, price)
	if movePct < seq.TriggerPct {
		return TriggerDecision{
			Action: ActionNoAction,
			Reason: fmt.Sprintf("adverse move %.2f%% below trigger %.2f%%", movePct, seq.TriggerPct),
		}, nil
	}

	if !seq.LastSuggestionTime.IsZero() && now.Sub(seq.LastSuggestionTime) < e.cfg.Cooldown {
		remaining := e.cfg.Cooldown - now.Sub(seq.LastSuggestionTime)
		return TriggerDecision{
			Action: ActionNoAction,
			Reason: fmt.Sprintf("cooldown active, %s remaining", remaining.Round(time.Second)),
		}, nil
	}

	suggestedMargin := e.nextMargin(seq)

	// Preview the ladder state as if the user takes the suggestion at
	// the current price.
	preview := seq.Clone()
	preview.Steps = append(preview.Steps, domain.Step{
		StepNumber: last.StepNumber + 1,
		EntryPrice: price,
		Margin:     suggestedMargin,
	})
	e.recompute(preview)

	return TriggerDecision{
		Action: ActionSuggest,
		Suggestion: &ports.Suggestion{
			SequenceID:         seq.ID,
			Symbol:             seq.Symbol,
			Direction:          seq.Direction,
			CurrentStep:        last.StepNumber,
			NextStep:           last.StepNumber + 1,
			MaxSteps:           seq.MaxSteps,
			LastEntryPrice:     last.EntryPrice,
			CurrentPrice:       price,
			PriceMovePct:       movePct,
			TriggerPct:         seq.TriggerPct,
			SuggestedEntry:     price,
			SuggestedMargin:    suggestedMargin,
			CurrentWeightedAvg: seq.WeightedAvgEntry,
			CurrentTotalMargin: seq.TotalMargin(),
			CurrentTP1:         seq.TakeProfit1,
			CurrentTP2:         seq.TakeProfit2,
			NewWeightedAvg:     preview.WeightedAvgEntry,
			NewTotalMargin:     preview.TotalMargin(),
			NewTP1:             preview.TakeProfit1,
			NewTP2:             preview.TakeProfit2,
		},
	}, nil
}

// AppendStep records a user-confirmed entry on the sequence and
// recomputes the weighted average and both profit targets. The margin
// is the amount the user actually entered, which may differ from the
// suggestion. Returns a new snapshot; the input is not mutated.
func (e *Engine) AppendStep(seq *domain.Sequence, entryPrice, margin float64, now time.Time) (*domain.Sequence, error) {
	if !seq.IsActive() {
		return nil, fmt.Errorf("%w: sequence %d", ports.ErrAlreadyClosed, seq.ID)
	}
	if len(seq.Steps) >= seq.MaxSteps {
		return nil, fmt.Errorf("%w: sequence %d has %d steps", ports.ErrSequenceFull, seq.ID, len(seq.Steps))
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry price must be positive, got %f", ports.ErrInvalidInput, entryPrice)
	}
	if margin <= 0 {
		return nil, fmt.Errorf("%w: margin must be positive, got %f", ports.ErrInvalidInput, margin)
	}
	if len(seq.Steps) == 0 {
		return nil, fmt.Errorf("%w: sequence %d has no steps", ports.ErrInvalidState, seq.ID)
	}

	last := seq.LastStep()
	next := seq.Clone()
	next.Steps = append(next.Steps, domain.Step{
		StepNumber: last.StepNumber + 1,
		EntryPrice: entryPrice,
		Margin:     margin,
		Multiplier: margin / last.Margin,
		EntryTime:  now,
	})
	e.recompute(next)
	return next, nil
}

// EvaluateClose checks the current price against both profit targets.
// When both are reached in one observation the deeper target wins.
func (e *Engine) EvaluateClose(seq *domain.Sequence, price float64) (CloseDecision, error) {
	if !seq.IsActive() {
		return CloseDecision{}, fmt.Errorf("%w: sequence %d", ports.ErrAlreadyClosed, seq.ID)
	}
	if price <= 0 {
		return CloseDecision{}, fmt.Errorf("%w: price must be positive, got %f", ports.ErrInvalidInput, price)
	}

	switch seq.Direction {
	case domain.Short:
		if price <= seq.TakeProfit2 {
			return CloseDecision{ShouldClose: true, Outcome: domain.OutcomeTP2}, nil
		}
		if price <= seq.TakeProfit1 {
			return CloseDecision{ShouldClose: true, Outcome: domain.OutcomeTP1}, nil
		}
	case domain.Long:
		if price >= seq.TakeProfit2 {
			return CloseDecision{ShouldClose: true, Outcome: domain.OutcomeTP2}, nil
		}
		if price >= seq.TakeProfit1 {
			return CloseDecision{ShouldClose: true, Outcome: domain.OutcomeTP1}, nil
		}
	default:
		return CloseDecision{}, fmt.Errorf("%w: unknown direction %q", ports.ErrInvalidState, seq.Direction)
	}
	return CloseDecision{}, nil
}

// CloseSequence transitions the sequence to CLOSED with the given
// outcome and exit price, and computes the theoretical PnL over the
// whole ladder. Returns a new snapshot; closing is one-way.
func (e *Engine) CloseSequence(seq *domain.Sequence, outcome domain.CloseOutcome, exitPrice float64, now time.Time) (*domain.Sequence, PnLResult, error) {
	if !seq.IsActive() {
		return nil, PnLResult{}, fmt.Errorf("%w: sequence %d", ports.ErrAlreadyClosed, seq.ID)
	}
	if outcome != domain.OutcomeTP1 && outcome != domain.OutcomeTP2 {
		return nil, PnLResult{}, fmt.Errorf("%w: unknown close outcome %q", ports.ErrInvalidInput, outcome)
	}
	if exitPrice <= 0 {
		return nil, PnLResult{}, fmt.Errorf("%w: exit price must be positive, got %f", ports.ErrInvalidInput, exitPrice)
	}

	pnl, err := e.ComputePnL(seq, exitPrice)
	if err != nil {
		return nil, PnLResult{}, err
	}

	next := seq.Clone()
	next.Status = domain.SequenceClosed
	next.CloseOutcome = outcome
	next.ClosePrice = exitPrice
	next.CloseTime = now
	return next, pnl, nil
}

// ComputePnL computes the theoretical profit of closing every step at
// the exit price. The percentage is measured from the weighted average
// entry and the dollar figure applies leverage to the total margin.
func (e *Engine) ComputePnL(seq *domain.Sequence, exitPrice float64) (PnLResult, error) {
	if len(seq.Steps) == 0 {
		return PnLResult{}, fmt.Errorf("%w: sequence %d has no steps", ports.ErrInvalidState, seq.ID)
	}
	if exitPrice <= 0 {
		return PnLResult{}, fmt.Errorf("%w: exit price must be positive, got %f", ports.ErrInvalidInput, exitPrice)
	}

	avg := weightedAvgEntry(seq.Steps)
	var pnlPct float64
	switch seq.Direction {
	case domain.Short:
		pnlPct = (avg - exitPrice) / avg * 100
	case domain.Long:
		pnlPct = (exitPrice - avg) / avg * 100
	default:
		return PnLResult{}, fmt.Errorf("%w: unknown direction %q", ports.ErrInvalidState, seq.Direction)
	}

	total := seq.TotalMargin()
	return PnLResult{
		PNLPct:      pnlPct,
		PNL:         pnlPct / 100 * total * seq.Leverage,
		TotalMargin: total,
		AvgEntry:    avg,
	}, nil
}

// nextMargin returns the suggested margin for the next step. The first
// transition uses a larger multiplier than the later ones.
func (e *Engine) nextMargin(seq *domain.Sequence) float64 {
	last := seq.LastStep()
	if last.StepNumber == 1 {
		return roundMargin(last.Margin * e.cfg.Step1Multiplier)
	}
	return roundMargin(last.Margin * e.cfg.StepNMultiplier)
}

// recompute refreshes the weighted average entry and both profit
// targets after the step set changed.
func (e *Engine) recompute(seq *domain.Sequence) {
	avg := weightedAvgEntry(seq.Steps)
	seq.WeightedAvgEntry = avg
	if seq.Direction == domain.Short {
		seq.TakeProfit1 = avg * (1 - seq.TP1Pct/100)
		seq.TakeProfit2 = avg * (1 - seq.TP2Pct/100)
	} else {
		seq.TakeProfit1 = avg * (1 + seq.TP1Pct/100)
		seq.TakeProfit2 = avg * (1 + seq.TP2Pct/100)
	}
}

// adverseMovePct measures how far price moved against the position,
// relative to the given entry. Favorable moves come back negative.
func adverseMovePct(dir domain.Direction, entry, price float64) float64 {
	if dir == domain.Short {
		return (price - entry) / entry * 100
	}
	return (entry - price) / entry * 100
}

func weightedAvgEntry(steps []domain.Step) float64 {
	var weighted, total float64
	for _, st := range steps {
		weighted += st.EntryPrice * st.Margin
		total += st.Margin
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// roundMargin keeps suggested dollar amounts readable.
func roundMargin(m float64) float64 {
	return math.Round(m*100) / 100
}
