package martingale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalbot/internal/domain"
	"signalbot/internal/ports"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(DefaultConfig())
	require.NoError(t, err)
	return eng
}

func newShortSequence(t *testing.T, eng *Engine, entry, margin float64) *domain.Sequence {
	t.Helper()
	seq, err := eng.NewSequence("1000PEPEUSDT", domain.Short, entry, margin, 25, time.Now())
	require.NoError(t, err)
	seq.ID = 1
	return seq
}

func TestNew_ConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max steps", func(c *Config) { c.MaxSteps = 0 }},
		{"negative trigger", func(c *Config) { c.TriggerPct = -1 }},
		{"zero multiplier", func(c *Config) { c.Step1Multiplier = 0 }},
		{"TP2 not beyond TP1", func(c *Config) { c.TP2Pct = c.TP1Pct }},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}
}

func TestNewSequence(t *testing.T) {
	eng := newTestEngine(t)

	t.Run("short sequence targets below entry", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		require.Len(t, seq.Steps, 1)
		assert.Equal(t, 1, seq.Steps[0].StepNumber)
		assert.Equal(t, domain.SequenceActive, seq.Status)
		assert.InDelta(t, 0.0095, seq.WeightedAvgEntry, 1e-12)
		assert.InDelta(t, 0.0095*0.90, seq.TakeProfit1, 1e-12)
		assert.InDelta(t, 0.0095*0.85, seq.TakeProfit2, 1e-12)
	})

	t.Run("long sequence targets above entry", func(t *testing.T) {
		seq, err := eng.NewSequence("ETHUSDT", domain.Long, 2000, 15, 20, time.Now())
		require.NoError(t, err)
		assert.InDelta(t, 2200.0, seq.TakeProfit1, 1e-9)
		assert.InDelta(t, 2300.0, seq.TakeProfit2, 1e-9)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := eng.NewSequence("", domain.Short, 1, 1, 1, time.Now())
		assert.ErrorIs(t, err, ports.ErrInvalidInput)
		_, err = eng.NewSequence("ETHUSDT", "SIDEWAYS", 1, 1, 1, time.Now())
		assert.ErrorIs(t, err, ports.ErrInvalidInput)
		_, err = eng.NewSequence("ETHUSDT", domain.Short, 0, 1, 1, time.Now())
		assert.ErrorIs(t, err, ports.ErrInvalidInput)
	})
}

func TestEvaluateTrigger(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Now()

	t.Run("below threshold is no action", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		// +14.9% against a short, just under the 15% trigger.
		dec, err := eng.EvaluateTrigger(seq, 0.0095*1.149, now)
		require.NoError(t, err)
		assert.Equal(t, ActionNoAction, dec.Action)
		assert.Contains(t, dec.Reason, "below trigger")
		assert.Nil(t, dec.Suggestion)
	})

	t.Run("favorable move never triggers", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		dec, err := eng.EvaluateTrigger(seq, 0.0095*0.80, now)
		require.NoError(t, err)
		assert.Equal(t, ActionNoAction, dec.Action)
	})

	t.Run("threshold reached suggests next step", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		price := 0.010925 // +15% from the last entry
		dec, err := eng.EvaluateTrigger(seq, price, now)
		require.NoError(t, err)
		require.Equal(t, ActionSuggest, dec.Action)
		require.NotNil(t, dec.Suggestion)

		s := dec.Suggestion
		assert.Equal(t, int64(1), s.SequenceID)
		assert.Equal(t, 1, s.CurrentStep)
		assert.Equal(t, 2, s.NextStep)
		assert.InDelta(t, 15.0, s.PriceMovePct, 0.01)
		assert.InDelta(t, 50.0, s.SuggestedMargin, 1e-9) // 20 * 2.5
		assert.InDelta(t, price, s.SuggestedEntry, 1e-12)

		// Preview reflects the ladder as if the suggestion is taken.
		wantAvg := (0.0095*20 + price*50) / 70
		assert.InDelta(t, wantAvg, s.NewWeightedAvg, 1e-12)
		assert.InDelta(t, 70.0, s.NewTotalMargin, 1e-9)
		assert.InDelta(t, wantAvg*0.90, s.NewTP1, 1e-12)
		assert.InDelta(t, wantAvg*0.85, s.NewTP2, 1e-12)

		// Evaluation must not mutate the snapshot.
		assert.Len(t, seq.Steps, 1)
		assert.InDelta(t, 0.0095, seq.WeightedAvgEntry, 1e-12)
	})

	t.Run("later steps use the smaller multiplier", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		seq, err := eng.AppendStep(seq, 0.010925, 50, now)
		require.NoError(t, err)

		dec, err := eng.EvaluateTrigger(seq, 0.010925*1.16, now)
		require.NoError(t, err)
		require.Equal(t, ActionSuggest, dec.Action)
		assert.InDelta(t, 67.5, dec.Suggestion.SuggestedMargin, 1e-9) // 50 * 1.35
		assert.Equal(t, 3, dec.Suggestion.NextStep)
	})

	t.Run("long direction triggers on drops", func(t *testing.T) {
		seq, err := eng.NewSequence("ETHUSDT", domain.Long, 2000, 20, 20, now)
		require.NoError(t, err)

		dec, err := eng.EvaluateTrigger(seq, 1700, now) // -15%
		require.NoError(t, err)
		assert.Equal(t, ActionSuggest, dec.Action)

		dec, err = eng.EvaluateTrigger(seq, 2300, now) // favorable
		require.NoError(t, err)
		assert.Equal(t, ActionNoAction, dec.Action)
	})

	t.Run("cooldown suppresses repeat suggestions", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		seq.LastSuggestionTime = now.Add(-10 * time.Minute)

		dec, err := eng.EvaluateTrigger(seq, 0.011, now)
		require.NoError(t, err)
		assert.Equal(t, ActionNoAction, dec.Action)
		assert.Contains(t, dec.Reason, "cooldown")

		// Expired cooldown suggests again.
		dec, err = eng.EvaluateTrigger(seq, 0.011, now.Add(25*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, ActionSuggest, dec.Action)
	})

	t.Run("full ladder is checked before the threshold", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		var err error
		entry := 0.0095
		for i := 2; i <= seq.MaxSteps; i++ {
			entry *= 1.16
			seq, err = eng.AppendStep(seq, entry, 20, now)
			require.NoError(t, err)
		}
		require.Len(t, seq.Steps, seq.MaxSteps)

		// Way beyond the trigger, still no suggestion.
		dec, err := eng.EvaluateTrigger(seq, entry*1.5, now)
		require.NoError(t, err)
		assert.Equal(t, ActionNoAction, dec.Action)
		assert.Contains(t, dec.Reason, "max steps")
	})

	t.Run("closed sequence is rejected", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		seq.Status = domain.SequenceClosed
		_, err := eng.EvaluateTrigger(seq, 0.011, now)
		assert.ErrorIs(t, err, ports.ErrAlreadyClosed)
	})
}

func TestAppendStep(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Now()

	t.Run("recomputes weighted average and targets", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		next, err := eng.AppendStep(seq, 0.010925, 50, now)
		require.NoError(t, err)

		wantAvg := (0.0095*20 + 0.010925*50) / 70
		assert.InDelta(t, wantAvg, next.WeightedAvgEntry, 1e-12)
		assert.InDelta(t, 0.0105179, next.WeightedAvgEntry, 1e-7)
		assert.InDelta(t, wantAvg*0.90, next.TakeProfit1, 1e-12)
		assert.InDelta(t, wantAvg*0.85, next.TakeProfit2, 1e-12)
		assert.InDelta(t, 70.0, next.TotalMargin(), 1e-9)
		assert.Equal(t, 2, next.LastStep().StepNumber)
		assert.InDelta(t, 2.5, next.LastStep().Multiplier, 1e-9)

		// Input snapshot stays untouched.
		assert.Len(t, seq.Steps, 1)
		assert.InDelta(t, 0.0095, seq.WeightedAvgEntry, 1e-12)
	})

	t.Run("margin may differ from the suggestion", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		next, err := eng.AppendStep(seq, 0.011, 35, now)
		require.NoError(t, err)
		assert.InDelta(t, 1.75, next.LastStep().Multiplier, 1e-9)
	})

	t.Run("step numbers are gapless", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		var err error
		for i := 2; i <= 5; i++ {
			seq, err = eng.AppendStep(seq, 0.0095*float64(i), 20, now)
			require.NoError(t, err)
			assert.Equal(t, i, seq.LastStep().StepNumber)
		}
	})

	t.Run("rejects beyond max steps", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		var err error
		for i := 2; i <= 5; i++ {
			seq, err = eng.AppendStep(seq, 0.011, 20, now)
			require.NoError(t, err)
		}
		_, err = eng.AppendStep(seq, 0.012, 20, now)
		assert.ErrorIs(t, err, ports.ErrSequenceFull)
	})

	t.Run("rejects bad input and closed sequences", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		_, err := eng.AppendStep(seq, 0, 20, now)
		assert.ErrorIs(t, err, ports.ErrInvalidInput)
		_, err = eng.AppendStep(seq, 0.011, -5, now)
		assert.ErrorIs(t, err, ports.ErrInvalidInput)

		seq.Status = domain.SequenceClosed
		_, err = eng.AppendStep(seq, 0.011, 20, now)
		assert.ErrorIs(t, err, ports.ErrAlreadyClosed)
	})
}

func TestEvaluateClose(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Now()

	seq := newShortSequence(t, eng, 0.0095, 20)
	seq, err := eng.AppendStep(seq, 0.010925, 50, now)
	require.NoError(t, err)

	tests := []struct {
		name        string
		price       float64
		shouldClose bool
		outcome     domain.CloseOutcome
	}{
		{"above both targets", seq.TakeProfit1 * 1.01, false, ""},
		{"at TP1", seq.TakeProfit1, true, domain.OutcomeTP1},
		{"between targets", (seq.TakeProfit1 + seq.TakeProfit2) / 2, true, domain.OutcomeTP1},
		{"at TP2 the deeper target wins", seq.TakeProfit2, true, domain.OutcomeTP2},
		{"below TP2", seq.TakeProfit2 * 0.95, true, domain.OutcomeTP2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := eng.EvaluateClose(seq, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.shouldClose, dec.ShouldClose)
			assert.Equal(t, tt.outcome, dec.Outcome)
		})
	}

	t.Run("long direction closes upward", func(t *testing.T) {
		long, err := eng.NewSequence("ETHUSDT", domain.Long, 2000, 20, 20, now)
		require.NoError(t, err)

		dec, err := eng.EvaluateClose(long, 2250)
		require.NoError(t, err)
		assert.True(t, dec.ShouldClose)
		assert.Equal(t, domain.OutcomeTP1, dec.Outcome)

		dec, err = eng.EvaluateClose(long, 2310)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeTP2, dec.Outcome)

		dec, err = eng.EvaluateClose(long, 1950)
		require.NoError(t, err)
		assert.False(t, dec.ShouldClose)
	})
}

func TestCloseSequence(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Now()

	t.Run("two step short ladder", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		seq, err := eng.AppendStep(seq, 0.010925, 50, now)
		require.NoError(t, err)

		exit := 0.008939
		dec, err := eng.EvaluateClose(seq, exit)
		require.NoError(t, err)
		require.True(t, dec.ShouldClose)
		require.Equal(t, domain.OutcomeTP2, dec.Outcome)

		closed, pnl, err := eng.CloseSequence(seq, dec.Outcome, exit, now)
		require.NoError(t, err)
		assert.Equal(t, domain.SequenceClosed, closed.Status)
		assert.Equal(t, domain.OutcomeTP2, closed.CloseOutcome)
		assert.InDelta(t, exit, closed.ClosePrice, 1e-12)

		// Profit is measured from the weighted average, never from
		// the first entry, and scales with the full ladder margin.
		assert.InDelta(t, 15.01, pnl.PNLPct, 0.01)
		assert.InDelta(t, 70.0, pnl.TotalMargin, 1e-9)
		assert.InDelta(t, 262.70, pnl.PNL, 0.1)

		// Input snapshot stays open.
		assert.Equal(t, domain.SequenceActive, seq.Status)
	})

	t.Run("three step short ladder", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.006495, 20)
		seq, err := eng.AppendStep(seq, 0.007468, 50, now)
		require.NoError(t, err)
		seq, err = eng.AppendStep(seq, 0.008588, 67.5, now)
		require.NoError(t, err)

		assert.InDelta(t, 0.0078763, seq.WeightedAvgEntry, 1e-6)
		assert.InDelta(t, 137.5, seq.TotalMargin(), 1e-9)

		exit := 0.005651
		dec, err := eng.EvaluateClose(seq, exit)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeTP2, dec.Outcome)

		_, pnl, err := eng.CloseSequence(seq, dec.Outcome, exit, now)
		require.NoError(t, err)
		assert.InDelta(t, 28.25, pnl.PNLPct, 0.05)
	})

	t.Run("closing is one way", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		closed, _, err := eng.CloseSequence(seq, domain.OutcomeTP1, 0.00855, now)
		require.NoError(t, err)

		_, _, err = eng.CloseSequence(closed, domain.OutcomeTP2, 0.008, now)
		assert.ErrorIs(t, err, ports.ErrAlreadyClosed)
	})

	t.Run("rejects unknown outcome", func(t *testing.T) {
		seq := newShortSequence(t, eng, 0.0095, 20)
		_, _, err := eng.CloseSequence(seq, "CLOSED_SL", 0.009, now)
		assert.ErrorIs(t, err, ports.ErrInvalidInput)
	})
}

func TestComputePnL_LongDirection(t *testing.T) {
	eng := newTestEngine(t)
	seq, err := eng.NewSequence("ETHUSDT", domain.Long, 2000, 100, 10, time.Now())
	require.NoError(t, err)

	pnl, err := eng.ComputePnL(seq, 2200)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pnl.PNLPct, 1e-9)
	assert.InDelta(t, 100.0, pnl.PNL, 1e-9) // 10% * $100 * 10x

	pnl, err = eng.ComputePnL(seq, 1800)
	require.NoError(t, err)
	assert.InDelta(t, -10.0, pnl.PNLPct, 1e-9)
	assert.InDelta(t, -100.0, pnl.PNL, 1e-9)
}
