// Package app orchestrates the signal bot: a scheduled market scan
// that proposes entries, and a tracking loop that watches active
// sequences and standalone signals against live prices. All decisions
// come from the engine and the strategy; this layer only wires them to
// storage, the price feed and the notifier.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"github.com/robfig/cron/v3"

	"signalbot/config"
	"signalbot/internal/domain"
	"signalbot/internal/martingale"
	"signalbot/internal/ports"
)

const reportWindow = 24 * time.Hour

// SignalService orchestrates the bot's scan and tracking loops.
type SignalService struct {
	cfg      *config.Config
	logger   ports.Logger
	prices   ports.PriceSource
	seqRepo  ports.SequenceRepository
	sigRepo  ports.SignalRepository
	notifier ports.Notifier
	strategy ports.Strategy
	engine   *martingale.Engine
	gate     *entryGate

	now func() time.Time // injectable clock for tests
}

// NewSignalService creates a new application service instance.
func NewSignalService(
	cfg *config.Config,
	logger ports.Logger,
	prices ports.PriceSource,
	seqRepo ports.SequenceRepository,
	sigRepo ports.SignalRepository,
	notifier ports.Notifier,
	strat ports.Strategy,
	engine *martingale.Engine,
) (*SignalService, error) {
	if cfg == nil || logger == nil || prices == nil || seqRepo == nil || sigRepo == nil || notifier == nil || strat == nil || engine == nil {
		return nil, fmt.Errorf("missing required dependencies for SignalService")
	}

	return &SignalService{
		cfg:      cfg,
		logger:   logger,
		prices:   prices,
		seqRepo:  seqRepo,
		sigRepo:  sigRepo,
		notifier: notifier,
		strategy: strat,
		engine:   engine,
		gate:     newEntryGate(cfg.EntryCooldown),
		now:      time.Now,
	}, nil
}

// Start runs the service until the context is cancelled or a shutdown
// signal arrives.
func (s *SignalService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Signal Service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	// The price feed must be reachable before anything is scheduled.
	if err := s.prices.Ping(ctx); err != nil {
		s.logger.Error(ctx, err, "Price source unreachable")
		return fmt.Errorf("price source ping failed: %w", err)
	}
	s.logger.Info(ctx, "Price source reachable")

	active, err := s.seqRepo.FindActiveSequences(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load active sequences")
		return fmt.Errorf("failed to load active sequences: %w", err)
	}
	s.logger.Info(ctx, "Initial state synchronized", map[string]interface{}{"activeSequences": len(active)})

	if err := s.notifier.NotifyStartup(ctx, ports.StartupInfo{
		StrategyName:     s.strategy.Name(),
		MartingaleActive: s.cfg.MartingaleEnabled,
		Symbols:          s.cfg.Symbols,
		ScanInterval:     s.cfg.ScanInterval,
		PollInterval:     s.cfg.PollInterval,
	}); err != nil {
		s.logger.Warn(ctx, "Startup notice delivery failed", map[string]interface{}{"error": err.Error()})
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", s.cfg.ScanInterval), func() { s.scanMarkets(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule market scan: %w", err)
	}
	if _, err := scheduler.AddFunc(s.cfg.ReportCron, func() { s.sendReport(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule performance report %q: %w", s.cfg.ReportCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// First scan right away instead of waiting a full interval.
	s.scanMarkets(ctx)

	s.runTracking(ctx)

	s.logger.Info(ctx, "Signal Service stopped.")
	return nil
}

// runTracking polls active sequences and standalone signals. After a
// failed cycle the next poll backs off exponentially; a clean cycle
// resets the cadence.
func (s *SignalService) runTracking(ctx context.Context) {
	b := &backoff.Backoff{
		Min:    s.cfg.PollInterval,
		Max:    10 * time.Minute,
		Factor: 2,
		Jitter: true,
	}
	delay := s.cfg.PollInterval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := s.trackCycle(ctx); err != nil {
			delay = b.Duration()
			s.logger.Warn(ctx, "Tracking cycle failed, backing off", map[string]interface{}{
				"error": err.Error(), "nextPoll": delay.String(),
			})
			continue
		}
		b.Reset()
		delay = s.cfg.PollInterval
	}
}

// trackCycle runs one pass over all tracked state. It returns an error
// only when the whole cycle was useless (no price could be fetched),
// which drives the poll backoff.
func (s *SignalService) trackCycle(ctx context.Context) error {
	sequences, err := s.seqRepo.FindActiveSequences(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active sequences: %w", err)
	}
	standalone, err := s.sigRepo.FindActiveStandaloneSignals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load standalone signals: %w", err)
	}
	if len(sequences) == 0 && len(standalone) == 0 {
		return nil
	}

	// One ticker call per symbol per cycle.
	priceBySymbol := make(map[string]float64)
	var priceErrors, priceRequests int
	fetch := func(symbol string) (float64, bool) {
		if price, ok := priceBySymbol[symbol]; ok {
			return price, true
		}
		priceRequests++
		price, err := s.prices.GetTickerPrice(ctx, symbol)
		if err != nil {
			priceErrors++
			s.logger.Warn(ctx, "Price unavailable, skipping symbol this cycle", map[string]interface{}{
				"symbol": symbol, "error": err.Error(),
			})
			return 0, false
		}
		priceBySymbol[symbol] = price
		return price, true
	}

	for _, seq := range sequences {
		price, ok := fetch(seq.Symbol)
		if !ok {
			continue
		}
		s.checkSequence(ctx, seq, price)
	}
	for _, sig := range standalone {
		price, ok := fetch(sig.Symbol)
		if !ok {
			continue
		}
		s.checkStandaloneSignal(ctx, sig, price)
	}

	if priceRequests > 0 && priceErrors == priceRequests {
		return fmt.Errorf("%w: every price request failed this cycle", ports.ErrPriceUnavailable)
	}
	return nil
}

// checkSequence evaluates one active sequence at the current price.
// Close checks run before trigger checks so a sequence that reached a
// target never receives a further suggestion.
func (s *SignalService) checkSequence(ctx context.Context, seq *domain.Sequence, price float64) {
	now := s.now()

	closeDec, err := s.engine.EvaluateClose(seq, price)
	if err != nil {
		s.logger.Error(ctx, err, "Close evaluation failed", map[string]interface{}{"sequenceID": seq.ID})
		return
	}
	if closeDec.ShouldClose {
		s.closeSequence(ctx, seq, closeDec.Outcome, price, now)
		return
	}

	trigDec, err := s.engine.EvaluateTrigger(seq, price, now)
	if err != nil {
		s.logger.Error(ctx, err, "Trigger evaluation failed", map[string]interface{}{"sequenceID": seq.ID})
		return
	}
	if trigDec.Action != martingale.ActionSuggest {
		s.logger.Debug(ctx, "No action for sequence", map[string]interface{}{
			"sequenceID": seq.ID, "symbol": seq.Symbol, "price": price, "reason": trigDec.Reason,
		})
		return
	}

	// The cooldown is recorded only after the suggestion actually went
	// out; a failed delivery retries on the next poll.
	if err := s.notifier.NotifySuggestion(ctx, *trigDec.Suggestion); err != nil {
		s.logger.Error(ctx, err, "Suggestion delivery failed", map[string]interface{}{"sequenceID": seq.ID})
		return
	}
	if err := s.seqRepo.TouchSuggestionTime(ctx, seq.ID, now); err != nil {
		s.logger.Error(ctx, err, "Failed to record suggestion time", map[string]interface{}{"sequenceID": seq.ID})
		return
	}
	s.logger.Info(ctx, "Martingale suggestion sent", map[string]interface{}{
		"sequenceID": seq.ID, "symbol": seq.Symbol,
		"nextStep": trigDec.Suggestion.NextStep, "suggestedMargin": trigDec.Suggestion.SuggestedMargin,
	})
}

func (s *SignalService) closeSequence(ctx context.Context, seq *domain.Sequence, outcome domain.CloseOutcome, price float64, now time.Time) {
	closed, pnl, err := s.engine.CloseSequence(seq, outcome, price, now)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to close sequence", map[string]interface{}{"sequenceID": seq.ID})
		return
	}

	if err := s.seqRepo.SaveSequence(ctx, closed); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			// Someone appended a step since our read; the next poll
			// re-evaluates against the fresh ladder.
			s.logger.Info(ctx, "Sequence changed concurrently, retrying next poll", map[string]interface{}{"sequenceID": seq.ID})
			return
		}
		s.logger.Error(ctx, err, "Failed to persist sequence close", map[string]interface{}{"sequenceID": seq.ID})
		return
	}

	sigOutcome := domain.SignalHitTP1
	if outcome == domain.OutcomeTP2 {
		sigOutcome = domain.SignalHitTP2
	}
	if err := s.sigRepo.CloseSignalsForSequence(ctx, closed.ID, sigOutcome, price, now); err != nil {
		s.logger.Error(ctx, err, "Failed to close linked signals", map[string]interface{}{"sequenceID": closed.ID})
	}

	s.logger.Info(ctx, "Sequence closed", map[string]interface{}{
		"sequenceID": closed.ID, "symbol": closed.Symbol, "outcome": string(outcome),
		"exitPrice": price, "pnl": pnl.PNL, "pnlPct": pnl.PNLPct,
	})

	if err := s.notifier.NotifySequenceClosed(ctx, ports.SequenceClosure{
		Sequence: closed,
		PNL:      pnl.PNL,
		PNLPct:   pnl.PNLPct,
		Duration: now.Sub(closed.OpenedAt),
	}); err != nil {
		s.logger.Error(ctx, err, "Sequence close notice delivery failed", map[string]interface{}{"sequenceID": closed.ID})
	}
}

// checkStandaloneSignal resolves a sequence-less signal against its own
// targets, stop and expiry.
func (s *SignalService) checkStandaloneSignal(ctx context.Context, sig *domain.Signal, price float64) {
	now := s.now()

	var outcome domain.SignalOutcome
	switch {
	case sig.Direction == domain.Short && price <= sig.TakeProfit2:
		outcome = domain.SignalHitTP2
	case sig.Direction == domain.Short && price <= sig.TakeProfit1:
		outcome = domain.SignalHitTP1
	case sig.Direction == domain.Short && sig.StopLoss > 0 && price >= sig.StopLoss:
		outcome = domain.SignalHitSL
	case sig.Direction == domain.Long && price >= sig.TakeProfit2:
		outcome = domain.SignalHitTP2
	case sig.Direction == domain.Long && price >= sig.TakeProfit1:
		outcome = domain.SignalHitTP1
	case sig.Direction == domain.Long && sig.StopLoss > 0 && price <= sig.StopLoss:
		outcome = domain.SignalHitSL
	case now.Sub(sig.SignalTime) >= s.cfg.SignalExpiry:
		outcome = domain.SignalExpired
	default:
		return
	}

	var pnlPct float64
	if sig.Direction == domain.Short {
		pnlPct = (sig.EntryPrice - price) / sig.EntryPrice * 100
	} else {
		pnlPct = (price - sig.EntryPrice) / sig.EntryPrice * 100
	}

	sig.Status = domain.SignalClosed
	sig.Outcome = outcome
	sig.ExitPrice = price
	sig.ExitTime = now
	sig.PNLPct = pnlPct
	sig.PNL = pnlPct / 100 * sig.RecommendedMargin * sig.RecommendedLev

	if err := s.sigRepo.UpdateSignal(ctx, sig); err != nil {
		s.logger.Error(ctx, err, "Failed to persist signal close", map[string]interface{}{"signalID": sig.ID})
		return
	}
	s.logger.Info(ctx, "Standalone signal closed", map[string]interface{}{
		"signalID": sig.ID, "symbol": sig.Symbol, "outcome": string(outcome), "pnl": sig.PNL,
	})

	if err := s.notifier.NotifySignalClosed(ctx, sig); err != nil {
		s.logger.Error(ctx, err, "Signal close notice delivery failed", map[string]interface{}{"signalID": sig.ID})
	}
}

// scanMarkets runs the strategy over every configured symbol and turns
// accepted proposals into persisted signals (and sequences).
func (s *SignalService) scanMarkets(ctx context.Context) {
	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		s.scanSymbol(ctx, symbol)
	}
}

func (s *SignalService) scanSymbol(ctx context.Context, symbol string) {
	now := s.now()

	// One ladder per symbol and direction; while it is open the
	// scanner stays out of the way.
	existing, err := s.seqRepo.FindActiveSequenceBySymbol(ctx, symbol, domain.Short)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to check for active sequence", map[string]interface{}{"symbol": symbol})
		return
	}
	if existing != nil {
		s.logger.Debug(ctx, "Active sequence open, skipping scan", map[string]interface{}{
			"symbol": symbol, "sequenceID": existing.ID,
		})
		return
	}

	klines, err := s.prices.GetKlines(ctx, symbol, s.cfg.KlineInterval, s.strategy.RequiredDataPoints())
	if err != nil {
		s.logger.Warn(ctx, "Failed to fetch klines, skipping symbol", map[string]interface{}{
			"symbol": symbol, "error": err.Error(),
		})
		return
	}

	sig, err := s.strategy.GenerateSignal(ctx, symbol, klines)
	if err != nil {
		s.logger.Warn(ctx, "Strategy evaluation failed", map[string]interface{}{
			"symbol": symbol, "error": err.Error(),
		})
		return
	}
	if sig == nil {
		return
	}

	if !s.gate.Allow(symbol, sig.Direction, now) {
		s.logger.Debug(ctx, "Entry cooldown active, suppressing signal", map[string]interface{}{
			"symbol": symbol, "direction": string(sig.Direction),
		})
		return
	}

	if sig.Kind == domain.SignalInitial && s.cfg.MartingaleEnabled {
		seq, err := s.engine.NewSequence(symbol, sig.Direction, sig.EntryPrice, sig.RecommendedMargin, sig.RecommendedLev, now)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to build sequence from signal", map[string]interface{}{"symbol": symbol})
			return
		}
		if _, err := s.seqRepo.CreateSequence(ctx, seq); err != nil {
			s.logger.Error(ctx, err, "Failed to persist sequence", map[string]interface{}{"symbol": symbol})
			return
		}
		sig.SequenceID = seq.ID
		s.logger.Info(ctx, "Sequence opened", map[string]interface{}{
			"sequenceID": seq.ID, "symbol": symbol, "entry": sig.EntryPrice, "margin": sig.RecommendedMargin,
		})
	}

	if _, err := s.sigRepo.CreateSignal(ctx, sig); err != nil {
		s.logger.Error(ctx, err, "Failed to persist signal", map[string]interface{}{"symbol": symbol})
		return
	}

	if err := s.notifier.NotifySignal(ctx, sig); err != nil {
		s.logger.Error(ctx, err, "Signal delivery failed", map[string]interface{}{"signalID": sig.ID})
		return
	}
	s.gate.Mark(symbol, sig.Direction, now)
	s.logger.Info(ctx, "Signal sent", map[string]interface{}{
		"signalID": sig.ID, "symbol": symbol, "kind": string(sig.Kind), "confidence": sig.Confidence,
	})
}

// RecordStep records a user-confirmed martingale entry on an active
// sequence: the ladder is recomputed, persisted, journaled as a signal
// and confirmed back over the notifier. The margin is whatever the
// user actually entered.
func (s *SignalService) RecordStep(ctx context.Context, sequenceID int64, entryPrice, margin float64) (*domain.Sequence, error) {
	now := s.now()

	for attempt := 0; ; attempt++ {
		seq, err := s.seqRepo.FindSequenceByID(ctx, sequenceID)
		if err != nil {
			return nil, err
		}
		if seq == nil {
			return nil, fmt.Errorf("sequence %d: %w", sequenceID, ports.ErrNotFound)
		}

		next, err := s.engine.AppendStep(seq, entryPrice, margin, now)
		if err != nil {
			return nil, err
		}

		if err := s.seqRepo.SaveSequence(ctx, next); err != nil {
			if errors.Is(err, ports.ErrConflict) && attempt == 0 {
				s.logger.Info(ctx, "Sequence changed concurrently, re-reading", map[string]interface{}{"sequenceID": sequenceID})
				continue
			}
			return nil, err
		}

		step := next.LastStep()
		record := &domain.Signal{
			Symbol:            next.Symbol,
			Direction:         next.Direction,
			Kind:              domain.SignalMartingale,
			Status:            domain.SignalActive,
			EntryPrice:        entryPrice,
			TakeProfit1:       next.TakeProfit1,
			TakeProfit2:       next.TakeProfit2,
			StrategyName:      s.strategy.Name(),
			RecommendedLev:    next.Leverage,
			RecommendedMargin: margin,
			SequenceID:        next.ID,
			StepNumber:        step.StepNumber,
			SignalTime:        now,
		}
		if _, err := s.sigRepo.CreateSignal(ctx, record); err != nil {
			s.logger.Error(ctx, err, "Failed to journal martingale step", map[string]interface{}{"sequenceID": next.ID})
		}

		s.logger.Info(ctx, "Martingale step recorded", map[string]interface{}{
			"sequenceID": next.ID, "step": step.StepNumber, "entry": entryPrice, "margin": margin,
			"newWeightedAvg": next.WeightedAvgEntry,
		})
		if err := s.notifier.NotifySignal(ctx, record); err != nil {
			s.logger.Error(ctx, err, "Step confirmation delivery failed", map[string]interface{}{"sequenceID": next.ID})
		}
		return next, nil
	}
}

// sendReport aggregates the last day's closed signals and ships the summary.
func (s *SignalService) sendReport(ctx context.Context) {
	perf, err := s.sigRepo.GetPerformance(ctx, s.now().Add(-reportWindow))
	if err != nil {
		s.logger.Error(ctx, err, "Failed to aggregate performance")
		return
	}
	if err := s.notifier.NotifyReport(ctx, perf, reportWindow); err != nil {
		s.logger.Error(ctx, err, "Report delivery failed")
		return
	}
	s.logger.Info(ctx, "Performance report sent", map[string]interface{}{
		"signals": perf.TotalSignals, "winRate": perf.WinRate, "totalPnl": perf.TotalPNL,
	})
}
