package ports

import (
	"context"

	"signalbot/internal/domain"
)

// Strategy evaluates market data and proposes entry signals. It never
// touches storage or messaging; the application layer decides what to
// do with a proposal.
type Strategy interface {
	// GenerateSignal evaluates the klines for a symbol and returns an
	// entry proposal, or nil, nil when conditions are not met. The
	// returned signal carries no ID; persistence assigns one.
	GenerateSignal(ctx context.Context, symbol string, klines []*domain.Kline) (*domain.Signal, error)

	// RequiredDataPoints returns the minimum number of klines the
	// strategy needs for a decision.
	RequiredDataPoints() int

	// Name returns the name of the strategy.
	Name() string
}
