package ports

import (
	"context"
	"time"

	"signalbot/internal/domain"
)

// PriceSource defines the read-only interface to an exchange's price feed.
// The bot never places orders; this is the full extent of its exchange access.
type PriceSource interface {
	// GetTickerPrice retrieves the last traded price for a given symbol.
	// Returns ErrPriceUnavailable (wrapped) if the source cannot answer;
	// the caller must skip the cycle, not crash.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetKlines retrieves historical klines/candlestick data for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)
}
