package app

import (
	"sync"
	"time"

	"signalbot/internal/domain"
)

// entryGate rate-limits new entry signals per symbol and direction.
// It is separate from the per-sequence suggestion cooldown: the gate
// stops the scanner from re-announcing the same setup, the sequence
// cooldown throttles re-entry suggestions on an open ladder.
type entryGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
}

func newEntryGate(cooldown time.Duration) *entryGate {
	return &entryGate{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

func gateKey(symbol string, dir domain.Direction) string {
	return symbol + "|" + string(dir)
}

// Allow reports whether a new signal for the symbol and direction may
// be emitted at the given time.
func (g *entryGate) Allow(symbol string, dir domain.Direction, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.last[gateKey(symbol, dir)]
	return !ok || now.Sub(last) >= g.cooldown
}

// Mark records a successfully emitted signal. Callers mark only after
// delivery so a failed send does not suppress the next attempt.
func (g *entryGate) Mark(symbol string, dir domain.Direction, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[gateKey(symbol, dir)] = now
}
