// Package telegram implements ports.Notifier on the Telegram Bot API.
// It owns all message formatting; callers hand it structured decisions.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signalbot/internal/domain"
	"signalbot/internal/ports"
)

// Notifier delivers bot decisions to a single Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger ports.Logger
}

// Config holds configuration for the Telegram notifier.
type Config struct {
	Token  string
	ChatID int64
	Logger ports.Logger
}

// New creates a Telegram notifier and verifies the token against the API.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for Telegram notifier", ports.ErrConfigurationError)
	}
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("%w: telegram token and chat ID are required", ports.ErrConfigurationError)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: telegram authorization failed: %v", ports.ErrDeliveryFailed, err)
	}
	cfg.Logger.Info(context.Background(), "Telegram notifier authorized", map[string]interface{}{"account": bot.Self.UserName})

	return &Notifier{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

// send delivers one HTML message to the configured chat.
func (n *Notifier) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error(ctx, err, "Telegram send failed", map[string]interface{}{"chatID": n.chatID})
		return fmt.Errorf("%w: %v", ports.ErrDeliveryFailed, err)
	}
	return nil
}

// NotifyStartup announces that the service came up.
func (n *Notifier) NotifyStartup(ctx context.Context, info ports.StartupInfo) error {
	martingale := "disabled"
	if info.MartingaleActive {
		martingale = "enabled"
	}
	var b strings.Builder
	b.WriteString("🚀 <b>SIGNAL BOT STARTED</b>\n\n")
	fmt.Fprintf(&b, "🤖 <b>Strategy:</b> %s\n", info.StrategyName)
	fmt.Fprintf(&b, "🪜 <b>Martingale:</b> %s\n", martingale)
	fmt.Fprintf(&b, "📡 <b>Symbols:</b> %s\n", strings.Join(info.Symbols, ", "))
	fmt.Fprintf(&b, "🔍 <b>Scan:</b> every %s\n", info.ScanInterval)
	fmt.Fprintf(&b, "👁 <b>Tracking:</b> every %s\n\n", info.PollInterval)
	b.WriteString("🔄 Monitoring markets...")
	return n.send(ctx, b.String())
}

// NotifySignal delivers a new entry signal.
func (n *Notifier) NotifySignal(ctx context.Context, sig *domain.Signal) error {
	entry := sig.EntryPrice
	tp1Pct := pctAbs(sig.TakeProfit1, entry)
	tp2Pct := pctAbs(sig.TakeProfit2, entry)

	var b strings.Builder
	fmt.Fprintf(&b, "🔴 <b>%s SIGNAL - %s</b>", sig.Direction, sig.Symbol)
	if sig.Kind == domain.SignalInitial {
		b.WriteString(" (sequence start)")
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💰 <b>Entry:</b> $%.6f\n", entry)
	if sig.StopLoss > 0 {
		fmt.Fprintf(&b, "🛑 <b>Stop Loss:</b> $%.6f (%.2f%%)\n", sig.StopLoss, pctAbs(sig.StopLoss, entry))
	}
	fmt.Fprintf(&b, "🎯 <b>Take Profit 1:</b> $%.6f (%.2f%%)\n", sig.TakeProfit1, tp1Pct)
	fmt.Fprintf(&b, "🎯 <b>Take Profit 2:</b> $%.6f (%.2f%%)\n\n", sig.TakeProfit2, tp2Pct)

	b.WriteString("📊 <b>Indicators:</b>\n")
	fmt.Fprintf(&b, "  • RSI: %.2f\n", sig.Indicators.RSI)
	fmt.Fprintf(&b, "  • MACD: %.4f\n", sig.Indicators.MACD)
	fmt.Fprintf(&b, "  • MACD Signal: %.4f\n", sig.Indicators.MACDSignal)
	fmt.Fprintf(&b, "  • EMA50: %.6f\n\n", sig.Indicators.EMA50)

	fmt.Fprintf(&b, "🎯 <b>Confidence:</b> %s (%.0f%%)\n", stars(sig.Confidence), sig.Confidence*100)
	fmt.Fprintf(&b, "💼 <b>Suggested:</b> %.0fx leverage, $%.2f margin\n", sig.RecommendedLev, sig.RecommendedMargin)
	fmt.Fprintf(&b, "🤖 <b>Strategy:</b> %s\n\n", sig.StrategyName)
	fmt.Fprintf(&b, "<i>⏰ %s</i>", sig.SignalTime.Format("2006-01-02 15:04:05"))
	return n.send(ctx, b.String())
}

// NotifySuggestion delivers a martingale re-entry suggestion.
func (n *Notifier) NotifySuggestion(ctx context.Context, s ports.Suggestion) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>MARTINGALE SUGGESTION - %s</b>\n\n", s.Symbol)

	b.WriteString("📊 <b>Sequence Info:</b>\n")
	fmt.Fprintf(&b, "  • Sequence ID: %d\n", s.SequenceID)
	fmt.Fprintf(&b, "  • Current Step: %d/%d\n", s.CurrentStep, s.MaxSteps)
	fmt.Fprintf(&b, "  • Direction: %s\n\n", s.Direction)

	b.WriteString("📈 <b>Price Movement:</b>\n")
	fmt.Fprintf(&b, "  • Last Entry: $%.6f\n", s.LastEntryPrice)
	fmt.Fprintf(&b, "  • Current Price: $%.6f\n", s.CurrentPrice)
	fmt.Fprintf(&b, "  • Price Move: %+.2f%% (trigger: %+.2f%%)\n\n", s.PriceMovePct, s.TriggerPct)

	b.WriteString("💡 <b>SUGGESTION:</b>\n")
	fmt.Fprintf(&b, "  • Suggested Entry: $%.6f\n", s.SuggestedEntry)
	fmt.Fprintf(&b, "  • Add Margin: $%.2f\n", s.SuggestedMargin)
	fmt.Fprintf(&b, "  • Step: %d/%d\n\n", s.NextStep, s.MaxSteps)

	b.WriteString("📊 <b>CURRENT TARGETS:</b>\n")
	fmt.Fprintf(&b, "  • Weighted Avg: $%.6f\n", s.CurrentWeightedAvg)
	fmt.Fprintf(&b, "  • TP1: $%.6f\n", s.CurrentTP1)
	fmt.Fprintf(&b, "  • TP2: $%.6f\n", s.CurrentTP2)
	fmt.Fprintf(&b, "  • Total Margin: $%.2f\n\n", s.CurrentTotalMargin)

	b.WriteString("🎯 <b>NEW TARGETS (After Adding):</b>\n")
	fmt.Fprintf(&b, "  • New Weighted Avg: $%.6f\n", s.NewWeightedAvg)
	fmt.Fprintf(&b, "  • New TP1: $%.6f\n", s.NewTP1)
	fmt.Fprintf(&b, "  • New TP2: $%.6f\n", s.NewTP2)
	fmt.Fprintf(&b, "  • New Total Margin: $%.2f\n\n", s.NewTotalMargin)

	b.WriteString("⚠️ <b>Action Required:</b>\n")
	b.WriteString("This is a suggestion only. To add the entry:\n")
	b.WriteString("1. Manually enter the position at the suggested price\n")
	b.WriteString("2. Use the suggested margin amount\n")
	b.WriteString("3. Monitor for TP based on the NEW weighted average\n\n")
	b.WriteString("<i>Targets always follow the weighted average of all entries</i>")
	return n.send(ctx, b.String())
}

// NotifySequenceClosed delivers a sequence close notice with its PnL.
func (n *Notifier) NotifySequenceClosed(ctx context.Context, c ports.SequenceClosure) error {
	seq := c.Sequence
	emoji := "🎯"
	if seq.CloseOutcome == domain.OutcomeTP2 {
		emoji = "🎯🎯"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>SEQUENCE CLOSED - %s</b>\n\n", emoji, seq.Symbol)
	fmt.Fprintf(&b, "📊 <b>Result:</b> %s\n", seq.CloseOutcome)
	fmt.Fprintf(&b, "🔢 <b>Steps Completed:</b> %d/%d\n\n", len(seq.Steps), seq.MaxSteps)

	b.WriteString("💰 <b>Entry Details:</b>\n")
	fmt.Fprintf(&b, "  • First Entry: $%.6f\n", seq.Steps[0].EntryPrice)
	fmt.Fprintf(&b, "  • Last Entry: $%.6f\n", seq.LastStep().EntryPrice)
	fmt.Fprintf(&b, "  • Weighted Avg Entry: $%.6f\n\n", seq.WeightedAvgEntry)

	fmt.Fprintf(&b, "💰 <b>Exit:</b> $%.6f\n\n", seq.ClosePrice)
	fmt.Fprintf(&b, "📈 <b>Total PnL:</b> $%s%.2f (%s%.2f%%)\n\n", sign(c.PNL), c.PNL, sign(c.PNLPct), c.PNLPct)

	b.WriteString("💼 <b>Position Details:</b>\n")
	fmt.Fprintf(&b, "  • Total Margin: $%.2f\n", seq.TotalMargin())
	fmt.Fprintf(&b, "  • Leverage: %.0fx\n", seq.Leverage)
	fmt.Fprintf(&b, "  • PnL per Step: $%.2f\n\n", c.PNL/float64(len(seq.Steps)))

	fmt.Fprintf(&b, "⏱ <b>Duration:</b> %.1f hours\n\n", c.Duration.Hours())
	fmt.Fprintf(&b, "<i>PnL calculated from weighted average entry: $%.6f</i>", seq.WeightedAvgEntry)
	return n.send(ctx, b.String())
}

// NotifySignalClosed delivers a standalone signal resolution.
func (n *Notifier) NotifySignalClosed(ctx context.Context, sig *domain.Signal) error {
	emoji := map[domain.SignalOutcome]string{
		domain.SignalHitTP1:  "🎯",
		domain.SignalHitTP2:  "🎯🎯",
		domain.SignalHitSL:   "❌",
		domain.SignalExpired: "⏰",
	}[sig.Outcome]
	if emoji == "" {
		emoji = "✅"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>SIGNAL CLOSED - %s</b>\n\n", emoji, sig.Symbol)
	fmt.Fprintf(&b, "📊 <b>Result:</b> %s\n", sig.Outcome)
	fmt.Fprintf(&b, "💰 <b>Entry:</b> $%.6f\n", sig.EntryPrice)
	fmt.Fprintf(&b, "💰 <b>Exit:</b> $%.6f\n", sig.ExitPrice)
	fmt.Fprintf(&b, "📈 <b>PnL:</b> $%s%.2f (%s%.2f%%)\n\n", sign(sig.PNL), sig.PNL, sign(sig.PNLPct), sig.PNLPct)
	fmt.Fprintf(&b, "⏱ <b>Duration:</b> %.1f hours\n", sig.ExitTime.Sub(sig.SignalTime).Hours())
	fmt.Fprintf(&b, "🤖 <b>Strategy:</b> %s", sig.StrategyName)
	return n.send(ctx, b.String())
}

// NotifyReport delivers a periodic performance summary.
func (n *Notifier) NotifyReport(ctx context.Context, p *ports.Performance, window time.Duration) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>PERFORMANCE REPORT</b> (last %.0fh)\n\n", window.Hours())
	if p.TotalSignals == 0 {
		b.WriteString("No signals closed in this period.")
		return n.send(ctx, b.String())
	}
	fmt.Fprintf(&b, "🔢 <b>Signals Closed:</b> %d\n", p.TotalSignals)
	fmt.Fprintf(&b, "✅ <b>Wins:</b> %d\n", p.WinningSignals)
	fmt.Fprintf(&b, "❌ <b>Losses:</b> %d\n", p.LosingSignals)
	fmt.Fprintf(&b, "🏆 <b>Win Rate:</b> %.1f%%\n\n", p.WinRate)
	fmt.Fprintf(&b, "📈 <b>Total PnL:</b> $%s%.2f\n", sign(p.TotalPNL), p.TotalPNL)
	fmt.Fprintf(&b, "📊 <b>Avg PnL:</b> $%s%.2f\n", sign(p.AvgPNL), p.AvgPNL)
	fmt.Fprintf(&b, "🥇 <b>Best:</b> $%s%.2f\n", sign(p.BestPNL), p.BestPNL)
	fmt.Fprintf(&b, "🥈 <b>Worst:</b> $%s%.2f", sign(p.WorstPNL), p.WorstPNL)
	return n.send(ctx, b.String())
}

func pctAbs(target, entry float64) float64 {
	if entry == 0 {
		return 0
	}
	pct := (target - entry) / entry * 100
	if pct < 0 {
		pct = -pct
	}
	return pct
}

func sign(v float64) string {
	if v >= 0 {
		return "+"
	}
	return ""
}

func stars(confidence float64) string {
	return strings.Repeat("⭐", int(confidence*5))
}
