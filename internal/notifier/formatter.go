package notifier

import (
	"fmt"
	"html"
	"strings"

	"SignalSentinel/internal/model"
)

var signalEmoji = map[model.SignalType]string{
	model.SignalBuy:      "🟢",
	model.SignalSell:     "🔴",
	model.SignalReversal: "🔄",
}

// FormatSignal formats a signal into a Telegram message.
func FormatSignal(sig *model.Signal) string {
	emoji, ok := signalEmoji[sig.Type]
	if !ok {
		emoji = "⚪"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s SIGNAL</b> | %s\n", emoji, sig.Type, html.EscapeString(sig.Symbol)))
	b.WriteString(fmt.Sprintf("Timeframe: %s\n", sig.Timeframe))
	b.WriteString(fmt.Sprintf("Bias (1H): %s\n", sig.Bias))
	b.WriteString(fmt.Sprintf("Structure: %s\n", html.EscapeString(sig.Structure)))
	b.WriteString(fmt.Sprintf("Entry Price: %.2f\n", sig.EntryPrice))
	if sig.TakeProfit != nil {
		b.WriteString(fmt.Sprintf("Target: %.2f\n", *sig.TakeProfit))
	} else {
		b.WriteString("Target: -\n")
	}
	b.WriteString(fmt.Sprintf("Stop Loss: %.2f\n", sig.StopLoss))
	b.WriteString(fmt.Sprintf("Confidence: %s\n", sig.Confidence))
	if sig.LiquiditySweep {
		b.WriteString("Liquidity sweep: yes\n")
	}
	b.WriteString(fmt.Sprintf("Candle Close: %s", sig.CandleCloseTime.UTC().Format("2006-01-02 15:04 UTC")))
	return b.String()
}

// FormatSignalList formats recent signals, newest first, one per line.
func FormatSignalList(signals []model.Signal) string {
	if len(signals) == 0 {
		return "No signals yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Recent signals</b> (%d)\n\n", len(signals)))
	for _, s := range signals {
		b.WriteString(fmt.Sprintf("%s %s %s @ %.2f SL %.2f [%s] %s\n",
			signalEmoji[s.Type], html.EscapeString(s.Symbol), s.Type, s.EntryPrice, s.StopLoss,
			s.Confidence, s.CandleCloseTime.UTC().Format("01-02 15:04")))
	}
	return b.String()
}

// FormatBias formats the current confirmation-timeframe bias.
func FormatBias(b model.Bias) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧭 <b>%s bias (%s)</b>: %s\n", html.EscapeString(b.Symbol), b.Timeframe, b.Classification))
	sb.WriteString(fmt.Sprintf("Price: %.2f\n", b.Price))
	sb.WriteString(fmt.Sprintf("EMA20/50/100: %s / %s / %s\n",
		formatOptional(b.Snapshot.EMA20), formatOptional(b.Snapshot.EMA50), formatOptional(b.Snapshot.EMA100)))
	sb.WriteString(fmt.Sprintf("As of: %s", b.EvaluatedAt.UTC().Format("2006-01-02 15:04 UTC")))
	return sb.String()
}

// FormatQuote formats the latest price and entry-timeframe indicators.
func FormatQuote(q model.Quote) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💹 <b>%s</b>: %.2f\n", html.EscapeString(q.Symbol), q.Price))
	if q.Change24h != nil {
		b.WriteString(fmt.Sprintf("24h: %+.2f%%\n", *q.Change24h))
	}
	if q.Volume24h != nil {
		b.WriteString(fmt.Sprintf("24h volume: %.2f\n", *q.Volume24h))
	}
	if q.RangePosition24h != nil && q.Low24h != nil && q.High24h != nil {
		b.WriteString(fmt.Sprintf("24h range: %.2f - %.2f (%.0f%%)\n", *q.Low24h, *q.High24h, *q.RangePosition24h*100))
	}
	b.WriteString(fmt.Sprintf("RSI: %s | StochRSI K/D: %s / %s\n",
		formatOptional(q.Snapshot.RSI), formatOptional(q.Snapshot.StochRSIK), formatOptional(q.Snapshot.StochRSID)))
	b.WriteString(fmt.Sprintf("ATR: %s", formatOptional(q.Snapshot.ATR)))
	return b.String()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
