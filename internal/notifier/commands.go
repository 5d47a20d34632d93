package notifier

import (
	"fmt"
	"strings"

	"SignalSentinel/internal/model"
)

// Queries is the read side the bot commands answer from.
type Queries interface {
	Symbols() []string
	RecentSignals(symbol string, limit int) []model.Signal
	Bias(symbol string) (model.Bias, bool)
	Quote(symbol string) (model.Quote, bool)
}

// recentLimit caps the /signals reply.
const recentLimit = 10

// NormalizeSymbol accepts "btc/usdt", "BTC-USDT" or "BTCUSDT".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
}

// NewCommandHandler answers /symbols, /signals [SYMBOL], /bias SYMBOL and
// /price SYMBOL.
func NewCommandHandler(q Queries) CommandHandler {
	return func(command string) string {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return ""
		}
		// "/bias@MyBot BTCUSDT" in group chats.
		name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
		arg := ""
		if len(fields) > 1 {
			arg = NormalizeSymbol(fields[1])
		}

		switch name {
		case "/start", "/help":
			return "Commands:\n/symbols\n/signals [SYMBOL]\n/bias SYMBOL\n/price SYMBOL"
		case "/symbols":
			return "👀 Watching: " + strings.Join(q.Symbols(), ", ")
		case "/signals":
			return FormatSignalList(q.RecentSignals(arg, recentLimit))
		case "/bias":
			if arg == "" {
				return "Usage: /bias SYMBOL"
			}
			b, ok := q.Bias(arg)
			if !ok {
				return fmt.Sprintf("No bias for %s yet.", arg)
			}
			return FormatBias(b)
		case "/price":
			if arg == "" {
				return "Usage: /price SYMBOL"
			}
			quote, ok := q.Quote(arg)
			if !ok {
				return fmt.Sprintf("No price for %s yet.", arg)
			}
			return FormatQuote(quote)
		}
		return "Unknown command. Try /help"
	}
}
