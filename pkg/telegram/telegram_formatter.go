package telegram

import (
	"fmt"
	"strings"

	"golang-signal-notifier/internal/entity"
)

// FormatSignalEventForTelegram formats a classified signal lifecycle event as
// a Markdown message for Telegram.
func FormatSignalEventForTelegram(event *entity.SignalEvent, kind entity.EventKind) string {
	var b strings.Builder

	sideIcon := "📈"
	if event.TradeSide == entity.TradeSideSell {
		sideIcon = "📉"
	}

	switch kind {
	case entity.EventKindOpened:
		b.WriteString(fmt.Sprintf("%s *Signal Opened: %s*\n\n", sideIcon, event.InstrumentName))
		b.WriteString(fmt.Sprintf("🔖 *Side:* %s\n", strings.ToUpper(string(event.TradeSide))))
		b.WriteString(fmt.Sprintf("💰 *Entry:* %.5f\n", event.EntryPrice))
	case entity.EventKindClosed:
		b.WriteString(fmt.Sprintf("🏁 *Signal Closed: %s*\n\n", event.InstrumentName))
		b.WriteString(fmt.Sprintf("🔖 *Side:* %s\n", strings.ToUpper(string(event.TradeSide))))
		b.WriteString(fmt.Sprintf("💰 *Entry:* %.5f\n", event.EntryPrice))
		if event.ExitPrice != nil {
			b.WriteString(fmt.Sprintf("🎯 *Exit:* %.5f\n", *event.ExitPrice))
		}
	}

	b.WriteString(fmt.Sprintf("\n🆔 `%s`", event.ClientTradeID))

	return b.String()
}
