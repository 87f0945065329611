// Package notify posts pipeline run summaries to Telegram. Notification is
// best-effort: a broken bot never fails a run.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ndmitriev/shotvalue/internal/pkg/health"
)

// TelegramNotifier sends run summaries and failure alerts to a chat. A nil
// notifier is a no-op, which is what unconfigured deployments get.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier returns nil (not an error) when the token is empty or
// the bot cannot be reached; the pipeline runs fine without notifications.
func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	if token == "" || chatID == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false
	if _, err := bot.GetMe(); err != nil {
		slog.Error("Telegram bot unreachable", "error", err)
		return nil
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// RunSummary posts the counter snapshot for a completed run.
func (n *TelegramNotifier) RunSummary(mode string, snap health.Snapshot) {
	if n == nil {
		return
	}
	text := fmt.Sprintf(
		"shotvalue %s run finished\nmatches: %d discovered, %d ingested, %d abandoned\nplayers: %d, shots: %d, forms: %d",
		mode, snap.MatchesDiscovered, snap.MatchesIngested, snap.MatchesAbandoned,
		snap.PlayersUpserted, snap.ShotsInserted, snap.FormsComputed)
	n.send(text)
}

// Failure posts an unrecoverable pipeline failure.
func (n *TelegramNotifier) Failure(mode string, err error) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("shotvalue %s run FAILED: %v", mode, err))
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		slog.Warn("Failed to send telegram message", "error", err)
	}
}
