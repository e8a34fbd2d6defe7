package reminder

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/srsengine/pkg/models"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends reminders as Telegram messages
type TelegramNotifier struct {
	api messageSender
}

// NewTelegramNotifier authorizes against the Bot API with token
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	slog.Info("telegram notifier authorized", "account", botAPI.Self.UserName)
	return &TelegramNotifier{api: botAPI}, nil
}

// SendReminder implements Notifier
func (n *TelegramNotifier) SendReminder(_ context.Context, sub models.ReminderSubscription, dueCount int) error {
	msg := tgbotapi.NewMessage(sub.ChatID, reminderText(dueCount))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to chat %d: %w", sub.ChatID, err)
	}
	return nil
}

// LogNotifier writes reminders to the log. Used when no bot token is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendReminder implements Notifier
func (n LogNotifier) SendReminder(_ context.Context, sub models.ReminderSubscription, dueCount int) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("reminder", "user_id", sub.UserID, "chat_id", sub.ChatID, "due", dueCount, "text", reminderText(dueCount))
	return nil
}

func reminderText(count int) string {
	noun := "cards"
	if count == 1 {
		noun = "card"
	}
	return fmt.Sprintf("You have %d %s due for review.", count, noun)
}
