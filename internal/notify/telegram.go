package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var priorityIcons = map[Priority]string{
	PriorityLow:    "ℹ️",
	PriorityNormal: "🔔",
	PriorityHigh:   "⚠️",
	PriorityUrgent: "🚨",
}

// Telegram sends notifications to a single Telegram chat
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram creates a Telegram notifier
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("Telegram notifier authorized")

	return &Telegram{
		api:    api,
		chatID: chatID,
		log:    log.With().Str("component", "telegram").Logger(),
	}, nil
}

// Send delivers one notification message
func (t *Telegram) Send(title, message string, priority Priority, accountID string) error {
	icon, ok := priorityIcons[priority]
	if !ok {
		icon = priorityIcons[PriorityNormal]
	}

	text := fmt.Sprintf("%s *%s*\n%s", icon, title, message)
	if accountID != "" {
		text += fmt.Sprintf("\n_account: %s_", accountID)
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.api.Send(msg); err != nil {
		t.log.Error().Err(err).Str("title", title).Msg("Failed to send notification")
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}
