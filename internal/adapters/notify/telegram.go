// Package notify delivers the finished analysis report to external channels.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/pkg/logger"
)

// Telegram sends the plain-text report to a configured chat
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates new Telegram notifier
func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Telegram{api: bot, chatID: chatID}, nil
}

// SendReport delivers the report text
func (t *Telegram) SendReport(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	logger.Info("report delivered to telegram",
		zap.Int64("chat_id", t.chatID),
	)
	return nil
}
