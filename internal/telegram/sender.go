package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/cardpost/internal/config"
)

// Sender is the part of *bot.Bot the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// SendLongMessage sends a potentially long message to a chat topic, splitting
// it into parts if needed. Falls back to plain text if Markdown parsing fails.
func SendLongMessage(ctx context.Context, s Sender, chatID int64, topicID int, text string) error {
	text = FixMarkdown(text)

	for _, part := range SplitMessage(text, config.MaxTelegramMessageLen) {
		params := &bot.SendMessageParams{
			ChatID:          chatID,
			MessageThreadID: topicID,
			Text:            part,
			ParseMode:       models.ParseModeMarkdownV1,
		}

		if _, err := s.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := s.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}
