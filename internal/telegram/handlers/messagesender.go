package handlers

import (
	"github.com/futig/rag-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// MessageSender provides centralized message sending functionality
type MessageSender struct {
	bot    Sender
	logger *zap.Logger
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot Sender, logger *zap.Logger) *MessageSender {
	return &MessageSender{
		bot:    bot,
		logger: logger,
	}
}

// Send sends text to the chat, split into several messages when it is too long
func (s *MessageSender) Send(chatID int64, text string) error {
	for _, part := range render.SplitMessage(text, render.MaxMessageLength) {
		if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			s.logger.Error("failed to send message",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
			)
			return err
		}
	}
	return nil
}
