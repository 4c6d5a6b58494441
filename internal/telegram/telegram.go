package telegram

import (
	"context"
	"fmt"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/telegram/bot"
	"github.com/futig/rag-backend/internal/telegram/handlers"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot initializes the telegram bot on top of the chat pipeline
func NewBot(cfg *config.TelegramConfig, chat handlers.ChatService, logger *zap.Logger) (Bot, error) {
	b, err := bot.New(cfg, chat, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	logger.Info("telegram bot initialized successfully")

	return b, nil
}
