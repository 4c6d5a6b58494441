package handlers

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatService answers a user message within a conversation
type ChatService interface {
	Chat(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error)
}

// Sender is the part of the Bot API the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}
