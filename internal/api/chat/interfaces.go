package chat

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type ChatUsecase interface {
	Chat(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error)
	History(ctx context.Context, sessionID string) ([]*entity.ChatTurn, error)
}
