package chat

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type SettingsLoader interface {
	Load(ctx context.Context) (*entity.Settings, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, settings *entity.Settings, query string, topK int) ([]entity.RetrievedChunk, error)
}

type ChatBackend interface {
	Name() string
	Complete(ctx context.Context, messages []entity.ChatMessage, cfg entity.ProviderConfig) (string, error)
}
