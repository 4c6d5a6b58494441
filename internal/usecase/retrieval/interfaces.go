package retrieval

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type Embedder interface {
	EmbedVector(ctx context.Context, settings *entity.Settings, text string) ([]float32, error)
}
