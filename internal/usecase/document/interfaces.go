package document

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type SettingsLoader interface {
	Load(ctx context.Context) (*entity.Settings, error)
}

type Embedder interface {
	EmbedAll(ctx context.Context, settings *entity.Settings, texts []string) ([][]float32, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, filename string, content []byte) string
}

type Chunker interface {
	Chunk(text string) []entity.TextChunk
}
