// Package retrieval finds the stored chunks most similar to a query.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type RetrievalUsecase struct {
	embedder Embedder
	chunks   repository.ChunkRepository
	maxTopK  int
}

func NewUsecase(embedder Embedder, chunks repository.ChunkRepository, maxTopK int) *RetrievalUsecase {
	if maxTopK < 1 {
		maxTopK = 1
	}
	return &RetrievalUsecase{
		embedder: embedder,
		chunks:   chunks,
		maxTopK:  maxTopK,
	}
}

// ClampTopK bounds topK to [1, maxTopK].
func (uc *RetrievalUsecase) ClampTopK(topK int) int {
	if topK < 1 {
		return 1
	}
	if topK > uc.maxTopK {
		return uc.maxTopK
	}
	return topK
}

// Retrieve returns at most topK chunks of active, processed documents ordered by score.
// An embedding or store failure is ErrRetrievalUnavailable, never an empty result.
func (uc *RetrievalUsecase) Retrieve(ctx context.Context, settings *entity.Settings, query string, topK int) ([]entity.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query", entity.ErrMissingField)
	}

	topK = uc.ClampTopK(topK)

	queryVector, err := uc.embedder.EmbedVector(ctx, settings, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", entity.ErrRetrievalUnavailable, err)
	}

	hits, err := uc.chunks.Search(ctx, queryVector, topK, entity.SearchFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", entity.ErrRetrievalUnavailable, err)
	}

	results := make([]entity.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		results = append(results, entity.RetrievedChunk{
			ChunkID:       h.Chunk.ID,
			DocumentID:    h.Chunk.DocumentID,
			DocumentTitle: h.DocumentTitle,
			ChunkIndex:    h.Chunk.Index,
			Text:          h.Chunk.Content,
			TokenCount:    h.Chunk.TokenCount,
			Score:         h.Score,
		})
	}

	ctxzap.Info(ctx, "chunks retrieved", zap.Int("top_k", topK), zap.Int("found", len(results)))

	return results, nil
}
