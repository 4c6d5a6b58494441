package retrieval

import (
	"context"
	"testing"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/embedding"
	"github.com/futig/rag-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 64

type failingEmbedder struct{}

func (failingEmbedder) EmbedVector(context.Context, *entity.Settings, string) ([]float32, error) {
	return nil, entity.ErrEmbeddingUnavailable
}

func testSettings() *entity.Settings {
	return &entity.Settings{
		EmbeddingProvider: entity.ProviderHosted,
		Embedding:         entity.ProviderConfig{Model: "mock"},
	}
}

func seed(t *testing.T, store *memory.Store, gw *embedding.Gateway, id, title string, active bool, texts ...string) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Documents().Create(ctx, entity.Document{ID: id, Title: title, IsActive: active})
	require.NoError(t, err)

	vectors, err := gw.EmbedAll(ctx, testSettings(), texts)
	require.NoError(t, err)

	chunks := make([]entity.ChunkVector, len(texts))
	for i, text := range texts {
		chunks[i] = entity.ChunkVector{Index: i, Text: text, Vector: vectors[i], Provider: entity.ProviderHosted, Model: "mock"}
	}
	require.NoError(t, store.Chunks().ReplaceChunks(ctx, id, chunks))
	require.NoError(t, store.Documents().SetStatus(ctx, id, entity.DocumentStatusProcessed))
}

func newTestRetriever(maxTopK int) (*RetrievalUsecase, *memory.Store, *embedding.Gateway) {
	store := memory.NewStore(testDim)
	gw := embedding.NewGateway(
		config.EmbeddingConnectorConfig{Dimension: testDim},
		store.Chunks(),
		embedding.NewMockProvider(entity.ProviderHosted, testDim),
	)
	return NewUsecase(gw, store.Chunks(), maxTopK), store, gw
}

func TestRetrieve_FindsRelevantChunk(t *testing.T) {
	uc, store, gw := newTestRetriever(20)

	seed(t, store, gw, "d1", "About the school", true,
		"The school was founded in 1975.",
		"It has three academic tracks: Science, Social Studies, and Language.",
	)
	seed(t, store, gw, "d2", "Cafeteria", true, "Lunch is served at noon with pasta on Fridays.")

	results, err := uc.Retrieve(context.Background(), testSettings(), "When was the school founded?", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, results[0].Text, "1975")
	assert.Equal(t, "About the school", results[0].DocumentTitle)
	assert.Equal(t, "d1", results[0].DocumentID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestRetrieve_ExcludesInactiveDocuments(t *testing.T) {
	uc, store, gw := newTestRetriever(20)

	seed(t, store, gw, "hidden", "Hidden", false, "The school was founded in 1975.")
	seed(t, store, gw, "shown", "Shown", true, "Tuition fees are published every spring.")

	results, err := uc.Retrieve(context.Background(), testSettings(), "school founded 1975", 5)
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, "hidden", r.DocumentID)
	}
}

func TestRetrieve_ClampsTopK(t *testing.T) {
	uc, store, gw := newTestRetriever(2)

	seed(t, store, gw, "d1", "Doc", true, "one fact.", "two fact.", "three fact.", "four fact.")

	results, err := uc.Retrieve(context.Background(), testSettings(), "fact", 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = uc.Retrieve(context.Background(), testSettings(), "fact", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieve_EmptyCorpusIsNotAnError(t *testing.T) {
	uc, _, _ := newTestRetriever(5)

	results, err := uc.Retrieve(context.Background(), testSettings(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_EmbeddingFailureIsUnavailable(t *testing.T) {
	store := memory.NewStore(testDim)
	uc := NewUsecase(failingEmbedder{}, store.Chunks(), 5)

	results, err := uc.Retrieve(context.Background(), testSettings(), "anything", 5)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, entity.ErrRetrievalUnavailable)
	assert.ErrorIs(t, err, entity.ErrEmbeddingUnavailable)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	uc, _, _ := newTestRetriever(5)

	_, err := uc.Retrieve(context.Background(), testSettings(), "   ", 5)
	assert.ErrorIs(t, err, entity.ErrMissingField)
}
