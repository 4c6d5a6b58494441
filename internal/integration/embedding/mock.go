package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/vector"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockProvider produces deterministic hashed bag-of-words vectors.
// Texts sharing words get similar vectors, which is enough for local runs and tests.
type MockProvider struct {
	name      string
	dimension int
}

func NewMockProvider(name string, dimension int) *MockProvider {
	return &MockProvider{name: name, dimension: dimension}
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Embed(ctx context.Context, text string, _ entity.ProviderConfig) ([]float32, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding text", zap.String("provider", m.name), zap.Int("length", len(text)))

	v := make([]float32, m.dimension)
	if m.dimension == 0 {
		return v, nil
	}

	for _, word := range mockTokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%uint32(m.dimension)] += 1
	}

	return vector.Normalize(v), nil
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "was": true, "it": true,
	"of": true, "in": true, "and": true, "to": true, "when": true, "what": true,
	"has": true, "have": true, "does": true, "do": true,
}

func mockTokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := words[:0]
	for _, w := range words {
		if !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}
