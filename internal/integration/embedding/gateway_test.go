package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/futig/rag-backend/internal/pkg/vector"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDim = 4

type staticSignature struct {
	sig entity.CorpusSignature
	err error
}

func (s staticSignature) CorpusSignature(context.Context) (entity.CorpusSignature, error) {
	return s.sig, s.err
}

func testConnector() *pkghttp.Connector {
	return pkghttp.NewConnector(&pkghttp.ConnectorConfig{Logger: zap.NewNop()}, pkghttp.WithRequestTimeout(2*time.Second))
}

func testConfig() config.EmbeddingConnectorConfig {
	return config.EmbeddingConnectorConfig{
		Dimension: testDim,
		Retry: pkgRetry.RetryConfig{
			Attempts: 3,
			Delay:    time.Millisecond,
			MaxDelay: 5 * time.Millisecond,
		},
	}
}

func settingsFor(provider, baseURL string) *entity.Settings {
	return &entity.Settings{
		EmbeddingProvider: provider,
		Embedding: entity.ProviderConfig{
			BaseURL: baseURL,
			APIKey:  "key",
			Model:   "embed-model",
		},
	}
}

func hostedBody(v []float64) []byte {
	b, _ := json.Marshal(entity.HostedEmbeddingResponse{Data: []entity.HostedEmbeddingData{{Embedding: v}}})
	return b
}

func newHostedGateway(sig SignatureSource) *Gateway {
	return NewGateway(testConfig(), sig, NewHostedProvider(testConnector()), NewSelfHostedProvider(testConnector()))
}

func TestGateway_HostedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req entity.HostedEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-model", req.Model)
		assert.Equal(t, []string{"hello"}, req.Input)

		w.Write(hostedBody([]float64{0.1, 0.2, 0.3, 0.4}))
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	res := g.Embed(context.Background(), settingsFor(entity.ProviderHosted, srv.URL+"/v1"), "hello")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, res.Vector)
	assert.Empty(t, res.Error)
}

func TestGateway_SelfHostedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req entity.SelfHostedEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Prompt)

		w.Write([]byte(`{"embedding":[1,0,0,0]}`))
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	v, err := g.EmbedVector(context.Background(), settingsFor(entity.ProviderSelfHosted, srv.URL), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, v)
}

func TestGateway_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(hostedBody([]float64{1, 1, 1, 1}))
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	v, err := g.EmbedVector(context.Background(), settingsFor(entity.ProviderHosted, srv.URL), "x")

	require.NoError(t, err)
	assert.Len(t, v, testDim)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGateway_ExhaustedRetriesAreUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	res := g.Embed(context.Background(), settingsFor(entity.ProviderHosted, srv.URL), "x")

	assert.False(t, res.Success)
	assert.Nil(t, res.Vector)
	assert.Contains(t, res.Error, entity.ErrEmbeddingUnavailable.Error())
	assert.Equal(t, int32(3), calls.Load())
}

func TestGateway_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	_, err := g.EmbedVector(context.Background(), settingsFor(entity.ProviderHosted, srv.URL), "x")

	assert.ErrorIs(t, err, entity.ErrEmbeddingUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateway_WrongDimensionIsInvalidWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(hostedBody([]float64{1, 2, 3}))
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	_, err := g.EmbedVector(context.Background(), settingsFor(entity.ProviderHosted, srv.URL), "x")

	assert.ErrorIs(t, err, entity.ErrInvalidEmbedding)
	assert.NotErrorIs(t, err, entity.ErrEmbeddingUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateway_MalformedResponseIsInvalid(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data": "nope"`))
	}))
	defer srv.Close()

	g := newHostedGateway(staticSignature{})
	_, err := g.EmbedVector(context.Background(), settingsFor(entity.ProviderHosted, srv.URL), "x")

	assert.ErrorIs(t, err, entity.ErrInvalidEmbedding)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateway_CorpusSignatureChecks(t *testing.T) {
	mock := NewMockProvider(entity.ProviderHosted, testDim)
	settings := settingsFor(entity.ProviderHosted, "http://unused")

	cases := []struct {
		name    string
		sig     entity.CorpusSignature
		wantErr error
	}{
		{
			name: "empty store uses configured dimension",
			sig:  entity.CorpusSignature{},
		},
		{
			name: "matching corpus",
			sig:  entity.CorpusSignature{Provider: entity.ProviderHosted, Model: "embed-model", Dimension: testDim},
		},
		{
			name:    "different model",
			sig:     entity.CorpusSignature{Provider: entity.ProviderHosted, Model: "other", Dimension: testDim},
			wantErr: entity.ErrEmbeddingConfig,
		},
		{
			name:    "different provider",
			sig:     entity.CorpusSignature{Provider: entity.ProviderSelfHosted, Model: "embed-model", Dimension: testDim},
			wantErr: entity.ErrEmbeddingConfig,
		},
		{
			name:    "different dimension",
			sig:     entity.CorpusSignature{Provider: entity.ProviderHosted, Model: "embed-model", Dimension: 8},
			wantErr: entity.ErrEmbeddingConfig,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGateway(testConfig(), staticSignature{sig: tc.sig}, mock)
			v, err := g.EmbedVector(context.Background(), settings, "school founded")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, v, testDim)
		})
	}
}

func TestGateway_UnknownProvider(t *testing.T) {
	g := NewGateway(testConfig(), staticSignature{}, NewMockProvider(entity.ProviderHosted, testDim))

	_, err := g.EmbedVector(context.Background(), settingsFor("cohere", ""), "x")
	assert.ErrorIs(t, err, entity.ErrEmbeddingConfig)
}

func TestGateway_SignatureReadFailure(t *testing.T) {
	g := NewGateway(testConfig(), staticSignature{err: assert.AnError}, NewMockProvider(entity.ProviderHosted, testDim))

	_, err := g.EmbedVector(context.Background(), settingsFor(entity.ProviderHosted, ""), "x")
	assert.ErrorIs(t, err, entity.ErrVectorStore)
}

func TestGateway_EmbedAllKeepsOrder(t *testing.T) {
	g := NewGateway(testConfig(), staticSignature{}, NewMockProvider(entity.ProviderHosted, 64))
	g.dimension = 64

	texts := []string{"alpha beta", "gamma delta", "alpha beta"}
	vectors, err := g.EmbedAll(context.Background(), settingsFor(entity.ProviderHosted, ""), texts)

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[2])
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(entity.ProviderHosted, 256)
	ctx := context.Background()

	doc, err := m.Embed(ctx, "The school was founded in 1975.", entity.ProviderConfig{})
	require.NoError(t, err)
	query, err := m.Embed(ctx, "When was the school founded?", entity.ProviderConfig{})
	require.NoError(t, err)
	other, err := m.Embed(ctx, "Lunch menu for Friday includes pasta.", entity.ProviderConfig{})
	require.NoError(t, err)

	again, err := m.Embed(ctx, "The school was founded in 1975.", entity.ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, doc, again)

	assert.InDelta(t, 1.0, vector.Cosine(doc, doc), 1e-6)
	assert.Greater(t, vector.Cosine(doc, query), vector.Cosine(other, query))
}
