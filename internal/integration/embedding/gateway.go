// Package embedding is the provider gateway of the ingestion and query
// pipelines. It picks the configured provider, retries transient failures
// and refuses any vector that would break the corpus dimension invariant.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/futig/rag-backend/internal/pkg/vector"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// SignatureSource reports how the vectors already in the store were produced.
type SignatureSource interface {
	CorpusSignature(ctx context.Context) (entity.CorpusSignature, error)
}

type Gateway struct {
	providers  map[string]Provider
	signatures SignatureSource
	dimension  int
	retry      pkgRetry.RetryConfig
}

func NewGateway(cfg config.EmbeddingConnectorConfig, signatures SignatureSource, providers ...Provider) *Gateway {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Gateway{
		providers:  byName,
		signatures: signatures,
		dimension:  cfg.Dimension,
		retry:      cfg.Retry,
	}
}

// Dimension is the deployment-wide vector length D.
func (g *Gateway) Dimension() int {
	return g.dimension
}

// Embed is the result-object form of EmbedVector.
func (g *Gateway) Embed(ctx context.Context, settings *entity.Settings, text string) entity.EmbeddingResult {
	v, err := g.EmbedVector(ctx, settings, text)
	if err != nil {
		return entity.EmbeddingResult{Success: false, Error: err.Error()}
	}
	return entity.EmbeddingResult{Success: true, Vector: v}
}

// EmbedVector embeds a single text with the provider selected in settings.
func (g *Gateway) EmbedVector(ctx context.Context, settings *entity.Settings, text string) ([]float32, error) {
	vectors, err := g.EmbedAll(ctx, settings, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedAll embeds texts in order. The corpus signature is checked once for the batch;
// the first failing text aborts the whole batch.
func (g *Gateway) EmbedAll(ctx context.Context, settings *entity.Settings, texts []string) ([][]float32, error) {
	provider, err := g.resolve(ctx, settings)
	if err != nil {
		return nil, err
	}

	logger := ctxzap.Extract(ctx).With(
		zap.String("embedding_provider", provider.Name()),
		zap.String("embedding_model", settings.Embedding.Model),
	)

	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		v, err := g.embedWithRetry(ctx, provider, settings.Embedding, text)
		if err != nil {
			logger.Error("embedding failed", zap.Int("text_index", i), zap.Error(err))
			return nil, err
		}
		out = append(out, v)
	}

	logger.Debug("texts embedded", zap.Int("count", len(out)))
	return out, nil
}

// resolve picks the provider and enforces that the corpus stays single-provider, single-dimension.
func (g *Gateway) resolve(ctx context.Context, settings *entity.Settings) (Provider, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no settings", entity.ErrEmbeddingConfig)
	}

	provider, ok := g.providers[settings.EmbeddingProvider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown embedding provider %q", entity.ErrEmbeddingConfig, settings.EmbeddingProvider)
	}

	if settings.Embedding.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is not set", entity.ErrEmbeddingConfig)
	}

	sig, err := g.signatures.CorpusSignature(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read corpus signature: %v", entity.ErrVectorStore, err)
	}

	if sig.IsEmpty() {
		return provider, nil
	}

	if sig.Dimension != g.dimension {
		return nil, fmt.Errorf("%w: stored vectors have dimension %d, configured %d; re-embed the knowledge base",
			entity.ErrEmbeddingConfig, sig.Dimension, g.dimension)
	}

	if sig.Provider != settings.EmbeddingProvider || sig.Model != settings.Embedding.Model {
		return nil, fmt.Errorf("%w: corpus was embedded with %s/%s, settings select %s/%s; re-embed the knowledge base",
			entity.ErrEmbeddingConfig, sig.Provider, sig.Model, settings.EmbeddingProvider, settings.Embedding.Model)
	}

	return provider, nil
}

func (g *Gateway) embedWithRetry(ctx context.Context, provider Provider, cfg entity.ProviderConfig, text string) ([]float32, error) {
	var result []float32

	opts := append(g.retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && pkghttp.IsTransient(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "retrying embedding request",
				zap.String("embedding_provider", provider.Name()),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)

	err := retry.Do(func() error {
		v, err := provider.Embed(ctx, text, cfg)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidEmbedding) {
				return retry.Unrecoverable(err)
			}
			return err
		}

		if err := g.validate(v); err != nil {
			return retry.Unrecoverable(fmt.Errorf("%w: %s: %v", entity.ErrInvalidEmbedding, provider.Name(), err))
		}

		result = v
		return nil
	}, opts...)

	if err != nil {
		if errors.Is(err, entity.ErrInvalidEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", entity.ErrEmbeddingUnavailable, err)
	}

	return result, nil
}

func (g *Gateway) validate(v []float32) error {
	if len(v) != g.dimension {
		return fmt.Errorf("vector has %d dimensions, expected %d", len(v), g.dimension)
	}
	if !vector.IsFinite(v) {
		return fmt.Errorf("vector contains NaN or Inf")
	}
	return nil
}
