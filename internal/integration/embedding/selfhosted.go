package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
	pkghttp "github.com/futig/rag-backend/pkg/http"
)

const selfHostedEmbeddingsEndpoint = "api/embeddings"

// SelfHostedProvider calls an Ollama-compatible embeddings API.
type SelfHostedProvider struct {
	connector *pkghttp.Connector
}

func NewSelfHostedProvider(connector *pkghttp.Connector) *SelfHostedProvider {
	return &SelfHostedProvider{connector: connector}
}

func (p *SelfHostedProvider) Name() string {
	return entity.ProviderSelfHosted
}

func (p *SelfHostedProvider) Embed(ctx context.Context, text string, cfg entity.ProviderConfig) ([]float32, error) {
	req := entity.SelfHostedEmbeddingRequest{
		Model:  cfg.Model,
		Prompt: text,
	}

	var resp entity.SelfHostedEmbeddingResponse
	err := p.connector.DoRequest(
		ctx,
		http.MethodPost,
		pkghttp.JoinURL(cfg.BaseURL, selfHostedEmbeddingsEndpoint),
		req,
		&resp,
		pkghttp.WithBearerToken(cfg.APIKey),
	)
	if err != nil {
		return nil, classify(p.Name(), err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("%s: provider error: %s", p.Name(), resp.Error)
	}

	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: %s: empty embedding", entity.ErrInvalidEmbedding, p.Name())
	}

	return toFloat32(resp.Embedding), nil
}
