package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
	pkghttp "github.com/futig/rag-backend/pkg/http"
)

const hostedEmbeddingsEndpoint = "embeddings"

// HostedProvider calls an OpenAI-compatible embeddings API.
type HostedProvider struct {
	connector *pkghttp.Connector
}

func NewHostedProvider(connector *pkghttp.Connector) *HostedProvider {
	return &HostedProvider{connector: connector}
}

func (p *HostedProvider) Name() string {
	return entity.ProviderHosted
}

func (p *HostedProvider) Embed(ctx context.Context, text string, cfg entity.ProviderConfig) ([]float32, error) {
	req := entity.HostedEmbeddingRequest{
		Model: cfg.Model,
		Input: []string{text},
	}

	var resp entity.HostedEmbeddingResponse
	err := p.connector.DoRequest(
		ctx,
		http.MethodPost,
		pkghttp.JoinURL(cfg.BaseURL, hostedEmbeddingsEndpoint),
		req,
		&resp,
		pkghttp.WithBearerToken(cfg.APIKey),
	)
	if err != nil {
		return nil, classify(p.Name(), err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%s: provider error: %s", p.Name(), resp.Error.Message)
	}

	if len(resp.Data) != 1 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: %s: expected one embedding, got %d", entity.ErrInvalidEmbedding, p.Name(), len(resp.Data))
	}

	return toFloat32(resp.Data[0].Embedding), nil
}
