package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/rag-backend/internal/entity"
	pkghttp "github.com/futig/rag-backend/pkg/http"
)

// Provider turns one text into one vector. Configuration comes from the
// settings snapshot of the current pipeline invocation.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string, cfg entity.ProviderConfig) ([]float32, error)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// classify maps a malformed provider response to ErrInvalidEmbedding and
// leaves transport errors as they are so that the gateway can retry them.
func classify(provider string, err error) error {
	var decodeErr *pkghttp.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Errorf("%w: %s: %v", entity.ErrInvalidEmbedding, provider, err)
	}
	return fmt.Errorf("%s: %w", provider, err)
}
