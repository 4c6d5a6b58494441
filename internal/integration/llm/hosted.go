package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const hostedCompletionsEndpoint = "chat/completions"

// HostedBackend calls an OpenAI-compatible chat completions API.
type HostedBackend struct {
	connector *pkghttp.Connector
}

func NewHostedBackend(connector *pkghttp.Connector) *HostedBackend {
	return &HostedBackend{connector: connector}
}

func (b *HostedBackend) Name() string {
	return entity.ProviderHosted
}

func (b *HostedBackend) Complete(ctx context.Context, messages []entity.ChatMessage, cfg entity.ProviderConfig) (string, error) {
	ctxzap.Info(ctx, "requesting chat completion", zap.String("chat_provider", b.Name()), zap.String("chat_model", cfg.Model))

	req := entity.HostedChatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	var resp entity.HostedChatResponse
	err := b.connector.DoRequest(
		ctx,
		http.MethodPost,
		pkghttp.JoinURL(cfg.BaseURL, hostedCompletionsEndpoint),
		req,
		&resp,
		pkghttp.WithBearerToken(cfg.APIKey),
	)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", b.Name(), err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("%s chat completion: provider error: %s", b.Name(), resp.Error.Message)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s chat completion: %w", b.Name(), ErrEmptyCompletion)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	ctxzap.Info(ctx, "chat completion received", zap.String("chat_provider", b.Name()), zap.Int("answer_length", len(answer)))

	return answer, nil
}
