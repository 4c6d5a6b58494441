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

const selfHostedChatEndpoint = "api/chat"

// SelfHostedBackend calls an Ollama-compatible chat API without streaming.
type SelfHostedBackend struct {
	connector *pkghttp.Connector
}

func NewSelfHostedBackend(connector *pkghttp.Connector) *SelfHostedBackend {
	return &SelfHostedBackend{connector: connector}
}

func (b *SelfHostedBackend) Name() string {
	return entity.ProviderSelfHosted
}

func (b *SelfHostedBackend) Complete(ctx context.Context, messages []entity.ChatMessage, cfg entity.ProviderConfig) (string, error) {
	ctxzap.Info(ctx, "requesting chat completion", zap.String("chat_provider", b.Name()), zap.String("chat_model", cfg.Model))

	req := entity.SelfHostedChatRequest{
		Model:    cfg.Model,
		Messages: messages,
		Stream:   false,
		Options: entity.SelfHostedChatOptions{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.MaxTokens,
		},
	}

	var resp entity.SelfHostedChatResponse
	err := b.connector.DoRequest(
		ctx,
		http.MethodPost,
		pkghttp.JoinURL(cfg.BaseURL, selfHostedChatEndpoint),
		req,
		&resp,
		pkghttp.WithBearerToken(cfg.APIKey),
	)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", b.Name(), err)
	}

	if resp.Error != "" {
		return "", fmt.Errorf("%s chat completion: provider error: %s", b.Name(), resp.Error)
	}

	answer := strings.TrimSpace(resp.Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%s chat completion: %w", b.Name(), ErrEmptyCompletion)
	}

	ctxzap.Info(ctx, "chat completion received", zap.String("chat_provider", b.Name()), zap.Int("answer_length", len(answer)))

	return answer, nil
}
