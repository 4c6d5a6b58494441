// Package llm holds the chat-completion backends used by the chat orchestrator.
package llm

import (
	"context"
	"errors"

	"github.com/futig/rag-backend/internal/entity"
)

// ErrEmptyCompletion is returned when a backend answers 2xx without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// Backend produces one assistant reply for a prepared message list.
type Backend interface {
	Name() string
	Complete(ctx context.Context, messages []entity.ChatMessage, cfg entity.ProviderConfig) (string, error)
}
