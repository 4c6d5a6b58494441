package llm

import (
	"context"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockBackend answers from the grounding context without calling any model.
type MockBackend struct {
	name string
}

func NewMockBackend(name string) *MockBackend {
	return &MockBackend{name: name}
}

func (m *MockBackend) Name() string {
	return m.name
}

func (m *MockBackend) Complete(ctx context.Context, messages []entity.ChatMessage, _ entity.ProviderConfig) (string, error) {
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.String("chat_provider", m.name), zap.Int("messages", len(messages)))

	var question string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == entity.RoleUser {
			question = messages[i].Content
			break
		}
	}

	for _, msg := range messages {
		if msg.Role != entity.RoleSystem {
			continue
		}
		if excerpt := firstContextExcerpt(msg.Content); excerpt != "" {
			return "According to the knowledge base: " + excerpt, nil
		}
	}

	return "I do not have information about \"" + strings.TrimSpace(question) + "\" in the knowledge base.", nil
}

// firstContextExcerpt returns the first non-empty line after the first source header.
func firstContextExcerpt(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "[Source ") {
			continue
		}
		for _, next := range lines[i+1:] {
			if t := strings.TrimSpace(next); t != "" {
				return t
			}
		}
	}
	return ""
}
