package entity

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Hosted (OpenAI-compatible) chat completion wire format
type HostedChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type HostedChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type HostedChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []HostedChatChoice `json:"choices"`
	Error   *ProviderError     `json:"error,omitempty"`
}

// Self-hosted (Ollama-compatible) chat wire format
type SelfHostedChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type SelfHostedChatRequest struct {
	Model    string                `json:"model"`
	Messages []ChatMessage         `json:"messages"`
	Stream   bool                  `json:"stream"`
	Options  SelfHostedChatOptions `json:"options"`
}

type SelfHostedChatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

type ProviderError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
}

// Hosted (OpenAI-compatible) embeddings wire format
type HostedEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type HostedEmbeddingData struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type HostedEmbeddingResponse struct {
	Data  []HostedEmbeddingData `json:"data"`
	Error *ProviderError        `json:"error,omitempty"`
}

// Self-hosted (Ollama-compatible) embeddings wire format
type SelfHostedEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type SelfHostedEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}
