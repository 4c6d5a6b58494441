package entity

// Provider identifiers. Exactly two backends exist per capability.
const (
	ProviderHosted     = "hosted"
	ProviderSelfHosted = "self_hosted"
)

type SettingType string

const (
	SettingTypeString SettingType = "string"
	SettingTypeBool   SettingType = "bool"
	SettingTypeInt    SettingType = "int"
	SettingTypeFloat  SettingType = "float"
	SettingTypeJSON   SettingType = "json"
)

// Setting keys
const (
	SettingEmbeddingProvider    = "embedding_provider"
	SettingEmbeddingModel       = "embedding_model"
	SettingEmbeddingBaseURL     = "embedding_base_url"
	SettingEmbeddingAPIKey      = "embedding_api_key"
	SettingChatProvider         = "chat_provider"
	SettingChatModel            = "chat_model"
	SettingChatBaseURL          = "chat_base_url"
	SettingChatAPIKey           = "chat_api_key"
	SettingChatMaxTokens        = "chat_max_tokens"
	SettingChatTemperature      = "chat_temperature"
	SettingChatSystemPrompt     = "chat_system_prompt"
	SettingRAGEnabled           = "rag_enabled"
	SettingRAGTopK              = "rag_top_k"
	SettingChatFallbackEnabled  = "chat_fallback_enabled"
	SettingChatFallbackBaseURL  = "chat_fallback_base_url"
	SettingChatFallbackModel    = "chat_fallback_model"
	SettingChatFallbackProvider = "chat_fallback_provider"
)

// SettingRecord is a raw key/value row
type SettingRecord struct {
	Key   string      `json:"key"`
	Value string      `json:"value"`
	Type  SettingType `json:"type"`
}

// ProviderConfig is the per-call configuration handed to a provider implementation
type ProviderConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Settings is the typed snapshot used by a single pipeline invocation
type Settings struct {
	EmbeddingProvider string
	Embedding         ProviderConfig

	ChatProvider string
	Chat         ProviderConfig
	SystemPrompt string

	FallbackEnabled  bool
	FallbackProvider string
	Fallback         ProviderConfig

	RAGEnabled bool
	RAGTopK    int
}
