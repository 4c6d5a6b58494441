package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/rag-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr    string           `env:"SERVER_ADDR,notEmpty"`
	HTTPServerCfg HTTPServerConfig `envPrefix:"HTTP_"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	MigrationsPath      string        `env:"MIGRATIONS_PATH" envDefault:"internal/repository/migrations"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Postgres often starts after the service in compose setups.
	DBConnectRetry pkgRetry.RetryConfig `envPrefix:"DB_CONNECT_RETRY_"`

	// External service configurations
	EmbeddingConnectorCfg EmbeddingConnectorConfig `envPrefix:"EMBEDDING_"`
	ChatConnectorCfg      ChatConnectorConfig      `envPrefix:"CHAT_"`

	// Pipeline configuration
	RAGCfg RAGConfig `envPrefix:"RAG_"`

	// Default values for runtime settings not yet stored in the settings table
	SettingsDefaults SettingsDefaults `envPrefix:"DEFAULT_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS,notEmpty"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// HTTPServerConfig bounds the inbound API. Document ingestion runs inside the request,
// so the write and request timeouts are longer than usual.
type HTTPServerConfig struct {
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"290s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

type EmbeddingConnectorConfig struct {
	HTTPClientConfig
	// Dimension is the deployment-wide vector length D. Changing it requires a full re-embed.
	Dimension int                  `env:"DIMENSION,notEmpty"`
	Retry     pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type ChatConnectorConfig struct {
	HTTPClientConfig
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"30s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
}

// RAGConfig holds deployment constants of the ingestion and retrieval pipeline
type RAGConfig struct {
	ChunkMaxTokens     int    `env:"CHUNK_MAX_TOKENS" envDefault:"300"`
	ChunkOverlapTokens int    `env:"CHUNK_OVERLAP_TOKENS" envDefault:"50"`
	ContextMaxTokens   int    `env:"CONTEXT_MAX_TOKENS" envDefault:"1500"`
	MaxTopK            int    `env:"MAX_TOP_K" envDefault:"20"`
	HistoryWindow      int    `env:"HISTORY_WINDOW" envDefault:"6"`
	VectorSearchMode   string `env:"VECTOR_SEARCH_MODE" envDefault:"auto"` // auto, hnsw, exact
}

// SettingsDefaults are used for any runtime setting missing from the settings table
type SettingsDefaults struct {
	EmbeddingProvider string  `env:"EMBEDDING_PROVIDER" envDefault:"hosted"`
	EmbeddingModel    string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingBaseURL  string  `env:"EMBEDDING_BASE_URL" envDefault:"https://api.openai.com/v1"`
	EmbeddingAPIKey   string  `env:"EMBEDDING_API_KEY"`
	ChatProvider      string  `env:"CHAT_PROVIDER" envDefault:"hosted"`
	ChatModel         string  `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	ChatBaseURL       string  `env:"CHAT_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ChatAPIKey        string  `env:"CHAT_API_KEY"`
	ChatMaxTokens     int     `env:"CHAT_MAX_TOKENS" envDefault:"1024"`
	ChatTemperature   float64 `env:"CHAT_TEMPERATURE" envDefault:"0.3"`
	ChatSystemPrompt  string  `env:"CHAT_SYSTEM_PROMPT"`
	RAGEnabled        bool    `env:"RAG_ENABLED" envDefault:"true"`
	RAGTopK           int     `env:"RAG_TOP_K" envDefault:"5"`
	FallbackEnabled   bool    `env:"CHAT_FALLBACK_ENABLED" envDefault:"true"`
	FallbackProvider  string  `env:"CHAT_FALLBACK_PROVIDER" envDefault:"self_hosted"`
	FallbackBaseURL   string  `env:"CHAT_FALLBACK_BASE_URL" envDefault:"http://localhost:11434"`
	FallbackModel     string  `env:"CHAT_FALLBACK_MODEL" envDefault:"llama3.1"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64  `env:"MAX_FILE_SIZE" envDefault:"10485760"`   // 10 MiB
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
	StorageDir    string `env:"STORAGE_DIR" envDefault:"storage/documents"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	// Validate pipeline configuration
	if cfg.EmbeddingConnectorCfg.Dimension < 1 || cfg.EmbeddingConnectorCfg.Dimension > 16000 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_DIMENSION must be between 1 and 16000, got %d", cfg.EmbeddingConnectorCfg.Dimension))
	}

	if cfg.RAGCfg.ChunkMaxTokens < 16 {
		errors = append(errors, fmt.Sprintf("RAG_CHUNK_MAX_TOKENS must be at least 16, got %d", cfg.RAGCfg.ChunkMaxTokens))
	}

	if cfg.RAGCfg.ChunkOverlapTokens < 0 || cfg.RAGCfg.ChunkOverlapTokens >= cfg.RAGCfg.ChunkMaxTokens {
		errors = append(errors, fmt.Sprintf("RAG_CHUNK_OVERLAP_TOKENS must be between 0 and RAG_CHUNK_MAX_TOKENS(%d), got %d", cfg.RAGCfg.ChunkMaxTokens, cfg.RAGCfg.ChunkOverlapTokens))
	}

	if cfg.RAGCfg.MaxTopK < 1 || cfg.RAGCfg.MaxTopK > 100 {
		errors = append(errors, fmt.Sprintf("RAG_MAX_TOP_K must be between 1 and 100, got %d", cfg.RAGCfg.MaxTopK))
	}

	switch cfg.RAGCfg.VectorSearchMode {
	case "auto", "hnsw", "exact":
	default:
		errors = append(errors, fmt.Sprintf("RAG_VECTOR_SEARCH_MODE must be one of auto, hnsw, exact, got %q", cfg.RAGCfg.VectorSearchMode))
	}

	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
