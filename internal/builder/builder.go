package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/rag-backend/internal/api"
	chatapi "github.com/futig/rag-backend/internal/api/chat"
	documentapi "github.com/futig/rag-backend/internal/api/document"
	settingsapi "github.com/futig/rag-backend/internal/api/settings"
	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/integration/common"
	"github.com/futig/rag-backend/internal/integration/embedding"
	"github.com/futig/rag-backend/internal/integration/llm"
	"github.com/futig/rag-backend/internal/pkg/chunker"
	"github.com/futig/rag-backend/internal/pkg/extractor"
	"github.com/futig/rag-backend/internal/pkg/formatter"
	"github.com/futig/rag-backend/internal/pkg/inflight"
	"github.com/futig/rag-backend/internal/pkg/validator"
	"github.com/futig/rag-backend/internal/repository"
	"github.com/futig/rag-backend/internal/telegram"
	"github.com/futig/rag-backend/internal/usecase/chat"
	"github.com/futig/rag-backend/internal/usecase/document"
	"github.com/futig/rag-backend/internal/usecase/retrieval"
	"github.com/futig/rag-backend/internal/usecase/settings"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// core holds the components shared by the HTTP server and the Telegram bot
type core struct {
	db         *pgxpool.Pool
	chunkRepo  *repository.ChunkPostgres
	settingsUC *settings.SettingsUsecase
	documentUC *document.DocumentUsecase
	chatUC     *chat.ChatUsecase
}

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	c, err := buildCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	handlers := api.Handlers{
		Document: documentapi.NewHandler(c.documentUC, cfg.FileUploadCfg),
		Chat:     chatapi.NewHandler(c.chatUC, formatter.NewFactory()),
		Settings: settingsapi.NewHandler(c.settingsUC),
	}
	logger.Info("API handlers initialized")

	router := api.SetupRouter(handlers, c.chunkRepo, cfg.HTTPServerCfg.RequestTimeout, logger)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServerCfg.ReadTimeout,
		WriteTimeout: cfg.HTTPServerCfg.WriteTimeout,
		IdleTimeout:  cfg.HTTPServerCfg.IdleTimeout,
	}

	logger.Info("Application built successfully", zap.String("environment", cfg.Environment))

	return &App{
		server:          server,
		db:              c.db,
		logger:          logger,
		shutdownTimeout: cfg.HTTPServerCfg.ShutdownTimeout,
	}, nil
}

// BuildTelegramBot creates the Telegram front-end over the same chat pipeline
func BuildTelegramBot() (telegram.Bot, *zap.Logger, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot", zap.String("environment", cfg.Environment))

	c, err := buildCore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	bot, err := telegram.NewBot(&cfg.TelegramCfg, c.chatUC, logger)
	if err != nil {
		c.db.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully", zap.String("environment", cfg.Environment))

	return bot, logger, nil
}

func buildCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*core, error) {
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	documentRepo := repository.NewDocumentPostgres(db)
	chatTurnRepo := repository.NewChatTurnPostgres(db)
	settingsRepo := repository.NewSettingsPostgres(db)
	chunkRepo, err := repository.NewChunkPostgres(ctx, db,
		cfg.EmbeddingConnectorCfg.Dimension,
		cfg.RAGCfg.VectorSearchMode,
		logger,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare vector store: %w", err)
	}
	logger.Info("Repositories initialized")

	embeddingProviders, chatBackends := setupProviders(cfg, logger)
	gateway := embedding.NewGateway(cfg.EmbeddingConnectorCfg, chunkRepo, embeddingProviders...)

	settingsUC := settings.NewUsecase(settingsRepo, cfg.SettingsDefaults)
	retrievalUC := retrieval.NewUsecase(gateway, chunkRepo, cfg.RAGCfg.MaxTopK)
	chatUC := chat.NewUsecase(settingsUC, retrievalUC, chatTurnRepo, cfg.RAGCfg, chatBackends...)

	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	documentUC := document.NewUsecase(
		documentRepo,
		chunkRepo,
		settingsUC,
		gateway,
		extractor.New(),
		chunker.New(
			chunker.WithMaxTokens(cfg.RAGCfg.ChunkMaxTokens),
			chunker.WithOverlap(cfg.RAGCfg.ChunkOverlapTokens),
		),
		fileValidator,
		inflight.NewGuard(),
		cfg.FileUploadCfg,
	)
	logger.Info("Use cases initialized")

	return &core{
		db:         db,
		chunkRepo:  chunkRepo,
		settingsUC: settingsUC,
		documentUC: documentUC,
		chatUC:     chatUC,
	}, nil
}

// setupProviders returns both embedding providers and both chat backends, real or mocked.
func setupProviders(cfg *config.Config, logger *zap.Logger) ([]embedding.Provider, []chat.ChatBackend) {
	if cfg.EnableMocks {
		logger.Info("Using mock providers for embeddings and chat")
		return []embedding.Provider{
				embedding.NewMockProvider(entity.ProviderHosted, cfg.EmbeddingConnectorCfg.Dimension),
				embedding.NewMockProvider(entity.ProviderSelfHosted, cfg.EmbeddingConnectorCfg.Dimension),
			}, []chat.ChatBackend{
				llm.NewMockBackend(entity.ProviderHosted),
				llm.NewMockBackend(entity.ProviderSelfHosted),
			}
	}

	logger.Info("Using real providers for embeddings and chat")
	embeddingConn := common.NewBaseConnector(cfg.EmbeddingConnectorCfg.HTTPClientConfig, logger)
	chatConn := common.NewBaseConnector(cfg.ChatConnectorCfg.HTTPClientConfig, logger)

	return []embedding.Provider{
			embedding.NewHostedProvider(embeddingConn),
			embedding.NewSelfHostedProvider(embeddingConn),
		}, []chat.ChatBackend{
			llm.NewHostedBackend(chatConn),
			llm.NewSelfHostedBackend(chatConn),
		}
}
