package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/telegram/handlers"
	"github.com/futig/rag-backend/internal/telegram/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Bot represents the Telegram bot
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.TelegramConfig
	chat        *handlers.ChatHandler
	logger      *zap.Logger
	dispatch    func(tgbotapi.Update)
	baseCtx     context.Context
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New creates a new Telegram bot that answers text messages through the chat service
func New(cfg *config.TelegramConfig, chat handlers.ChatService, logger *zap.Logger) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token is not set")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	bot := &Bot{
		api:      api,
		cfg:      cfg,
		chat:     handlers.NewChatHandler(api, chat, handlers.NewSessions(), logger),
		logger:   logger,
		baseCtx:  context.Background(),
		stopChan: make(chan struct{}),
	}

	// Rate limiting runs first so throttled updates are not logged as processed.
	bot.dispatch = middleware.Chain(bot.handleUpdate,
		middleware.NewRateLimiterMiddleware(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger, api),
		middleware.NewLoggingMiddleware(logger),
		middleware.NewRecoveryMiddleware(logger, api),
	)

	return bot, nil
}

// Start starts long polling and returns immediately
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	b.baseCtx = ctxzap.ToContext(ctx, b.logger)

	go b.processUpdates(b.baseCtx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.api.StopReceivingUpdates()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

// processUpdates processes incoming updates, each in its own goroutine
func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.dispatch(u)
			}(update)
		}
	}
}

// handleUpdate routes a message to the chat handler. Other update kinds are ignored.
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	// Detached from shutdown so an answer in progress can still be delivered.
	ctx := context.WithoutCancel(b.baseCtx)
	b.chat.Handle(ctx, update.Message)
}
