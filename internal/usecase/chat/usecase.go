// Package chat answers user messages, optionally grounded on the knowledge base.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var errEmptyReply = errors.New("empty reply")

type ChatUsecase struct {
	settings      SettingsLoader
	retriever     Retriever
	turnRepo      repository.ChatTurnRepository
	backends      map[string]ChatBackend
	contextBudget int
	historyWindow int
	now           func() time.Time
}

func NewUsecase(
	settings SettingsLoader,
	retriever Retriever,
	turnRepo repository.ChatTurnRepository,
	ragCfg config.RAGConfig,
	backends ...ChatBackend,
) *ChatUsecase {
	byName := make(map[string]ChatBackend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}

	return &ChatUsecase{
		settings:      settings,
		retriever:     retriever,
		turnRepo:      turnRepo,
		backends:      byName,
		contextBudget: ragCfg.ContextMaxTokens,
		historyWindow: ragCfg.HistoryWindow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Chat runs one request through RECEIVED, RETRIEVING, GROUNDED, COMPLETING and ends
// in RESPONDED or FAILED. Retrieval is skipped when RAG is disabled.
func (uc *ChatUsecase) Chat(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message", entity.ErrMissingField)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.String("session_id", sessionID)))

	state := entity.ChatStateReceived
	transition := func(next entity.ChatState) {
		ctxzap.Debug(ctx, "chat state changed", zap.String("from", string(state)), zap.String("to", string(next)))
		state = next
	}

	userTurn := entity.ChatTurn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Sender:    entity.SenderUser,
		Message:   message,
		Status:    entity.ChatTurnStatusOK,
		CreatedAt: uc.now(),
	}

	fail := func(err error) (*entity.ChatResponse, error) {
		transition(entity.ChatStateFailed)
		uc.recordFailure(ctx, userTurn)
		return nil, err
	}

	settings, err := uc.settings.Load(ctx)
	if err != nil {
		return fail(fmt.Errorf("load settings: %w", err))
	}

	history := uc.recentHistory(ctx, sessionID)

	var grounding *groundingContext
	if settings.RAGEnabled {
		transition(entity.ChatStateRetrieving)

		chunks, err := uc.retriever.Retrieve(ctx, settings, message, settings.RAGTopK)
		if err != nil {
			ctxzap.Error(ctx, "retrieval failed", zap.Error(err))
			return fail(err)
		}

		g := buildGroundingContext(chunks, uc.contextBudget)
		grounding = &g
		transition(entity.ChatStateGrounded)
		ctxzap.Info(ctx, "grounding context built",
			zap.Int("retrieved", len(chunks)),
			zap.Int("used", len(g.Chunks)),
		)
	}

	transition(entity.ChatStateCompleting)
	messages := buildMessages(settings.SystemPrompt, grounding, history, message)

	reply, provider, err := uc.complete(ctx, settings, messages)
	if err != nil {
		ctxzap.Error(ctx, "chat completion failed", zap.Error(err))
		return fail(err)
	}

	transition(entity.ChatStateResponded)

	resp := &entity.ChatResponse{
		SessionID: sessionID,
		ReplyText: reply,
		Sources:   []entity.Source{},
		Provider:  provider,
		State:     state,
	}
	if grounding != nil && len(grounding.Chunks) > 0 {
		resp.IsRAGEnhanced = true
		resp.Sources = sourcesFor(grounding.Chunks)
		resp.ChunkIDs = make([]int64, 0, len(grounding.Chunks))
		for _, c := range grounding.Chunks {
			resp.ChunkIDs = append(resp.ChunkIDs, c.ChunkID)
		}
	}

	assistantAt := uc.now()
	if !assistantAt.After(userTurn.CreatedAt) {
		assistantAt = userTurn.CreatedAt.Add(time.Microsecond)
	}
	assistantTurn := entity.ChatTurn{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		Sender:        entity.SenderAssistant,
		Message:       reply,
		Status:        entity.ChatTurnStatusOK,
		IsRAGEnhanced: resp.IsRAGEnhanced,
		ChunkIDs:      resp.ChunkIDs,
		Provider:      provider,
		CreatedAt:     assistantAt,
	}

	// The answer is already produced; a log write failure is reported but not returned.
	if err := uc.turnRepo.CreateTurns(ctx, userTurn, assistantTurn); err != nil {
		ctxzap.Error(ctx, "failed to record chat turns", zap.Error(err))
	}

	ctxzap.Info(ctx, "chat answered",
		zap.String("chat_provider", provider),
		zap.Bool("is_rag_enhanced", resp.IsRAGEnhanced),
		zap.Int64s("chunk_ids", resp.ChunkIDs),
	)

	return resp, nil
}

// History returns every turn of a session in chronological order.
func (uc *ChatUsecase) History(ctx context.Context, sessionID string) ([]*entity.ChatTurn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}

	turns, err := uc.turnRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chat turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, entity.ErrSessionNotFound
	}

	return turns, nil
}

// complete calls the primary backend and, if allowed, the fallback backend exactly once.
func (uc *ChatUsecase) complete(ctx context.Context, settings *entity.Settings, messages []entity.ChatMessage) (string, string, error) {
	reply, primaryErr := uc.callBackend(ctx, settings.ChatProvider, messages, settings.Chat)
	if primaryErr == nil {
		return reply, settings.ChatProvider, nil
	}

	ctxzap.Warn(ctx, "primary chat provider failed",
		zap.String("chat_provider", settings.ChatProvider),
		zap.Error(primaryErr),
	)

	if !settings.FallbackEnabled {
		return "", "", fmt.Errorf("%w: %w", entity.ErrChatServiceUnavailable, primaryErr)
	}
	if ctx.Err() != nil {
		return "", "", fmt.Errorf("%w: %w", entity.ErrChatServiceUnavailable, errors.Join(primaryErr, ctx.Err()))
	}

	reply, fallbackErr := uc.callBackend(ctx, settings.FallbackProvider, messages, settings.Fallback)
	if fallbackErr == nil {
		ctxzap.Info(ctx, "answered by fallback chat provider", zap.String("chat_provider", settings.FallbackProvider))
		return reply, settings.FallbackProvider, nil
	}

	ctxzap.Warn(ctx, "fallback chat provider failed",
		zap.String("chat_provider", settings.FallbackProvider),
		zap.Error(fallbackErr),
	)

	return "", "", fmt.Errorf("%w: %w", entity.ErrChatServiceUnavailable, errors.Join(primaryErr, fallbackErr))
}

func (uc *ChatUsecase) callBackend(ctx context.Context, provider string, messages []entity.ChatMessage, cfg entity.ProviderConfig) (string, error) {
	backend, ok := uc.backends[provider]
	if !ok {
		return "", fmt.Errorf("unknown chat provider %q", provider)
	}

	reply, err := backend.Complete(ctx, messages, cfg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%s: %w", provider, errEmptyReply)
	}

	return reply, nil
}

// recentHistory is best effort: the chat still works without previous turns.
func (uc *ChatUsecase) recentHistory(ctx context.Context, sessionID string) []*entity.ChatTurn {
	if uc.historyWindow <= 0 {
		return nil
	}

	turns, err := uc.turnRepo.ListRecent(ctx, sessionID, uc.historyWindow)
	if err != nil {
		ctxzap.Warn(ctx, "failed to load chat history", zap.Error(err))
		return nil
	}
	return turns
}

func (uc *ChatUsecase) recordFailure(ctx context.Context, userTurn entity.ChatTurn) {
	userTurn.Status = entity.ChatTurnStatusFailed
	if err := uc.turnRepo.CreateTurns(ctx, userTurn); err != nil {
		ctxzap.Error(ctx, "failed to record failed chat turn", zap.Error(err))
	}
}
