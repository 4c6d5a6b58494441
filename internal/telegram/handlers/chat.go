package handlers

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ChatHandler turns Telegram messages into chat requests
type ChatHandler struct {
	api      Sender
	chat     ChatService
	sessions *Sessions
	sender   *MessageSender
	logger   *zap.Logger
}

func NewChatHandler(api Sender, chat ChatService, sessions *Sessions, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		api:      api,
		chat:     chat,
		sessions: sessions,
		sender:   NewMessageSender(api, log),
		logger:   log,
	}
}

// Handle processes one incoming message
func (h *ChatHandler) Handle(ctx context.Context, message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}

	ctx = logger.AddFields(ctx, zap.Int64("chat_id", message.Chat.ID))

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	if message.Text == "" {
		h.sender.Send(message.Chat.ID, render.MsgOnlyText)
		return
	}

	h.handleText(ctx, message)
}

func (h *ChatHandler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	command := message.Command()

	ctxzap.Info(ctx, "command received", zap.String("command", command))

	switch command {
	case "start":
		h.sender.Send(chatID, render.MsgWelcome)
	case "help":
		h.sender.Send(chatID, render.MsgHelp)
	case "reset":
		sessionID := h.sessions.Reset(chatID)
		ctxzap.Info(ctx, "telegram session reset", zap.String("session_id", sessionID))
		h.sender.Send(chatID, render.MsgReset)
	default:
		h.sender.Send(chatID, render.MsgUnknownCommand)
	}
}

func (h *ChatHandler) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	sessionID := h.sessions.SessionID(chatID)

	ctx = logger.WithAction(ctx, "telegram_chat")
	ctx = logger.AddFields(ctx, zap.String("session_id", sessionID))

	stopTyping := StartTyping(ctx, h.api, chatID, h.logger)
	resp, err := h.chat.Chat(ctx, entity.ChatRequest{
		SessionID: sessionID,
		Message:   message.Text,
	})
	stopTyping()

	if err != nil {
		ctxzap.Error(ctx, "chat request failed", zap.Error(err))
		h.sender.Send(chatID, render.ClassifyError(err))
		return
	}

	ctxzap.Debug(ctx, "chat reply ready",
		zap.Bool("is_rag_enhanced", resp.IsRAGEnhanced),
		zap.Int("sources", len(resp.Sources)),
	)

	h.sender.Send(chatID, render.RenderReply(resp))
}
