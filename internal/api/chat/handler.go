package chat

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/formatter"
	"github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxChatBodySize = 64 << 10

type Handler struct {
	usecase    ChatUsecase
	formatters *formatter.Factory
}

func NewHandler(usecase ChatUsecase, formatters *formatter.Factory) *Handler {
	return &Handler{
		usecase:    usecase,
		formatters: formatters,
	}
}

// Chat handles POST /chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodySize)).Decode(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, err := h.usecase.Chat(ctx, req)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, resp)
}

// History handles GET /chat/{session_id}/history?format=json|markdown|docx|pdf
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "ChatHistory"),
	)

	format := entity.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		format = entity.ResultFormat(raw)
	}
	if !format.IsValid() {
		response.Error(ctx, w, http.StatusBadRequest, "format must be one of json, markdown, docx, pdf", nil)
		return
	}

	turns, err := h.usecase.History(ctx, sessionID)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	// Plain JSON keeps the API shape; the other formats are downloads.
	if format == entity.FormatJSON && r.URL.Query().Get("download") == "" {
		response.Success(w, &entity.ChatHistoryResponse{SessionID: sessionID, Turns: turns})
		return
	}

	fmtr, err := h.formatters.Create(format)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	body, err := fmtr.Format(&formatter.Transcript{SessionID: sessionID, Turns: turns})
	if err != nil {
		response.Error(ctx, w, http.StatusInternalServerError, "failed to render transcript", err)
		return
	}

	ctxzap.Info(ctx, "transcript exported", zap.String("format", string(format)), zap.Int("turns", len(turns)))

	w.Header().Set("Content-Type", fmtr.ContentType())
	w.Header().Set("Content-Disposition", attachment("chat-"+sessionID+fmtr.FileExtension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// attachment quotes the file name so any session id yields a valid header
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
