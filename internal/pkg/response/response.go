package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// Headers are already sent, nothing else can be reported to the client.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error logs err and writes a generic error body. err never reaches the client.
func Error(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	fields := []zap.Field{zap.Int("status", status)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, fields...)
	} else {
		ctxzap.Warn(ctx, message, fields...)
	}

	JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// Success writes a 200 OK response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// UsecaseError maps domain errors to a status code and a message safe to show to users.
func UsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := classify(err)
	Error(ctx, w, status, message, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrDocumentNotFound), errors.Is(err, entity.ErrSessionNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, entity.ErrDocumentBusy):
		return http.StatusConflict, "document is being processed, try again later"
	case errors.Is(err, entity.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, entity.ErrInvalidFile), errors.Is(err, entity.ErrInvalidExtension):
		return http.StatusBadRequest, "invalid file"
	case errors.Is(err, entity.ErrInvalidParameter), errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidDocument), errors.Is(err, entity.ErrInvalidFormat),
		errors.Is(err, entity.ErrUnknownSetting):
		return http.StatusBadRequest, "invalid parameter"
	case errors.Is(err, entity.ErrEmbeddingConfig):
		return http.StatusConflict, "embedding configuration does not match the knowledge base, re-embed required"
	case errors.Is(err, entity.ErrChatServiceUnavailable), errors.Is(err, entity.ErrRetrievalUnavailable),
		errors.Is(err, entity.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "AI service is temporarily unavailable, please try again later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
