package settings

import (
	"encoding/json"
	"net/http"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxSettingsBodySize = 64 << 10

type Handler struct {
	usecase SettingsUsecase
}

func NewHandler(usecase SettingsUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// ListSettings handles GET /settings
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListSettings")

	records, err := h.usecase.List(ctx)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.SettingsResponse{Settings: records})
}

// UpdateSettings handles PUT /settings with a flat {"key": value} object
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UpdateSettings")

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBodySize)).Decode(&raw); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	values, err := toSettingValues(raw)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	ctxzap.Info(ctx, "updating settings", zap.Strings("keys", keys))

	records, err := h.usecase.Update(ctx, values)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.SettingsResponse{Settings: records})
}
