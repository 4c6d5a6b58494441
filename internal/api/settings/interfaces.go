package settings

import (
	"context"

	"github.com/futig/rag-backend/internal/entity"
)

type SettingsUsecase interface {
	List(ctx context.Context) ([]entity.SettingRecord, error)
	Update(ctx context.Context, values map[string]string) ([]entity.SettingRecord, error)
}
