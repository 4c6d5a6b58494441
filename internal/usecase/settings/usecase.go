// Package settings resolves the process-wide runtime settings: values stored
// in the database overlaid on deployment defaults, re-read on every call.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type SettingsUsecase struct {
	repo     repository.SettingsRepository
	defaults config.SettingsDefaults
}

func NewUsecase(repo repository.SettingsRepository, defaults config.SettingsDefaults) *SettingsUsecase {
	return &SettingsUsecase{
		repo:     repo,
		defaults: defaults,
	}
}

// Load returns a typed snapshot for one pipeline invocation.
func (uc *SettingsUsecase) Load(ctx context.Context) (*entity.Settings, error) {
	values, err := uc.effectiveValues(ctx)
	if err != nil {
		return nil, err
	}

	return &entity.Settings{
		EmbeddingProvider: values[entity.SettingEmbeddingProvider],
		Embedding: entity.ProviderConfig{
			BaseURL: values[entity.SettingEmbeddingBaseURL],
			APIKey:  values[entity.SettingEmbeddingAPIKey],
			Model:   values[entity.SettingEmbeddingModel],
		},
		ChatProvider: values[entity.SettingChatProvider],
		Chat: entity.ProviderConfig{
			BaseURL:     values[entity.SettingChatBaseURL],
			APIKey:      values[entity.SettingChatAPIKey],
			Model:       values[entity.SettingChatModel],
			MaxTokens:   atoi(values[entity.SettingChatMaxTokens]),
			Temperature: atof(values[entity.SettingChatTemperature]),
		},
		SystemPrompt:     values[entity.SettingChatSystemPrompt],
		FallbackEnabled:  atob(values[entity.SettingChatFallbackEnabled]),
		FallbackProvider: values[entity.SettingChatFallbackProvider],
		Fallback: entity.ProviderConfig{
			BaseURL:     values[entity.SettingChatFallbackBaseURL],
			Model:       values[entity.SettingChatFallbackModel],
			MaxTokens:   atoi(values[entity.SettingChatMaxTokens]),
			Temperature: atof(values[entity.SettingChatTemperature]),
		},
		RAGEnabled: atob(values[entity.SettingRAGEnabled]),
		RAGTopK:    atoi(values[entity.SettingRAGTopK]),
	}, nil
}

// List returns every known setting with its effective value. Secrets are masked.
func (uc *SettingsUsecase) List(ctx context.Context) ([]entity.SettingRecord, error) {
	values, err := uc.effectiveValues(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(definitions))
	for key := range definitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]entity.SettingRecord, 0, len(keys))
	for _, key := range keys {
		def := definitions[key]
		value := values[key]
		if def.secret && value != "" {
			value = SecretMask
		}
		records = append(records, entity.SettingRecord{Key: key, Value: value, Type: def.typ})
	}

	return records, nil
}

// Update validates every value before storing any of them.
func (uc *SettingsUsecase) Update(ctx context.Context, values map[string]string) ([]entity.SettingRecord, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no settings to update", entity.ErrMissingField)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]entity.SettingRecord, 0, len(values))
	for _, key := range keys {
		value := values[key]
		if definitions[key].secret && value == SecretMask {
			continue
		}
		if err := validate(key, value); err != nil {
			return nil, err
		}
		records = append(records, entity.SettingRecord{Key: key, Value: value, Type: definitions[key].typ})
	}

	if err := uc.repo.Upsert(ctx, records...); err != nil {
		return nil, fmt.Errorf("store settings: %w", err)
	}

	ctxzap.Info(ctx, "settings updated", zap.Strings("keys", keys))

	return uc.List(ctx)
}

// effectiveValues overlays stored rows on defaults. Unknown or invalid stored rows are ignored.
func (uc *SettingsUsecase) effectiveValues(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string, len(definitions))
	for key, def := range definitions {
		values[key] = def.defaultValue(uc.defaults)
	}

	stored, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	for _, rec := range stored {
		if err := validate(rec.Key, rec.Value); err != nil {
			ctxzap.Warn(ctx, "ignoring stored setting", zap.String("key", rec.Key), zap.Error(err))
			continue
		}
		values[rec.Key] = rec.Value
	}

	return values, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func atob(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
