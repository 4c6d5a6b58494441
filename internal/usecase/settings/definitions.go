package settings

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
)

// SecretMask replaces secret values in listings. Submitting it back leaves the secret unchanged.
const SecretMask = "********"

type definition struct {
	typ          entity.SettingType
	secret       bool
	defaultValue func(d config.SettingsDefaults) string
	check        func(value string) error
}

var definitions = map[string]definition{
	entity.SettingEmbeddingProvider: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.EmbeddingProvider },
		check:        checkProvider,
	},
	entity.SettingEmbeddingModel: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.EmbeddingModel },
		check:        checkNotEmpty,
	},
	entity.SettingEmbeddingBaseURL: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.EmbeddingBaseURL },
	},
	entity.SettingEmbeddingAPIKey: {
		typ:          entity.SettingTypeString,
		secret:       true,
		defaultValue: func(d config.SettingsDefaults) string { return d.EmbeddingAPIKey },
	},
	entity.SettingChatProvider: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.ChatProvider },
		check:        checkProvider,
	},
	entity.SettingChatModel: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.ChatModel },
		check:        checkNotEmpty,
	},
	entity.SettingChatBaseURL: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.ChatBaseURL },
	},
	entity.SettingChatAPIKey: {
		typ:          entity.SettingTypeString,
		secret:       true,
		defaultValue: func(d config.SettingsDefaults) string { return d.ChatAPIKey },
	},
	entity.SettingChatMaxTokens: {
		typ:          entity.SettingTypeInt,
		defaultValue: func(d config.SettingsDefaults) string { return strconv.Itoa(d.ChatMaxTokens) },
		check:        checkIntRange(1, 32768),
	},
	entity.SettingChatTemperature: {
		typ:          entity.SettingTypeFloat,
		defaultValue: func(d config.SettingsDefaults) string { return strconv.FormatFloat(d.ChatTemperature, 'f', -1, 64) },
		check:        checkFloatRange(0, 2),
	},
	entity.SettingChatSystemPrompt: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.ChatSystemPrompt },
	},
	entity.SettingRAGEnabled: {
		typ:          entity.SettingTypeBool,
		defaultValue: func(d config.SettingsDefaults) string { return strconv.FormatBool(d.RAGEnabled) },
	},
	entity.SettingRAGTopK: {
		typ:          entity.SettingTypeInt,
		defaultValue: func(d config.SettingsDefaults) string { return strconv.Itoa(d.RAGTopK) },
		check:        checkIntRange(1, 100),
	},
	entity.SettingChatFallbackEnabled: {
		typ:          entity.SettingTypeBool,
		defaultValue: func(d config.SettingsDefaults) string { return strconv.FormatBool(d.FallbackEnabled) },
	},
	entity.SettingChatFallbackProvider: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.FallbackProvider },
		check:        checkProvider,
	},
	entity.SettingChatFallbackBaseURL: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.FallbackBaseURL },
	},
	entity.SettingChatFallbackModel: {
		typ:          entity.SettingTypeString,
		defaultValue: func(d config.SettingsDefaults) string { return d.FallbackModel },
	},
}

// validate checks that value parses as the declared type of key and passes its range check.
func validate(key, value string) error {
	def, ok := definitions[key]
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrUnknownSetting, key)
	}

	if err := checkType(def.typ, value); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrInvalidParameter, key, err)
	}

	if def.check != nil {
		if err := def.check(value); err != nil {
			return fmt.Errorf("%w: %s: %v", entity.ErrInvalidParameter, key, err)
		}
	}

	return nil
}

func checkType(typ entity.SettingType, value string) error {
	var err error
	switch typ {
	case entity.SettingTypeBool:
		_, err = strconv.ParseBool(value)
	case entity.SettingTypeInt:
		_, err = strconv.Atoi(value)
	case entity.SettingTypeFloat:
		_, err = strconv.ParseFloat(value, 64)
	case entity.SettingTypeJSON:
		if !json.Valid([]byte(value)) {
			err = fmt.Errorf("not valid JSON")
		}
	}
	if err != nil {
		return fmt.Errorf("expected %s value, got %q", typ, value)
	}
	return nil
}

func checkProvider(value string) error {
	if value != entity.ProviderHosted && value != entity.ProviderSelfHosted {
		return fmt.Errorf("must be %q or %q", entity.ProviderHosted, entity.ProviderSelfHosted)
	}
	return nil
}

func checkNotEmpty(value string) error {
	if value == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func checkIntRange(min, max int) func(string) error {
	return func(value string) error {
		n, _ := strconv.Atoi(value)
		if n < min || n > max {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	}
}

func checkFloatRange(min, max float64) func(string) error {
	return func(value string) error {
		f, _ := strconv.ParseFloat(value, 64)
		if f < min || f > max {
			return fmt.Errorf("must be between %g and %g", min, max)
		}
		return nil
	}
}
