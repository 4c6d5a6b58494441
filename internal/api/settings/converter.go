package settings

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/futig/rag-backend/internal/entity"
)

// toSettingValues accepts JSON strings, numbers and booleans and keeps their textual form
func toSettingValues(raw map[string]json.RawMessage) (map[string]string, error) {
	values := make(map[string]string, len(raw))
	for key, msg := range raw {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("%w: %s", entity.ErrInvalidParameter, key)
		}

		switch typed := v.(type) {
		case string:
			values[key] = typed
		case bool:
			values[key] = strconv.FormatBool(typed)
		case float64:
			// Numbers keep their literal spelling so "5" stays an int.
			values[key] = string(msg)
		default:
			return nil, fmt.Errorf("%w: %s must be a string, number or boolean", entity.ErrInvalidParameter, key)
		}
	}
	return values, nil
}
