package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// NormalizeKey uppercases and trims a model-supplied label and maps known aliases
// to canonical names. Unknown labels are returned uppercased.
func NormalizeKey(key string) string {
	k := strings.ToUpper(strings.TrimSpace(key))
	if canon, ok := constants.FieldAliases[k]; ok {
		return canon
	}
	return k
}

// NormalizeFields renames every key with NormalizeKey. Keys that collapse onto the same
// name are resolved in sorted order of the original keys, so the result is deterministic.
func NormalizeFields(in map[string]any) map[string]any {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make(map[string]any, len(in))
	for _, k := range keys {
		out[NormalizeKey(k)] = in[k]
	}
	return out
}

// CanonicalValues keeps the canonical fields of a normalized mapping and renders each
// value as the string the model wrote. Non-canonical keys are returned in dropped.
func CanonicalValues(normalized map[string]any, logger *slog.Logger) (map[string]string, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make(map[string]string, len(normalized))
	var dropped []string
	for k, v := range normalized {
		if !constants.IsCanonical(k) {
			dropped = append(dropped, k)
			continue
		}
		out[k] = stringValue(v)
	}
	slices.Sort(dropped)
	if len(dropped) > 0 {
		logger.Debug("llm.normalize.dropped_keys", "dropped", dropped)
	}
	return out, dropped
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, float64, int, int64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
