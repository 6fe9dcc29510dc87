// Package attrs reads values out of slog-style key-value attribute slices.
package attrs

// ExtractString returns the string value for key in a [key1, value1, key2,
// value2, ...] slice. It returns "" when the key is absent or its value is
// not a string. The audit helper uses it to lift event fields out of log
// attributes without forcing callers to set them twice.
func ExtractString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := kv[i+1].(string); ok {
			return v
		}
	}
	return ""
}
