package api

import "fmt"

// NormalizeValue converts decoded document values into the shapes JSON
// produces. Mappings with non-string keys become map[string]any with the
// keys formatted as strings, and nested lists and mappings are copied with
// their contents converted. The argument is never modified. Other values are
// returned as-is
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		res := make(map[string]any, len(t))
		for k, val := range t {
			res[fmt.Sprint(k)] = NormalizeValue(val)
		}
		return res
	case map[string]any:
		if t == nil {
			return t
		}
		res := make(map[string]any, len(t))
		for k, val := range t {
			res[k] = NormalizeValue(val)
		}
		return res
	case []any:
		if t == nil {
			return t
		}
		res := make([]any, len(t))
		for i, val := range t {
			res[i] = NormalizeValue(val)
		}
		return res
	default:
		return v
	}
}
