package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Interpolate substitutes placeholders when value is a string. Any other
// value is returned unchanged
func Interpolate(value any, vars Context) any {
	if s, ok := value.(string); ok {
		return InterpolateString(s, vars)
	}
	return value
}

// InterpolateString replaces each {{name}} placeholder in tmpl with the
// stringified Context value bound to name. Placeholders naming unbound
// variables are left as they are
func InterpolateString(tmpl string, vars Context) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return Stringify(v)
		}
		return match
	})
}

// Stringify renders a Context value for substitution into a template.
// Strings are used as-is, scalars are formatted, and anything structured is
// rendered as compact JSON
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v)
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
