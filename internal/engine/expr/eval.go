package expr

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/sequin/pkg/api"
)

type (
	// Expression is a parsed condition that can be evaluated repeatedly
	// against different environments
	Expression struct {
		root node
		src  string
	}

	evaluator struct {
		env map[string]any
		src string
	}
)

const gjsonSpecial = `.*?|#@\!=<>%`

// Compile parses a condition expression
func Compile(src string) (*Expression, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Expression{root: root, src: src}, nil
}

// Evaluate parses and evaluates a condition expression in one call
func Evaluate(src string, env map[string]any) (bool, error) {
	ex, err := Compile(src)
	if err != nil {
		return false, err
	}
	return ex.Evaluate(env)
}

// Evaluate runs the expression against env and reports the truthiness of the
// result. Names in the expression resolve only against env
func (x *Expression) Evaluate(env map[string]any) (bool, error) {
	e := &evaluator{env: env, src: x.src}
	res, err := x.root.eval(e)
	if err != nil {
		return false, err
	}
	return truthy(res), nil
}

// String returns the source text of the expression
func (x *Expression) String() string {
	return x.src
}

func (n *literalNode) eval(*evaluator) (any, error) {
	return n.value, nil
}

func (n *listNode) eval(e *evaluator) (any, error) {
	res := make([]any, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(e)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (n *notNode) eval(e *evaluator) (any, error) {
	v, err := n.operand.eval(e)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

func (n *logicalNode) eval(e *evaluator) (any, error) {
	left, err := n.left.eval(e)
	if err != nil {
		return nil, err
	}
	if n.and != truthy(left) {
		return truthy(left), nil
	}
	right, err := n.right.eval(e)
	if err != nil {
		return nil, err
	}
	return truthy(right), nil
}

func (n *pathNode) eval(e *evaluator) (any, error) {
	cur, ok := e.env[n.root]
	if !ok {
		return nil, newError(e.src, n.pos, "undefined name %q", n.root)
	}

	for i, seg := range n.segments {
		next, found, native := lookup(cur, seg)
		if !native {
			return n.evalJSON(e, cur, n.segments[i:])
		}
		if !found {
			return nil, n.undefined(e)
		}
		cur = next
	}
	return normalize(cur), nil
}

// evalJSON resolves the remaining segments against the JSON form of v, which
// is how struct values such as task results are inspected
func (n *pathNode) evalJSON(
	e *evaluator, v any, segments []segment,
) (any, error) {
	doc, err := json.Marshal(api.NormalizeValue(v))
	if err != nil {
		return nil, newError(e.src, n.pos,
			"cannot inspect %q: %v", n.String(), err)
	}
	res := gjson.GetBytes(doc, gjsonPath(segments))
	if !res.Exists() {
		return nil, n.undefined(e)
	}
	return res.Value(), nil
}

func (n *pathNode) undefined(e *evaluator) error {
	return newError(e.src, n.pos, "undefined path %q", n.String())
}

// lookup resolves one segment directly against maps and lists. native is
// false when v has to be inspected through its JSON form instead
func lookup(v any, seg segment) (res any, found bool, native bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		key := seg.key
		if seg.isIndex {
			key = strconv.Itoa(seg.index)
		}
		var kv reflect.Value
		switch kt := rv.Type().Key(); kt.Kind() {
		case reflect.String:
			kv = reflect.ValueOf(key).Convert(kt)
		case reflect.Interface:
			kv = reflect.ValueOf(key)
		default:
			return nil, false, false
		}
		val := rv.MapIndex(kv)
		if !val.IsValid() {
			return nil, false, true
		}
		return val.Interface(), true, true
	case reflect.Slice, reflect.Array:
		if !seg.isIndex || seg.index >= rv.Len() {
			return nil, false, true
		}
		return rv.Index(seg.index).Interface(), true, true
	default:
		return nil, false, false
	}
}

func gjsonPath(segments []segment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if seg.isIndex {
			parts[i] = strconv.Itoa(seg.index)
			continue
		}
		parts[i] = escapeGJSON(seg.key)
	}
	return strings.Join(parts, ".")
}

func (n *pathNode) String() string {
	var sb strings.Builder
	sb.WriteString(n.root)
	for _, seg := range n.segments {
		if seg.isIndex {
			fmt.Fprintf(&sb, "[%d]", seg.index)
			continue
		}
		fmt.Fprintf(&sb, "[%q]", seg.key)
	}
	return sb.String()
}

func (n *compareNode) eval(e *evaluator) (any, error) {
	left, err := n.left.eval(e)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(e)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokEq:
		return equal(left, right), nil
	case tokNe:
		return !equal(left, right), nil
	case tokIn:
		return n.contains(e, left, right)
	default:
		return n.order(e, left, right)
	}
}

func (n *compareNode) order(e *evaluator, left, right any) (any, error) {
	var cmp int
	if l, ok := toNumber(left); ok {
		r, ok := toNumber(right)
		if !ok {
			return nil, n.typeError(e, left, right)
		}
		cmp = compareFloat(l, r)
	} else if l, ok := left.(string); ok {
		r, ok := right.(string)
		if !ok {
			return nil, n.typeError(e, left, right)
		}
		cmp = strings.Compare(l, r)
	} else {
		return nil, n.typeError(e, left, right)
	}

	switch n.op {
	case tokLt:
		return cmp < 0, nil
	case tokLe:
		return cmp <= 0, nil
	case tokGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func (n *compareNode) contains(e *evaluator, needle, hay any) (any, error) {
	switch h := hay.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return nil, newError(e.src, n.pos,
				"'in <string>' requires a string, got %s", typeName(needle))
		}
		return strings.Contains(h, s), nil
	case []any:
		for _, item := range h {
			if equal(needle, item) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		s, ok := needle.(string)
		if !ok {
			return false, nil
		}
		_, found := h[s]
		return found, nil
	default:
		return nil, newError(e.src, n.pos,
			"argument of type %s is not a container", typeName(hay))
	}
}

func (n *compareNode) typeError(e *evaluator, left, right any) error {
	return newError(e.src, n.pos, "cannot order %s and %s",
		typeName(left), typeName(right))
}

func equal(left, right any) bool {
	if l, ok := toNumber(left); ok {
		r, ok := toNumber(right)
		return ok && l == r
	}
	return reflect.DeepEqual(normalize(left), normalize(right))
}

func compareFloat(l, r float64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if num, ok := toNumber(v); ok {
		return num != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// normalize converts composite host values into their JSON shape so they
// compare the same way values reached through a path do
func normalize(v any) any {
	v = api.NormalizeValue(v)
	switch v.(type) {
	case nil, bool, string, float64, []any, map[string]any:
		return v
	}
	if num, ok := toNumber(v); ok {
		return num
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	return gjson.ParseBytes(data).Value()
}

func escapeGJSON(key string) string {
	if !strings.ContainsAny(key, gjsonSpecial) {
		return key
	}
	var sb strings.Builder
	for _, r := range key {
		if strings.ContainsRune(gjsonSpecial, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	}
	if _, ok := toNumber(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
