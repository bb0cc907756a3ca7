package restpf

import (
	"reflect"
)

// Bool returns a boolean leaf node.
func Bool(opts ...Option) *Node { return newNode(KindBool, opts) }

// Integer returns an integer leaf node.
func Integer(opts ...Option) *Node { return newNode(KindInteger, opts) }

// Float returns a floating point leaf node.
func Float(opts ...Option) *Node { return newNode(KindFloat, opts) }

// String returns a string leaf node.
func String(opts ...Option) *Node { return newNode(KindString, opts) }

// PrimitiveArray returns a leaf node holding an opaque JSON array.
func PrimitiveArray(opts ...Option) *Node { return newNode(KindPrimitiveArray, opts) }

// PrimitiveObject returns a leaf node holding an opaque JSON object.
func PrimitiveObject(opts ...Option) *Node { return newNode(KindPrimitiveObject, opts) }

// NewLeaf returns a leaf node of kind k.
func NewLeaf(k Kind, opts ...Option) (*Node, error) {
	if k.Nested() || k.Tag() == "" {
		return nil, &SchemaError{Reason: "not a leaf kind: " + k.String()}
	}
	return newNode(k, opts), nil
}

// leafMatches reports whether the runtime value v conforms to the leaf kind k.
func leafMatches(k Kind, v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch k {
	case KindBool:
		return rv.Kind() == reflect.Bool
	case KindInteger:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		}
	case KindFloat:
		return rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64
	case KindString:
		if _, isNum := v.(jsonNumber); isNum {
			return false
		}
		return rv.Kind() == reflect.String
	case KindPrimitiveArray:
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case KindPrimitiveObject:
		return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
	}
	return false
}

// jsonNumber is satisfied by encoding/json and goccy/go-json numbers.
type jsonNumber interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// normalizeNumber converts decoder number representations into the Go type of
// the declared numeric kind. Other values are returned unchanged.
func normalizeNumber(k Kind, v any) any {
	switch k {
	case KindInteger:
		switch t := v.(type) {
		case jsonNumber:
			if i, err := t.Int64(); err == nil {
				return i
			}
			if f, err := t.Float64(); err == nil && isIntegral(f) {
				return int64(f)
			}
		case float64:
			if isIntegral(t) {
				return int64(t)
			}
		case float32:
			if isIntegral(float64(t)) {
				return int64(t)
			}
		}
	case KindFloat:
		switch t := v.(type) {
		case jsonNumber:
			if f, err := t.Float64(); err == nil {
				return f
			}
		case float32:
			return float64(t)
		default:
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				return float64(rv.Int())
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				return float64(rv.Uint())
			}
		}
	}
	return v
}

func isIntegral(f float64) bool {
	const maxExact = 1 << 53
	return f == float64(int64(f)) && f <= maxExact && f >= -maxExact
}

// Normalize converts decoded JSON numbers in raw into the Go types of the
// matching leaves of n, descending into objects, arrays and tuples. Leaf and
// sequence envelopes are unwrapped. Values that do not fit the schema shape
// are returned unchanged so that validation can report them.
func Normalize(n *Node, raw any) any {
	if n == nil || raw == nil {
		return raw
	}
	v := raw
	if n.kind != KindObject {
		if inner, ok := unwrapEnvelope(raw, n.Tag()); ok {
			v = inner
		}
	}
	switch n.kind {
	case KindObject:
		m, ok := asMapping(v)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, fv := range m {
			if c, known := n.byName[k]; known {
				out[k] = Normalize(c, fv)
			} else {
				out[k] = fv
			}
		}
		return out
	case KindArray, KindTuple:
		items, ok := asSequence(v)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, it := range items {
			c := n.Elem()
			if n.kind == KindTuple {
				c = nil
				if i < len(n.children) {
					c = n.children[i]
				}
			}
			out[i] = Normalize(c, it)
		}
		return out
	}
	return normalizeNumber(n.kind, v)
}
