package restpf

import (
	"fmt"
	"strings"
)

// Method is the HTTP verb that selects policies and callbacks.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	OPTIONS Method = "OPTIONS"
)

// Methods lists every supported method.
var Methods = []Method{GET, POST, PUT, PATCH, DELETE, OPTIONS}

// ParseMethod accepts a method name in any letter case.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown method %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of Methods.
func (m Method) Valid() bool {
	for _, x := range Methods {
		if x == m {
			return true
		}
	}
	return false
}

// Appearance controls whether a node's value must, must not, or may be present.
type Appearance int

const (
	AppearFree Appearance = iota
	AppearRequire
	AppearProhibit
)

func (a Appearance) String() string {
	switch a {
	case AppearRequire:
		return "require"
	case AppearProhibit:
		return "prohibit"
	default:
		return "free"
	}
}

// ParseAppearance maps "require", "prohibit" and "free" to an Appearance.
func ParseAppearance(s string) (Appearance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return AppearFree, nil
	case "require", "required":
		return AppearRequire, nil
	case "prohibit", "prohibited":
		return AppearProhibit, nil
	}
	return AppearFree, fmt.Errorf("unknown appearance %q", s)
}

// UnknownPolicy controls how unknown Object keys are handled during validation.
type UnknownPolicy int

const (
	UnknownIgnore   UnknownPolicy = iota // Keep unknown keys as placeholders and accept them.
	UnknownProhibit                      // Reject unknown keys with an Issue.
)

func (p UnknownPolicy) String() string {
	if p == UnknownProhibit {
		return "prohibit"
	}
	return "ignore"
}

// ParseUnknownPolicy maps "ignore" and "prohibit" to an UnknownPolicy.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return UnknownIgnore, nil
	case "prohibit", "prohibited":
		return UnknownProhibit, nil
	}
	return UnknownIgnore, fmt.Errorf("unknown policy %q", s)
}

func defaultAppearance(m Method) Appearance {
	switch m {
	case POST, PUT:
		return AppearRequire
	default:
		return AppearFree
	}
}

func defaultUnknown(m Method) UnknownPolicy {
	if m == GET {
		return UnknownProhibit
	}
	return UnknownIgnore
}

// Kind is the schema node type.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInteger
	KindFloat
	KindString
	KindPrimitiveArray
	KindPrimitiveObject
	KindArray
	KindTuple
	KindObject
)

var kindTags = map[Kind]string{
	KindBool:            "bool",
	KindInteger:         "integer",
	KindFloat:           "float",
	KindString:          "string",
	KindPrimitiveArray:  "primitive_array",
	KindPrimitiveObject: "primitive_object",
	KindArray:           "array",
	KindTuple:           "tuple",
	KindObject:          "object",
}

// Tag is the wire type tag used in {type, value} envelopes.
func (k Kind) Tag() string { return kindTags[k] }

func (k Kind) String() string {
	if t, ok := kindTags[k]; ok {
		return t
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Nested reports whether the kind owns child nodes.
func (k Kind) Nested() bool { return k == KindArray || k == KindTuple || k == KindObject }

// KindFromTag is the inverse of Kind.Tag.
func KindFromTag(tag string) (Kind, bool) {
	for k, t := range kindTags {
		if t == tag {
			return k, true
		}
	}
	return 0, false
}

// Mode distinguishes states built from client input from states built from
// callback output.
type Mode int

const (
	ModeInput Mode = iota
	ModeOutput
)

func (m Mode) String() string {
	if m == ModeOutput {
		return "output"
	}
	return "input"
}
