package restpf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guxiaodai/restpf/i18n"
)

// PathRef builds JSON Pointer paths in a chain-safe way and creates Issues.
type PathRef interface {
	Field(name string) PathRef
	Index(i int) PathRef
	Pointer() string
	Issue(code string, kv ...any) Issue
}

// RootRef returns the PathRef of a collection root.
func RootRef() PathRef { return &pathRef{} }

// RefOf returns the PathRef for a schema path such as Node.Path.
func RefOf(path []string) PathRef {
	var p PathRef = RootRef()
	for _, name := range path {
		p = p.Field(name)
	}
	return p
}

type pathRef struct {
	parts []string
}

func (p *pathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return &pathRef{parts: append(append([]string{}, p.parts...), esc)}
}

func (p *pathRef) Index(i int) PathRef {
	return &pathRef{parts: append(append([]string{}, p.parts...), strconv.Itoa(i))}
}

func (p *pathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

// Issue builds an Issue at p. kv holds alternating parameter keys and values;
// string values are also handed to the translator.
func (p *pathRef) Issue(code string, kv ...any) Issue {
	params := map[string]any{}
	data := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		k := fmt.Sprint(kv[i])
		params[k] = kv[i+1]
		data[k] = fmt.Sprint(kv[i+1])
	}
	it := Issue{Path: p.Pointer(), Code: code, Message: i18n.T(code, data), Params: params}
	if exp, ok := data["expected"]; ok {
		it.Hint = exp
	}
	return it
}
