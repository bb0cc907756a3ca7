package restpf

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

type dupFrame struct {
	object  bool
	keys    map[string]struct{}
	at      PathRef
	key     string
	wantKey bool
	index   int
}

// DetectDuplicateKeys scans a JSON document and reports every object key that
// occurs twice in the same object as a duplicate_key Issue. Decoders keep the
// last occurrence silently, so callers run this before decoding. Syntax
// errors are returned as errors.
func DetectDuplicateKeys(data []byte) (Issues, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		iss   Issues
		stack []*dupFrame
	)
	childRef := func() PathRef {
		if len(stack) == 0 {
			return RootRef()
		}
		top := stack[len(stack)-1]
		if top.object {
			return top.at.Field(top.key)
		}
		return top.at.Index(top.index)
	}
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		if top.object {
			top.wantKey = true
		} else {
			top.index++
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if len(stack) > 0 {
				return iss, fmt.Errorf("detect duplicate keys: %w", io.ErrUnexpectedEOF)
			}
			return iss, nil
		}
		if err != nil {
			return iss, fmt.Errorf("detect duplicate keys: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{':
				stack = append(stack, &dupFrame{object: true, keys: map[string]struct{}{}, at: childRef(), wantKey: true})
			case '[':
				stack = append(stack, &dupFrame{at: childRef()})
			default:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				valueDone()
			}
			continue
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.object && top.wantKey {
				k, _ := tok.(string)
				if _, dup := top.keys[k]; dup {
					iss = append(iss, top.at.Field(k).Issue(CodeDuplicateKey, "key", k))
				}
				top.keys[k] = struct{}{}
				top.key = k
				top.wantKey = false
				continue
			}
		}
		valueDone()
	}
}
