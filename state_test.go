package restpf_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	restpf "github.com/guxiaodai/restpf"
)

func kindFactories(t *testing.T) map[string]func(opts ...restpf.Option) *restpf.Node {
	t.Helper()
	must := func(n *restpf.Node, err error) *restpf.Node {
		if err != nil {
			t.Fatalf("schema: %v", err)
		}
		return n
	}
	return map[string]func(opts ...restpf.Option) *restpf.Node{
		"bool":             restpf.Bool,
		"integer":          restpf.Integer,
		"float":            restpf.Float,
		"string":           restpf.String,
		"primitive_array":  restpf.PrimitiveArray,
		"primitive_object": restpf.PrimitiveObject,
		"array": func(opts ...restpf.Option) *restpf.Node {
			return must(restpf.NewArray(restpf.String(), opts...))
		},
		"tuple": func(opts ...restpf.Option) *restpf.Node {
			return must(restpf.NewTuple([]*restpf.Node{restpf.Integer(), restpf.String()}, opts...))
		},
		"object": func(opts ...restpf.Option) *restpf.Node {
			return must(restpf.NewObject([]restpf.Field{{Name: "x", Node: restpf.Integer()}}, opts...))
		},
	}
}

// An absent value is valid exactly when the node does not require it.
func TestValidate_AbsenceRule(t *testing.T) {
	appearances := []restpf.Appearance{restpf.AppearFree, restpf.AppearRequire, restpf.AppearProhibit}
	for kind, mk := range kindFactories(t) {
		for _, m := range restpf.Methods {
			for _, a := range appearances {
				n := mk(restpf.Appear(m, a))
				for _, build := range []func(*restpf.Node, any) (restpf.State, error){restpf.BuildInput, restpf.BuildOutput} {
					st, err := build(n, nil)
					if err != nil {
						t.Fatalf("%s: build nil: %v", kind, err)
					}
					if !st.Absent() {
						t.Fatalf("%s: state of nil should be absent", kind)
					}
					err = restpf.Validate(st, m)
					if (err != nil) != (a == restpf.AppearRequire) {
						t.Fatalf("%s %s %v: validate = %v", kind, m, a, err)
					}
				}
			}
		}
	}
}

func TestBuildInput_EnvelopesAndNumbers(t *testing.T) {
	root := mustObject(t,
		restpf.Field{Name: "n", Node: restpf.Integer()},
		restpf.Field{Name: "f", Node: restpf.Float()},
		restpf.Field{Name: "s", Node: restpf.String()},
		restpf.Field{Name: "i", Node: restpf.Integer()},
	)
	st, err := restpf.BuildInput(root, map[string]any{
		"n": json.Number("42"),
		"f": json.Number("1.5"),
		"s": map[string]any{"type": "string", "value": "hi"},
		"i": float64(7),
	})
	if err != nil {
		t.Fatalf("BuildInput: %v", err)
	}
	obj := st.(*restpf.ObjectState)
	want := map[string]any{"n": int64(42), "f": 1.5, "s": "hi", "i": int64(7)}
	for name, v := range want {
		leaf, ok := obj.Field(name).(*restpf.LeafState)
		if !ok {
			t.Fatalf("%s: not a leaf state", name)
		}
		if !reflect.DeepEqual(leaf.Value(), v) {
			t.Fatalf("%s: got %#v, want %#v", name, leaf.Value(), v)
		}
	}
	if err := restpf.Validate(st, restpf.POST); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestBuildInput_MismatchedEnvelopeIsBare(t *testing.T) {
	n := restpf.PrimitiveObject()
	raw := map[string]any{"type": "other", "value": 1}
	st, err := restpf.BuildInput(n, raw)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.(*restpf.LeafState).Value(), raw) {
		t.Fatalf("envelope with foreign tag must be kept verbatim")
	}
}

func TestObject_UnknownKeys(t *testing.T) {
	root := mustObject(t, restpf.Field{Name: "foo", Node: restpf.Integer()})
	raw := map[string]any{"foo": 1, "zzz": "extra"}

	in, err := restpf.BuildInput(root, raw)
	if err != nil {
		t.Fatalf("BuildInput: %v", err)
	}
	u, ok := in.(*restpf.ObjectState).Field("zzz").(*restpf.UnknownState)
	if !ok || u.Raw() != "extra" || u.Node() != nil {
		t.Fatalf("unknown key should become a placeholder, got %#v", in.(*restpf.ObjectState).Field("zzz"))
	}
	if err := restpf.Validate(in, restpf.POST); err != nil {
		t.Fatalf("POST ignores unknown keys: %v", err)
	}
	err = restpf.Validate(in, restpf.GET)
	iss, _ := restpf.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != restpf.CodeUnknownKey || iss[0].Path != "/zzz" {
		t.Fatalf("GET prohibits unknown keys, got %v", err)
	}

	_, err = restpf.BuildOutput(root, raw)
	iss, _ = restpf.AsIssues(err)
	if !iss.HasCode(restpf.CodeUnknownKey) {
		t.Fatalf("output mode must reject unknown keys, got %v", err)
	}
}

func TestTuple_LengthMismatch(t *testing.T) {
	n, err := restpf.NewTuple([]*restpf.Node{restpf.Integer(), restpf.String()})
	if err != nil {
		t.Fatal(err)
	}
	for _, raw := range []any{[]any{1}, []any{1, "a", 3}, []any{}} {
		_, err := restpf.BuildInput(n, raw)
		var lm *restpf.LengthMismatchError
		if !errors.As(err, &lm) {
			t.Fatalf("%v: expected LengthMismatchError, got %v", raw, err)
		}
		if lm.Want != 2 || lm.Got != len(raw.([]any)) {
			t.Fatalf("unexpected mismatch %+v", lm)
		}
		iss, _ := restpf.AsIssues(err)
		if !iss.HasCode(restpf.CodeLengthMismatch) {
			t.Fatalf("missing length_mismatch code: %v", iss)
		}
	}
	if _, err := restpf.BuildInput(n, []any{1, "a"}); err != nil {
		t.Fatalf("exact arity should build: %v", err)
	}
}

func TestBuild_InvalidContainerTypes(t *testing.T) {
	arr, _ := restpf.NewArray(restpf.Integer())
	obj := mustObject(t, restpf.Field{Name: "a", Node: arr})
	_, err := restpf.BuildInput(obj, map[string]any{"a": "not a list"})
	iss, _ := restpf.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != restpf.CodeInvalidType || iss[0].Path != "/a" {
		t.Fatalf("got %v", err)
	}
	_, err = restpf.BuildInput(obj, []any{1})
	iss, _ = restpf.AsIssues(err)
	if len(iss) != 1 || iss[0].Code != restpf.CodeInvalidType || iss[0].Path != "/" {
		t.Fatalf("got %v", err)
	}
}

func TestValidate_Issues(t *testing.T) {
	nested := mustObject(t, restpf.Field{Name: "b", Node: restpf.String()})
	ids, _ := restpf.NewArray(restpf.Integer())
	root := mustObject(t,
		restpf.Field{Name: "foo", Node: restpf.Integer()},
		restpf.Field{Name: "secret", Node: restpf.String(restpf.Appear(restpf.POST, restpf.AppearProhibit))},
		restpf.Field{Name: "a", Node: nested},
		restpf.Field{Name: "ids", Node: ids},
	)
	st, err := restpf.BuildInput(root, map[string]any{
		"foo":    "not an int",
		"secret": "x",
		"a":      map[string]any{},
		"ids":    []any{1, "two"},
	})
	if err != nil {
		t.Fatalf("BuildInput: %v", err)
	}
	iss, ok := restpf.AsIssues(restpf.Validate(st, restpf.POST))
	if !ok {
		t.Fatalf("expected issues")
	}
	got := map[string]string{}
	for _, it := range iss {
		got[it.Path] = it.Code
	}
	want := map[string]string{
		"/foo":    restpf.CodeInvalidType,
		"/secret": restpf.CodeProhibited,
		"/a":      restpf.CodeRequired,
		"/ids/1":  restpf.CodeInvalidType,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("issues = %v, want %v", got, want)
	}
}

func TestValidate_NumberIsNotAString(t *testing.T) {
	st, err := restpf.BuildInput(restpf.String(), json.Number("42"))
	if err != nil {
		t.Fatalf("BuildInput: %v", err)
	}
	iss, ok := restpf.AsIssues(restpf.Validate(st, restpf.POST))
	if !ok || len(iss) != 1 || iss[0].Code != restpf.CodeInvalidType {
		t.Fatalf("want one invalid_type issue, got %v", iss)
	}
}

func TestValidate_MissingRequiredField(t *testing.T) {
	root := mustObject(t,
		restpf.Field{Name: "foo", Node: restpf.Integer()},
		restpf.Field{Name: "bar", Node: restpf.String()},
	)
	st, _ := restpf.BuildInput(root, map[string]any{"foo": 1})
	iss, _ := restpf.AsIssues(restpf.Validate(st, restpf.POST))
	if len(iss) != 1 || iss[0].Path != "/bar" || iss[0].Code != restpf.CodeRequired {
		t.Fatalf("got %v", iss)
	}
	if err := restpf.Validate(st, restpf.PATCH); err != nil {
		t.Fatalf("PATCH treats fields as free: %v", err)
	}
}

func TestSerialize_InputModeIsNotRendered(t *testing.T) {
	st, _ := restpf.BuildInput(restpf.Integer(), 1)
	if v, ok := restpf.Serialize(st); ok || v != nil {
		t.Fatalf("input states must not serialize, got %v", v)
	}
}

func TestSerialize_Abbreviation(t *testing.T) {
	ints, _ := restpf.NewArray(restpf.Integer())
	same, _ := restpf.NewTuple([]*restpf.Node{restpf.String(), restpf.String()})
	mixed, _ := restpf.NewTuple([]*restpf.Node{restpf.Integer(), restpf.String()})
	objs, _ := restpf.NewArray(mustObject(t, restpf.Field{Name: "x", Node: restpf.Integer()}))
	root := mustObject(t,
		restpf.Field{Name: "ints", Node: ints},
		restpf.Field{Name: "same", Node: same},
		restpf.Field{Name: "mixed", Node: mixed},
		restpf.Field{Name: "objs", Node: objs},
		restpf.Field{Name: "empty", Node: mustArray(t, restpf.Integer())},
	)
	st, err := restpf.BuildOutput(root, map[string]any{
		"ints":  []any{1, 2},
		"same":  []any{"a", "b"},
		"mixed": []any{1, "b"},
		"objs":  []any{map[string]any{"x": 1}},
		"empty": []any{},
	})
	if err != nil {
		t.Fatalf("BuildOutput: %v", err)
	}
	got, ok := restpf.Serialize(st)
	if !ok {
		t.Fatalf("output state should serialize")
	}
	want := map[string]any{
		"ints": map[string]any{"type": "array", "element_type": "integer", "value": []any{1, 2}},
		"same": map[string]any{"type": "tuple", "element_type": "string", "value": []any{"a", "b"}},
		"mixed": map[string]any{"type": "tuple", "value": []any{
			map[string]any{"type": "integer", "value": 1},
			map[string]any{"type": "string", "value": "b"},
		}},
		"objs": map[string]any{"type": "array", "value": []any{
			map[string]any{"x": map[string]any{"type": "integer", "value": 1}},
		}},
		"empty": map[string]any{"type": "array", "value": []any{}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("serialize:\n got %#v\nwant %#v", got, want)
	}
}

func mustArray(t *testing.T, elem *restpf.Node) *restpf.Node {
	t.Helper()
	n, err := restpf.NewArray(elem)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSerialize_RoundTrip(t *testing.T) {
	pair, _ := restpf.NewTuple([]*restpf.Node{restpf.Integer(), restpf.String()})
	nested := mustObject(t,
		restpf.Field{Name: "b", Node: restpf.String()},
		restpf.Field{Name: "c", Node: restpf.Integer()},
	)
	root := mustObject(t,
		restpf.Field{Name: "a", Node: nested},
		restpf.Field{Name: "pair", Node: pair},
		restpf.Field{Name: "tags", Node: mustArray(t, restpf.String())},
		restpf.Field{Name: "grid", Node: mustArray(t, mustArray(t, restpf.Integer()))},
		restpf.Field{Name: "meta", Node: restpf.PrimitiveObject()},
		restpf.Field{Name: "none", Node: restpf.Float()},
	)
	first, err := restpf.BuildOutput(root, map[string]any{
		"a":    map[string]any{"b": "X", "c": 2},
		"pair": []any{1, "one"},
		"tags": []any{"x", "y"},
		"grid": []any{[]any{1, 2}, []any{3}},
		"meta": map[string]any{"k": "v"},
		"none": nil,
	})
	if err != nil {
		t.Fatalf("BuildOutput: %v", err)
	}
	doc1, _ := restpf.Serialize(first)
	second, err := restpf.BuildOutput(root, doc1)
	if err != nil {
		t.Fatalf("rebuild from document: %v", err)
	}
	doc2, _ := restpf.Serialize(second)
	if !reflect.DeepEqual(doc1, doc2) {
		t.Fatalf("round trip changed the document:\n%#v\n%#v", doc1, doc2)
	}
}

func TestBuildOutput_TupleFromPositionalMapping(t *testing.T) {
	pair, _ := restpf.NewTuple([]*restpf.Node{restpf.Integer(), restpf.String()})
	st, err := restpf.BuildOutput(pair, map[string]any{"element_1": "b"})
	if err != nil {
		t.Fatalf("BuildOutput: %v", err)
	}
	tup := st.(*restpf.TupleState)
	if tup.Len() != 2 || tup.At(0).(*restpf.LeafState).Value() != nil || tup.At(1).(*restpf.LeafState).Value() != "b" {
		t.Fatalf("unexpected tuple %#v", tup.Elems())
	}
}

func TestNormalize_DecodedJSON(t *testing.T) {
	pair, _ := restpf.NewTuple([]*restpf.Node{restpf.Integer(), restpf.Float()})
	root := mustObject(t,
		restpf.Field{Name: "n", Node: restpf.Integer()},
		restpf.Field{Name: "ids", Node: mustArray(t, restpf.Integer())},
		restpf.Field{Name: "pair", Node: pair},
		restpf.Field{Name: "wrapped", Node: restpf.Integer()},
	)
	var raw any
	if err := json.Unmarshal([]byte(`{
		"n": 1, "ids": [2, 3], "pair": [4, 5], "extra": 6,
		"wrapped": {"type": "integer", "value": 7}
	}`), &raw); err != nil {
		t.Fatal(err)
	}
	got := restpf.Normalize(root, raw)
	want := map[string]any{
		"n":       int64(1),
		"ids":     []any{int64(2), int64(3)},
		"pair":    []any{int64(4), float64(5)},
		"extra":   float64(6),
		"wrapped": int64(7),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %#v, want %#v", got, want)
	}
}
