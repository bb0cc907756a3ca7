package callback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
)

func selectedNames(sel []callback.Selected) []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.Entry.Name()
	}
	return out
}

func registerAll(t *testing.T, reg *callback.Registry, m restpf.Method) {
	t.Helper()
	paths := [][]string{{"a", "b", "bar"}, {"baz"}, {"a", "b"}, {"foo"}, {}, {"pair", "element_1"}, {"tags", "element"}}
	for _, p := range paths {
		require.NoError(t, reg.At(p...).On(m, noop))
	}
}

func TestSelect_BreadthFirstOverPresentStates(t *testing.T) {
	root := testSchema(t)
	reg := callback.NewRegistry("attributes", root)
	registerAll(t, reg, restpf.PATCH)

	st, err := restpf.BuildInput(root, map[string]any{
		"foo":  1,
		"a":    map[string]any{"b": map[string]any{"bar": "x"}},
		"pair": []any{1, "two"},
		"tags": []any{"t"},
	})
	require.NoError(t, err)

	sel := callback.Select(reg, restpf.PATCH, st)
	assert.Equal(t, []string{"<root>", "foo", "a.b", "pair.element_1", "a.b.bar"}, selectedNames(sel))
	for _, s := range sel {
		require.NotNil(t, s.State)
		assert.Same(t, s.Entry.Node, s.State.Node())
	}
	leaf := sel[3].State.(*restpf.LeafState)
	assert.Equal(t, "two", leaf.Value())
}

func TestSelect_NilRootSelectsEverything(t *testing.T) {
	reg := callback.NewRegistry("attributes", testSchema(t))
	registerAll(t, reg, restpf.GET)

	sel := callback.Select(reg, restpf.GET, nil)
	assert.Equal(t, []string{"<root>", "foo", "baz", "a.b", "pair.element_1", "tags.element", "a.b.bar"}, selectedNames(sel))
	for _, s := range sel {
		assert.Nil(t, s.State)
	}
}

func TestSelect_OtherMethodsIgnored(t *testing.T) {
	reg := callback.NewRegistry("attributes", testSchema(t))
	registerAll(t, reg, restpf.GET)
	assert.Empty(t, callback.Select(reg, restpf.POST, nil))
}

func TestSelect_UnknownFieldDoesNotPair(t *testing.T) {
	root := testSchema(t)
	reg := callback.NewRegistry("attributes", root)
	require.NoError(t, reg.Field("foo").PATCH(noop))
	st, err := restpf.BuildInput(root, map[string]any{"zzz": 1})
	require.NoError(t, err)
	assert.Empty(t, callback.Select(reg, restpf.PATCH, st))
}
