package treestate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guxiaodai/restpf/treestate"
)

func TestMerge_DeepOverride(t *testing.T) {
	tree := treestate.New()
	tree.Touch().Set(map[string]any{
		"a": map[string]any{"b": "X", "c": 2},
		"d": "Y",
	})
	tree.Touch("a", "b").Set(1)

	got, ok := tree.Merge()
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": 2},
		"d": "Y",
	}, got)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	inner := map[string]any{"b": "X"}
	top := map[string]any{"a": inner}
	tree := treestate.New()
	tree.Touch().Set(top)
	tree.Touch("a", "b").Set(1)
	_, _ = tree.Merge()
	assert.Equal(t, "X", inner["b"])
}

func TestMerge_SparseChildren(t *testing.T) {
	tree := treestate.New()
	tree.Touch("foo").Set(420)
	tree.Touch("a", "b", "c").Set("deep")
	tree.Touch("empty", "branch")

	got, ok := tree.Merge()
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"foo": 420,
		"a":   map[string]any{"b": map[string]any{"c": "deep"}},
	}, got)
}

func TestMerge_ScalarWinsOverChildren(t *testing.T) {
	tree := treestate.New()
	tree.Touch("a").Set("scalar")
	tree.Touch("a", "b").Set(1)

	got, ok := tree.Merge()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": "scalar"}, got)
}

func TestMerge_SequenceElementOverride(t *testing.T) {
	pair := []any{1, "one"}
	tree := treestate.New()
	tree.Touch("pair").Set(pair)
	tree.Touch("pair", "element_1").Set("uno")
	tree.Touch("pair", "element_5").Set("ignored")
	tree.Touch("pair", "other").Set("ignored")

	got, ok := tree.Merge()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"pair": []any{1, "uno"}}, got)
	assert.Equal(t, "one", pair[1])
}

func TestMerge_Empty(t *testing.T) {
	tree := treestate.New()
	tree.Touch("x", "y")
	got, ok := tree.Merge()
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestTouch_ReturnsSameNode(t *testing.T) {
	tree := treestate.New()
	tree.Touch("a", "b").Set(1)
	v, ok := tree.Touch("a", "b").Value()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = tree.Touch("a").Value()
	assert.False(t, ok)
}

func TestMerge_NilValueIsKept(t *testing.T) {
	tree := treestate.New()
	tree.Touch("a").Set(nil)
	got, ok := tree.Merge()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": nil}, got)
}
