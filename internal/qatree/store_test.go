package qatree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingYieldsFreshTree(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	tree, err := store.Load("never saved")
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
}

func TestStore_SaveLoad(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	tree := buildSampleTree(t)

	require.NoError(t, store.Save(tree, "Attention Is All You Need"))

	loaded, err := store.Load("Attention Is All You Need")
	require.NoError(t, err)
	assert.Equal(t, tree.Stats(), loaded.Stats())
}

func TestStore_List(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Save(buildSampleTree(t), "paper one"))
	require.NoError(t, store.Save(buildSampleTree(t), "paper two"))

	titles := store.List()
	assert.ElementsMatch(t, []string{"paper one", "paper two"}, titles)
}

func TestStore_TitleSanitization(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	tree := buildSampleTree(t)

	require.NoError(t, store.Save(tree, "nets/transformers: a survey?"))

	loaded, err := store.Load("nets/transformers: a survey?")
	require.NoError(t, err)
	assert.Equal(t, tree.Len(), loaded.Len())
}
