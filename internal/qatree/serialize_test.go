package qatree

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func buildSampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := New(nil)

	r1, err := tree.Add("What is the main contribution?", "A new routing layer.\n\nWith **markdown**.", "", nil)
	require.NoError(t, err)
	f1, err := tree.Add("How is it evaluated?", "On three benchmarks.", r1.ID, nil)
	require.NoError(t, err)
	_, err = tree.Add("Which baselines?", "Two strong ones.", f1.ID, nil)
	require.NoError(t, err)
	_, err = tree.Add("Any ablations?", "Yes, four.", r1.ID, nil)
	require.NoError(t, err)
	_, err = tree.Add("What are the limitations?", "Latency under load.", "", nil)
	require.NoError(t, err)

	return tree
}

func TestSerialize_RoundTripIsLossless(t *testing.T) {
	tree := buildSampleTree(t)

	first, err := json.Marshal(tree)
	require.NoError(t, err)

	restored := New(nil)
	require.NoError(t, json.Unmarshal(first, restored))

	second, err := json.Marshal(restored)
	require.NoError(t, err)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("serialize(deserialize(serialize(T))) differs (-first +second):\n%s", diff)
	}
}

func TestSerialize_PreservesStructureAndOrder(t *testing.T) {
	tree := buildSampleTree(t)

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	restored := New(nil)
	require.NoError(t, json.Unmarshal(data, restored))

	require.Equal(t, tree.Stats(), restored.Stats())

	orig := tree.BreadthFirst()
	got := restored.BreadthFirst()
	require.Len(t, got, len(orig))
	for i := range orig {
		require.Equal(t, orig[i].Question, got[i].Question)
		require.Equal(t, orig[i].Answer, got[i].Answer)
		require.Equal(t, orig[i].Summary, got[i].Summary)
		require.True(t, orig[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestUnmarshal_EmptyTree(t *testing.T) {
	restored := New(nil)
	require.NoError(t, json.Unmarshal([]byte(`{"roots":[]}`), restored))
	require.Equal(t, 0, restored.Len())
}

func TestUnmarshal_BadTimestamp(t *testing.T) {
	restored := New(nil)
	err := json.Unmarshal([]byte(`{"roots":[{"question":"q","answer":"a","summary":"s","timestamp":"not-a-time","children":[]}]}`), restored)
	require.Error(t, err)
}
