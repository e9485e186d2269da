package qatree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_RootsAndFollowUps(t *testing.T) {
	tree := New(nil)

	root, err := tree.Add("What problem does this solve?", "Routing.", "", nil)
	require.NoError(t, err)
	assert.Empty(t, root.ParentID)

	child, err := tree.Add("How does it scale?", "Linearly.", root.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.ParentID)

	got, ok := tree.Node(root.ID)
	require.True(t, ok)
	assert.Equal(t, []string{child.ID}, got.Children())

	cur, ok := tree.Current()
	require.True(t, ok)
	assert.Equal(t, child.ID, cur.ID)
}

func TestAdd_UnknownParent(t *testing.T) {
	tree := New(nil)
	_, err := tree.Add("q", "a", "missing", nil)
	assert.Error(t, err)
}

func TestAdd_ChildOrderIsCreationOrder(t *testing.T) {
	tree := New(nil)
	root, err := tree.Add("root", "a", "", nil)
	require.NoError(t, err)

	var want []string
	for _, q := range []string{"first", "second", "third"} {
		n, err := tree.Add(q, "a", root.ID, nil)
		require.NoError(t, err)
		want = append(want, n.ID)
	}

	got, _ := tree.Node(root.ID)
	assert.Equal(t, want, got.Children())
}

func TestSummary_Fallbacks(t *testing.T) {
	tree := New(nil)

	// No summarizer: deterministic truncation with ellipsis marker.
	n, err := tree.Add("a question that is clearly longer than fifteen runes", "a", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "a question that...", n.Summary)

	// Short questions pass through untouched.
	n, err = tree.Add("why?", "a", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "why?", n.Summary)

	// Failing summarizer falls back to truncation.
	failing := func(string) (string, error) { return "", errors.New("backend down") }
	n, err = tree.Add("another question exceeding the fallback budget", "a", "", failing)
	require.NoError(t, err)
	assert.Equal(t, "another questio...", n.Summary)

	// Empty summarizer output falls back too.
	empty := func(string) (string, error) { return "  ", nil }
	n, err = tree.Add("what is the headline result of the evaluation?", "a", "", empty)
	require.NoError(t, err)
	assert.Equal(t, "what is the hea...", n.Summary)

	// A working summarizer wins, bounded in length.
	working := func(string) (string, error) {
		return "a generated summary that is far too long to keep verbatim", nil
	}
	n, err = tree.Add("whatever", "a", "", working)
	require.NoError(t, err)
	assert.Equal(t, "a generated summary ", n.Summary)
	assert.LessOrEqual(t, len([]rune(n.Summary)), summaryRunes)
}

func TestStats_TwoRootsOneChain(t *testing.T) {
	tree := New(nil)

	r1, err := tree.Add("root one", "a", "", nil)
	require.NoError(t, err)
	_, err = tree.Add("root two", "a", "", nil)
	require.NoError(t, err)

	parent := r1.ID
	for _, q := range []string{"follow 1", "follow 2", "follow 3"} {
		n, err := tree.Add(q, "a", parent, nil)
		require.NoError(t, err)
		parent = n.ID
	}

	stats := tree.Stats()
	assert.Equal(t, Stats{Total: 5, Roots: 2, MaxDepth: 3, FollowUps: 3}, stats)
}

func TestBreadthFirst_LevelOrderAndRestartable(t *testing.T) {
	tree := New(nil)
	r1, _ := tree.Add("r1", "a", "", nil)
	r2, _ := tree.Add("r2", "a", "", nil)
	c1, _ := tree.Add("r1c1", "a", r1.ID, nil)
	c2, _ := tree.Add("r2c1", "a", r2.ID, nil)
	g1, _ := tree.Add("r1c1c1", "a", c1.ID, nil)

	var order []string
	for _, n := range tree.BreadthFirst() {
		order = append(order, n.ID)
	}
	assert.Equal(t, []string{r1.ID, r2.ID, c1.ID, c2.ID, g1.ID}, order)

	// Traversal is restartable and stable.
	again := tree.BreadthFirst()
	require.Len(t, again, 5)
	assert.Equal(t, order[0], again[0].ID)
}

func TestChain_RootToNode(t *testing.T) {
	tree := New(nil)
	root, _ := tree.Add("q1", "a1", "", nil)
	mid, _ := tree.Add("q2", "a2", root.ID, nil)
	leaf, _ := tree.Add("q3", "a3", mid.ID, nil)
	// A sibling must not appear in the chain.
	_, _ = tree.Add("q2b", "a2b", root.ID, nil)

	chain := tree.Chain(leaf.ID)
	assert.Equal(t, []Exchange{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
	}, chain)
}
