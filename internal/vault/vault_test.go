package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperlens/internal/knowledge"
	"paperlens/internal/qatree"
)

func seedVault(t *testing.T) *Vault {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"02_sys", "03_ml/transformers", "_assets", ".obsidian"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "02_sys", "Raft.md"), []byte("# Raft\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "02_sys", "notes.txt"), []byte("x"), 0o644))
	return New(root, "_assets", []string{"paper"}, nil)
}

func TestScan_SkipsDotDirsAndAssets(t *testing.T) {
	v := seedVault(t)

	folders, notes, err := v.Scan()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"02_sys", "03_ml", "03_ml/transformers"}, folders)
	assert.Equal(t, []string{"Raft"}, notes)
}

func TestWriteNote_RendersFrontmatterAndChain(t *testing.T) {
	v := seedVault(t)

	chain := []qatree.Exchange{
		{Question: "What is the core idea?", Answer: "Attention replaces recurrence."},
		{Question: "Why multi-head?", Answer: "Different subspaces."},
	}
	placement := knowledge.Placement{
		TargetPath:     "03_ml/transformers/Attention.md",
		Tags:           []string{"ml", "paper"},
		SuggestedLinks: []string{"Raft"},
	}

	path, err := v.WriteNote(placement, Note{
		Title:     "Attention Is All You Need",
		Chain:     chain,
		SourceURL: "https://arxiv.org/abs/1706.03762",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# Attention Is All You Need")
	assert.Contains(t, text, "  - paper\n  - ml\n")
	assert.Contains(t, text, "source: https://arxiv.org/abs/1706.03762")
	assert.Contains(t, text, "**Q:** What is the core idea?")
	assert.Contains(t, text, "## Follow-up: Why multi-head?")
	assert.Contains(t, text, "- [[Raft]]")
}

func TestWriteNote_CreatesMissingFolders(t *testing.T) {
	v := seedVault(t)

	path, err := v.WriteNote(knowledge.Placement{TargetPath: "09_new/topic/Note.md"},
		Note{Title: "T", Chain: []qatree.Exchange{{Question: "q", Answer: "a"}}})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteNote_ArchivesSourceFile(t *testing.T) {
	v := seedVault(t)

	src := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	path, err := v.WriteNote(knowledge.Placement{TargetPath: "Note.md"},
		Note{Title: "T", SourceFile: src})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "![[")
	assert.Contains(t, string(data), "paper.pdf]]")

	assets, err := os.ReadDir(filepath.Join(v.Root(), "_assets"))
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Contains(t, assets[0].Name(), "paper.pdf")
}

func TestMergeTags_Dedupes(t *testing.T) {
	got := mergeTags([]string{"paper", "ml"}, []string{"ml", "", "new"})
	assert.Equal(t, []string{"paper", "ml", "new"}, got)
}
