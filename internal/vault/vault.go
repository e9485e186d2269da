// Package vault reads and writes an Obsidian-style markdown vault: plain
// folders of .md notes plus an assets folder for copied source files.
package vault

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperlens/internal/knowledge"
	"paperlens/internal/qatree"
)

// Vault is rooted at one directory on disk.
type Vault struct {
	root        string
	assetsDir   string // vault-relative
	defaultTags []string
	logger      *zap.Logger
}

// New opens a vault at root. assetsDir is relative to the root and is created
// on demand when a source file is archived.
func New(root, assetsDir string, defaultTags []string, logger *zap.Logger) *Vault {
	if logger == nil {
		logger = zap.NewNop()
	}
	if assetsDir == "" {
		assetsDir = "_assets"
	}
	return &Vault{root: root, assetsDir: assetsDir, defaultTags: defaultTags, logger: logger}
}

// Root returns the vault's directory.
func (v *Vault) Root() string { return v.root }

// Scan walks the vault and returns its folders and note titles, for the
// classifier's benefit. Dot-directories and the assets folder are skipped.
func (v *Vault) Scan() (folders, notes []string, err error) {
	err = filepath.WalkDir(v.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(v.root, p)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || rel == v.assetsDir {
				return filepath.SkipDir
			}
			folders = append(folders, filepath.ToSlash(rel))
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			notes = append(notes, strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan vault: %w", err)
	}
	return folders, notes, nil
}

// Note bundles everything that goes into one written note.
type Note struct {
	Title      string
	Chain      []qatree.Exchange
	SourceFile string // local file to archive into assets, optional
	SourceURL  string // optional
}

// WriteNote renders the session as markdown at the placement's target path,
// archiving the source file into the assets folder when one is given. It
// returns the note's absolute path.
func (v *Vault) WriteNote(placement knowledge.Placement, note Note) (string, error) {
	target := filepath.Join(v.root, filepath.FromSlash(placement.TargetPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create note folder: %w", err)
	}

	var archived string
	if note.SourceFile != "" {
		name, err := v.archive(note.SourceFile)
		if err != nil {
			v.logger.Warn("source file not archived", zap.Error(err))
		} else {
			archived = name
		}
	}

	content := render(placement, note, archived, v.defaultTags)
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}

	v.logger.Info("note written",
		zap.String("path", placement.TargetPath),
		zap.Int("exchanges", len(note.Chain)))
	return target, nil
}

// archive copies the source file into the assets folder under a timestamped
// name and returns that name.
func (v *Vault) archive(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	dir := filepath.Join(v.root, filepath.FromSlash(v.assetsDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create assets folder: %w", err)
	}

	name := time.Now().Format("20060102-150405") + "-" + filepath.Base(src)
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create asset: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("copy asset: %w", err)
	}
	return name, nil
}

func render(placement knowledge.Placement, note Note, archived string, defaultTags []string) string {
	var b strings.Builder

	b.WriteString("---\n")
	b.WriteString("tags:\n")
	for _, t := range mergeTags(defaultTags, placement.Tags) {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	if note.SourceURL != "" {
		fmt.Fprintf(&b, "source: %s\n", note.SourceURL)
	}
	fmt.Fprintf(&b, "created: %s\n", time.Now().Format("2006-01-02"))
	b.WriteString("---\n\n")

	title := note.Title
	if title == "" && len(note.Chain) > 0 {
		title = note.Chain[0].Question
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	for i, ex := range note.Chain {
		if i > 0 {
			fmt.Fprintf(&b, "## Follow-up: %s\n\n", ex.Question)
		} else {
			fmt.Fprintf(&b, "**Q:** %s\n\n", ex.Question)
		}
		b.WriteString(ex.Answer)
		b.WriteString("\n\n")
	}

	if archived != "" {
		fmt.Fprintf(&b, "## Source\n\n![[%s]]\n\n", archived)
	}

	if len(placement.SuggestedLinks) > 0 {
		b.WriteString("## Related\n\n")
		for _, l := range placement.SuggestedLinks {
			fmt.Fprintf(&b, "- [[%s]]\n", l)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func mergeTags(defaults, extra []string) []string {
	seen := make(map[string]bool, len(defaults)+len(extra))
	var out []string
	for _, t := range append(append([]string{}, defaults...), extra...) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
