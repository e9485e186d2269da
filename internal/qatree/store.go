package qatree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const treeFilePrefix = "qa_tree_"

// Store persists trees on disk, one JSON file per content title.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// the first save.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Save writes the tree for the given content title.
func (s *Store) Save(tree *Tree, title string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create tree dir: %w", err)
	}

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize tree %q: %w", title, err)
	}

	path := s.path(title)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tree %q: %w", title, err)
	}
	s.logger.Info("conversation tree saved",
		zap.String("title", title), zap.String("path", path))
	return nil
}

// Load reads the tree for a content title. A missing title yields a fresh
// empty tree, not an error.
func (s *Store) Load(title string) (*Tree, error) {
	data, err := os.ReadFile(s.path(title))
	if os.IsNotExist(err) {
		s.logger.Debug("no saved tree, starting fresh", zap.String("title", title))
		return New(s.logger), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tree %q: %w", title, err)
	}

	tree := New(s.logger)
	if err := json.Unmarshal(data, tree); err != nil {
		return nil, fmt.Errorf("load tree %q: %w", title, err)
	}
	s.logger.Info("conversation tree loaded",
		zap.String("title", title), zap.Int("nodes", tree.Len()))
	return tree, nil
}

// List returns the titles of every saved tree.
func (s *Store) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var titles []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, treeFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		titles = append(titles, strings.TrimSuffix(strings.TrimPrefix(name, treeFilePrefix), ".json"))
	}
	return titles
}

func (s *Store) path(title string) string {
	return filepath.Join(s.dir, treeFilePrefix+sanitizeTitle(title)+".json")
}

// sanitizeTitle makes a content title safe as a file name.
func sanitizeTitle(title string) string {
	repl := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "", "\"", "", "<", "", ">", "", "|", "-",
	)
	out := strings.TrimSpace(repl.Replace(title))
	if out == "" {
		out = "untitled"
	}
	return out
}
