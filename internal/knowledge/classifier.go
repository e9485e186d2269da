// Package knowledge decides where a finished reading session belongs inside
// the note vault. It asks a text backend to pick a folder,
// tags and related notes, and falls back to a deterministic inbox placement when the
// backend is unavailable or answers with something unparseable.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"paperlens/internal/qatree"
)

// Placement is the classifier's verdict for one session.
type Placement struct {
	TargetPath     string   `json:"target_path"`
	Reasoning      string   `json:"reasoning"`
	Tags           []string `json:"tags"`
	SuggestedLinks []string `json:"suggested_links"`
	IsNewFolder    bool     `json:"is_new_folder"`
}

// Backend answers a single prompt. *llm.Caller satisfies it.
type Backend interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// Classifier maps a question chain onto a vault location.
type Classifier struct {
	backend Backend
	inbox   string
	logger  *zap.Logger
}

// NewClassifier builds a classifier. backend may be nil, in which case every
// session lands in the inbox folder.
func NewClassifier(backend Backend, inboxFolder string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{backend: backend, inbox: inboxFolder, logger: logger}
}

// Classify asks the backend where the session belongs. folders and notes
// describe the vault's current layout so the model can reuse it.
func (c *Classifier) Classify(ctx context.Context, title string, chain []qatree.Exchange, folders, notes []string) Placement {
	if c.backend == nil {
		return c.DefaultPlacement(title, chain)
	}

	raw, err := c.backend.Call(ctx, buildPrompt(title, chain, folders, notes))
	if err != nil {
		c.logger.Warn("classification call failed, using inbox", zap.Error(err))
		return c.DefaultPlacement(title, chain)
	}

	placement, err := parsePlacement(raw)
	if err != nil {
		c.logger.Warn("unparseable classification, using inbox",
			zap.Error(err), zap.String("raw", truncate(raw, 200)))
		return c.DefaultPlacement(title, chain)
	}
	if placement.TargetPath == "" {
		return c.DefaultPlacement(title, chain)
	}
	return placement
}

// DefaultPlacement files the session under the inbox, named after the title
// or, failing that, the opening question.
func (c *Classifier) DefaultPlacement(title string, chain []qatree.Exchange) Placement {
	name := strings.TrimSpace(title)
	if name == "" && len(chain) > 0 {
		name = chain[0].Question
	}
	if name == "" {
		name = "untitled"
	}
	name = sanitizeName(name)
	return Placement{
		TargetPath:  path.Join(c.inbox, name+".md"),
		Reasoning:   "default inbox placement",
		IsNewFolder: false,
	}
}

// parsePlacement extracts a Placement from model output, tolerating markdown
// code fences around the JSON.
func parsePlacement(raw string) (Placement, error) {
	body := stripFences(raw)
	var p Placement
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Placement{}, fmt.Errorf("decode placement: %w", err)
	}
	return p, nil
}

// stripFences removes a surrounding ```json ... ``` or ``` ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line, e.g. "json"
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func buildPrompt(title string, chain []qatree.Exchange, folders, notes []string) string {
	var b strings.Builder
	b.WriteString("You organize a research note vault. Decide where the note below belongs.\n\n")
	if title != "" {
		fmt.Fprintf(&b, "Content title: %s\n\n", title)
	}
	b.WriteString("Conversation:\n")
	for i, ex := range chain {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, ex.Question, i+1, truncate(ex.Answer, 500))
	}
	b.WriteString("\nExisting folders:\n")
	for _, f := range folders {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if len(notes) > 0 {
		b.WriteString("\nExisting notes (for suggested_links):\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	b.WriteString(`
Respond with JSON only:
{
  "target_path": "folder/note-name.md",
  "reasoning": "one sentence",
  "tags": ["tag1", "tag2"],
  "suggested_links": ["Existing Note"],
  "is_new_folder": false
}
Prefer existing folders. Set is_new_folder true only when none fit.`)
	return b.String()
}

func sanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	const max = 80
	if len(s) > max {
		s = s[:max]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
