// Package qatree stores the branching question/answer record for one piece of
// content. Nodes live in an arena keyed by stable IDs; child lists and parent
// back-references hold IDs, never owning pointers. The tree is append-only:
// nodes are never reparented or deleted.
package qatree

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// summaryRunes bounds an AI-produced summary.
	summaryRunes = 20
	// fallbackRunes is the question prefix used when no summarizer is
	// available or it fails.
	fallbackRunes = 15
)

func newNodeID() string { return uuid.NewString() }

// Node is one question/answer exchange. Nodes are immutable after creation
// except for gaining children.
type Node struct {
	ID        string
	Question  string
	Answer    string
	Summary   string
	CreatedAt time.Time
	ParentID  string // empty for roots
	children  []string
}

// Children returns the node's child IDs in creation order.
func (n *Node) Children() []string {
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out
}

// Exchange is the flat question/answer pair handed to collaborators that
// don't care about tree structure (classifier, note writer).
type Exchange struct {
	Question string
	Answer   string
}

// Summarizer produces a short label for a question. An error or empty result
// makes the tree fall back to deterministic truncation.
type Summarizer func(question string) (string, error)

// Stats is the aggregate shape of a tree.
type Stats struct {
	Total     int `json:"total_questions"`
	Roots     int `json:"root_questions"`
	MaxDepth  int `json:"max_depth"`
	FollowUps int `json:"total_followups"`
}

// Tree is the branching conversation record. It is exclusively owned by the
// orchestrator's single control flow, so it carries no locking.
type Tree struct {
	roots   []string
	nodes   map[string]*Node
	current string
	logger  *zap.Logger
}

// New creates an empty tree. A nil logger is replaced with a no-op one.
func New(logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{nodes: make(map[string]*Node), logger: logger}
}

// Add appends a node. With an empty parentID the node becomes a new root;
// otherwise it is appended as the last child of that parent. The new node
// becomes the current cursor.
func (t *Tree) Add(question, answer, parentID string, summarize Summarizer) (*Node, error) {
	if parentID != "" {
		if _, ok := t.nodes[parentID]; !ok {
			return nil, fmt.Errorf("unknown parent node: %s", parentID)
		}
	}

	node := &Node{
		ID:        newNodeID(),
		Question:  question,
		Answer:    answer,
		Summary:   t.summarize(question, summarize),
		CreatedAt: time.Now(),
		ParentID:  parentID,
	}
	t.nodes[node.ID] = node

	if parentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		parent := t.nodes[parentID]
		parent.children = append(parent.children, node.ID)
	}

	t.current = node.ID
	t.logger.Debug("node added",
		zap.String("id", node.ID),
		zap.String("parent", parentID),
		zap.String("summary", node.Summary))
	return node, nil
}

func (t *Tree) summarize(question string, summarize Summarizer) string {
	if summarize != nil {
		s, err := summarize(question)
		if err != nil {
			t.logger.Warn("summarizer failed, falling back to truncation", zap.Error(err))
		} else if s = strings.TrimSpace(s); s != "" {
			return truncateRunes(s, summaryRunes, "")
		}
	}
	return truncateRunes(question, fallbackRunes, "...")
}

func truncateRunes(s string, limit int, marker string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + marker
}

// Node looks a node up by ID.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Roots returns the root IDs in insertion order.
func (t *Tree) Roots() []string {
	out := make([]string, len(t.roots))
	copy(out, t.roots)
	return out
}

// Current returns the cursor node, the default follow-up target.
func (t *Tree) Current() (*Node, bool) {
	return t.Node(t.current)
}

// SetCurrent moves the cursor to an existing node.
func (t *Tree) SetCurrent(id string) error {
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("unknown node: %s", id)
	}
	t.current = id
	return nil
}

// ClearCurrent drops the cursor so the next exchange starts a new root.
func (t *Tree) ClearCurrent() {
	t.current = ""
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// BreadthFirst returns every node in level order. The slice is rebuilt per
// call, so callers can traverse repeatedly.
func (t *Tree) BreadthFirst() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	queue := append([]string(nil), t.roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := t.nodes[id]
		out = append(out, node)
		queue = append(queue, node.children...)
	}
	return out
}

// Depth returns a node's ancestor count.
func (t *Tree) Depth(id string) int {
	depth := 0
	node, ok := t.nodes[id]
	for ok && node.ParentID != "" {
		depth++
		node, ok = t.nodes[node.ParentID]
	}
	return depth
}

// Stats walks the whole tree and reports its aggregate shape.
func (t *Tree) Stats() Stats {
	maxDepth := 0
	for _, n := range t.BreadthFirst() {
		if d := t.Depth(n.ID); d > maxDepth {
			maxDepth = d
		}
	}
	return Stats{
		Total:     len(t.nodes),
		Roots:     len(t.roots),
		MaxDepth:  maxDepth,
		FollowUps: len(t.nodes) - len(t.roots),
	}
}

// Chain returns the root-to-node path as flat exchanges, oldest first.
func (t *Tree) Chain(id string) []Exchange {
	var path []*Node
	node, ok := t.nodes[id]
	for ok {
		path = append(path, node)
		if node.ParentID == "" {
			break
		}
		node, ok = t.nodes[node.ParentID]
	}

	out := make([]Exchange, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		out = append(out, Exchange{Question: path[i].Question, Answer: path[i].Answer})
	}
	return out
}
