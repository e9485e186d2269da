package qatree

import (
	"encoding/json"
	"fmt"
	"time"
)

// nodeRecord is the nested wire shape of one node. Child ordering in the
// slice is the tree's child ordering; round-tripping must preserve it and
// every field exactly.
type nodeRecord struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Summary  string       `json:"summary"`
	Created  string       `json:"timestamp"`
	Children []nodeRecord `json:"children"`
}

type treeRecord struct {
	Roots []nodeRecord `json:"roots"`
	Stats Stats        `json:"stats"`
}

func (t *Tree) toRecord(id string) nodeRecord {
	node := t.nodes[id]
	rec := nodeRecord{
		Question: node.Question,
		Answer:   node.Answer,
		Summary:  node.Summary,
		Created:  node.CreatedAt.Format(time.RFC3339Nano),
		Children: make([]nodeRecord, 0, len(node.children)),
	}
	for _, child := range node.children {
		rec.Children = append(rec.Children, t.toRecord(child))
	}
	return rec
}

// MarshalJSON serializes the tree as a nested record.
func (t *Tree) MarshalJSON() ([]byte, error) {
	rec := treeRecord{Roots: make([]nodeRecord, 0, len(t.roots)), Stats: t.Stats()}
	for _, root := range t.roots {
		rec.Roots = append(rec.Roots, t.toRecord(root))
	}
	return json.Marshal(rec)
}

// UnmarshalJSON rebuilds a tree from its nested record. Node IDs are
// regenerated; content, timestamps, and child ordering are preserved.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var rec treeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode tree record: %w", err)
	}

	t.roots = nil
	t.nodes = make(map[string]*Node)
	t.current = ""

	for _, root := range rec.Roots {
		if _, err := t.fromRecord(root, ""); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) fromRecord(rec nodeRecord, parentID string) (*Node, error) {
	created, err := time.Parse(time.RFC3339Nano, rec.Created)
	if err != nil {
		return nil, fmt.Errorf("parse node timestamp %q: %w", rec.Created, err)
	}

	node := &Node{
		ID:        newNodeID(),
		Question:  rec.Question,
		Answer:    rec.Answer,
		Summary:   rec.Summary,
		CreatedAt: created,
		ParentID:  parentID,
	}
	t.nodes[node.ID] = node

	if parentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		parent := t.nodes[parentID]
		parent.children = append(parent.children, node.ID)
	}

	for _, child := range rec.Children {
		if _, err := t.fromRecord(child, node.ID); err != nil {
			return nil, err
		}
	}
	return node, nil
}
