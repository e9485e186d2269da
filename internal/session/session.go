// Package session orchestrates one reading session at a time: it feeds
// content to the browser surface, turns questions into detected answers,
// grows the conversation tree, and flushes notes and stats when the session
// ends. It talks to its collaborators through narrow interfaces so the whole
// flow is testable without a browser.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paperlens/internal/detect"
	"paperlens/internal/knowledge"
	"paperlens/internal/qatree"
	"paperlens/internal/queue"
	"paperlens/internal/stats"
	"paperlens/internal/vault"
)

var (
	// ErrNoSession is returned by operations that need loaded content.
	ErrNoSession = errors.New("no content loaded")
	// ErrNoResponse is returned when a question produced no text at all.
	ErrNoResponse = errors.New("no response from surface")
)

// ContentSurface is the browser-side contract. *surface.Studio satisfies it.
type ContentSurface interface {
	UploadFile(ctx context.Context, path string) error
	SubmitURL(ctx context.Context, url string) error
	Submit(ctx context.Context, question string) error
	LatestText(ctx context.Context) string
	Resubmit(ctx context.Context) error
}

// Classifier picks a vault location for a finished session.
type Classifier interface {
	Classify(ctx context.Context, title string, chain []qatree.Exchange, folders, notes []string) knowledge.Placement
}

// NoteWriter persists sessions as notes. *vault.Vault satisfies it.
type NoteWriter interface {
	Scan() (folders, notes []string, err error)
	WriteNote(placement knowledge.Placement, note vault.Note) (string, error)
}

// Deps collects the orchestrator's collaborators. Surface and Detector are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Surface    ContentSurface
	Detector   *detect.Detector
	Trees      *qatree.Store
	Queue      *queue.Queue
	Classifier Classifier
	Writer     NoteWriter
	Stats      *stats.Log
	Summarize  qatree.Summarizer
	Logger     *zap.Logger
}

type sessionState struct {
	id        string
	title     string
	kind      string // "file" or "url"
	source    string
	startedAt time.Time
	questions int
	tree      *qatree.Tree
}

// Orchestrator runs the session lifecycle.
type Orchestrator struct {
	deps    Deps
	current *sessionState
	logger  *zap.Logger
}

// New builds an orchestrator from its collaborators.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Queue == nil {
		deps.Queue = queue.New(deps.Logger)
	}
	return &Orchestrator{deps: deps, logger: deps.Logger}
}

// Active reports whether content is loaded.
func (o *Orchestrator) Active() bool { return o.current != nil }

// Title returns the loaded content's title, or "".
func (o *Orchestrator) Title() string {
	if o.current == nil {
		return ""
	}
	return o.current.title
}

// Tree returns the live conversation tree, or nil when no content is loaded.
func (o *Orchestrator) Tree() *qatree.Tree {
	if o.current == nil {
		return nil
	}
	return o.current.tree
}

// Queue exposes the pending-question queue.
func (o *Orchestrator) Queue() *queue.Queue { return o.deps.Queue }

// LoadFile ends any previous session, delivers a local file to the surface,
// and starts a fresh session for it. An existing tree saved under the same
// title is resumed.
func (o *Orchestrator) LoadFile(ctx context.Context, path, title string) error {
	o.endSession()
	if err := o.deps.Surface.UploadFile(ctx, path); err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	o.begin(title, "file", path)
	return nil
}

// LoadURL ends any previous session and hands a link to the surface. The
// surface's first response (the page reading the link) is awaited but not
// recorded in the tree.
func (o *Orchestrator) LoadURL(ctx context.Context, url, title string) error {
	o.endSession()
	if err := o.deps.Surface.SubmitURL(ctx, url); err != nil {
		return fmt.Errorf("load url: %w", err)
	}
	outcome := o.await(ctx)
	if outcome.Status == detect.StatusTimedOut {
		return fmt.Errorf("load url: %w", ErrNoResponse)
	}
	o.begin(title, "url", url)
	return nil
}

func (o *Orchestrator) begin(title, kind, source string) {
	tree := qatree.New(o.logger)
	if o.deps.Trees != nil {
		if loaded, err := o.deps.Trees.Load(title); err != nil {
			o.logger.Warn("existing tree not loaded", zap.Error(err))
		} else {
			tree = loaded
		}
	}
	o.current = &sessionState{
		id:        uuid.NewString(),
		title:     title,
		kind:      kind,
		source:    source,
		startedAt: time.Now(),
		tree:      tree,
	}
	o.logger.Info("session started",
		zap.String("title", title),
		zap.String("kind", kind),
		zap.Int("resumed_nodes", tree.Len()))
}

// Ask submits a root question and records the detected answer.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*qatree.Node, error) {
	return o.ask(ctx, question, "")
}

// FollowUp submits a question threaded under the current node. With no
// current node it behaves like Ask.
func (o *Orchestrator) FollowUp(ctx context.Context, question string) (*qatree.Node, error) {
	if o.current == nil {
		return nil, ErrNoSession
	}
	parent := ""
	if cur, ok := o.current.tree.Current(); ok {
		parent = cur.ID
	}
	return o.ask(ctx, question, parent)
}

func (o *Orchestrator) ask(ctx context.Context, question, parentID string) (*qatree.Node, error) {
	if o.current == nil {
		return nil, ErrNoSession
	}
	if err := o.deps.Surface.Submit(ctx, question); err != nil {
		return nil, fmt.Errorf("submit question: %w", err)
	}

	outcome := o.await(ctx)
	if outcome.Status == detect.StatusTimedOut {
		return nil, ErrNoResponse
	}

	node, err := o.current.tree.Add(question, outcome.Text, parentID, o.deps.Summarize)
	if err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}
	o.current.questions++
	o.saveTree()
	return node, nil
}

func (o *Orchestrator) await(ctx context.Context) detect.Outcome {
	poll := func() string { return o.deps.Surface.LatestText(ctx) }
	resubmit := func() {
		if err := o.deps.Surface.Resubmit(ctx); err != nil {
			o.logger.Warn("resubmit failed", zap.Error(err))
		}
	}
	return o.deps.Detector.Await(ctx, poll, resubmit)
}

// RunQueue asks every queued question in order and returns how many were
// answered. A failed question is logged and skipped, never re-queued.
func (o *Orchestrator) RunQueue(ctx context.Context) (int, error) {
	if o.current == nil {
		return 0, ErrNoSession
	}
	done := o.deps.Queue.Drain(func(question string) error {
		_, err := o.Ask(ctx, question)
		return err
	})
	return done, nil
}

// NewThread clears the follow-up cursor; the next question starts a fresh
// root instead of threading under the last answer.
func (o *Orchestrator) NewThread() error {
	if o.current == nil {
		return ErrNoSession
	}
	o.current.tree.ClearCurrent()
	return nil
}

// Follow moves the follow-up cursor to the given node.
func (o *Orchestrator) Follow(nodeID string) error {
	if o.current == nil {
		return ErrNoSession
	}
	return o.current.tree.SetCurrent(nodeID)
}

// SaveCurrent classifies the session's active chain and writes it to the
// vault, returning the note's path.
func (o *Orchestrator) SaveCurrent(ctx context.Context) (string, error) {
	if o.current == nil {
		return "", ErrNoSession
	}
	tree := o.current.tree
	if tree.Len() == 0 {
		return "", fmt.Errorf("nothing to save: %w", ErrNoSession)
	}
	if o.deps.Writer == nil {
		return "", errors.New("no vault configured")
	}

	cursorID := ""
	if cur, ok := tree.Current(); ok {
		cursorID = cur.ID
	} else {
		roots := tree.Roots()
		cursorID = roots[len(roots)-1]
	}
	chain := tree.Chain(cursorID)

	folders, notes, err := o.deps.Writer.Scan()
	if err != nil {
		o.logger.Warn("vault scan failed", zap.Error(err))
	}

	placement := knowledge.Placement{}
	if o.deps.Classifier != nil {
		placement = o.deps.Classifier.Classify(ctx, o.current.title, chain, folders, notes)
	}

	note := vault.Note{Title: o.current.title, Chain: chain}
	if o.current.kind == "url" {
		note.SourceURL = o.current.source
	} else {
		note.SourceFile = o.current.source
	}

	path, err := o.deps.Writer.WriteNote(placement, note)
	if err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	o.saveTree()
	return path, nil
}

// Close ends the running session, flushing its tree and stats record.
func (o *Orchestrator) Close() error {
	o.endSession()
	return nil
}

func (o *Orchestrator) endSession() {
	if o.current == nil {
		return
	}
	s := o.current
	o.current = nil

	if s.tree.Len() > 0 {
		o.saveTreeFor(s)
	}

	if o.deps.Stats != nil {
		ended := time.Now()
		rec := stats.Record{
			ID:              s.id,
			Title:           s.title,
			Kind:            s.kind,
			Questions:       s.questions,
			StartedAt:       s.startedAt,
			EndedAt:         ended,
			DurationSeconds: ended.Sub(s.startedAt).Seconds(),
		}
		if err := o.deps.Stats.Append(rec); err != nil {
			o.logger.Warn("stats record not written", zap.Error(err))
		}
	}
	o.logger.Info("session ended",
		zap.String("title", s.title),
		zap.Int("questions", s.questions))
}

func (o *Orchestrator) saveTree() {
	if o.current != nil {
		o.saveTreeFor(o.current)
	}
}

func (o *Orchestrator) saveTreeFor(s *sessionState) {
	if o.deps.Trees == nil || s.tree.Len() == 0 {
		return
	}
	if err := o.deps.Trees.Save(s.tree, s.title); err != nil {
		o.logger.Warn("tree not saved", zap.Error(err))
	}
}
