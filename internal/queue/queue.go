// Package queue holds the pending questions waiting to be dispatched to the
// content surface, in insertion order.
package queue

import (
	"go.uber.org/zap"
)

// Queue is a FIFO of question strings. It is owned by the orchestrator's
// single control flow and is not safe for concurrent use.
type Queue struct {
	items  []string
	logger *zap.Logger
}

// New creates an empty queue. A nil logger is replaced with a no-op one.
func New(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{logger: logger}
}

// Push appends a question.
func (q *Queue) Push(question string) {
	q.items = append(q.items, question)
	q.logger.Debug("question queued",
		zap.String("question", question), zap.Int("pending", len(q.items)))
}

// Len returns the number of pending questions.
func (q *Queue) Len() int { return len(q.items) }

// Snapshot returns the pending questions without consuming them.
func (q *Queue) Snapshot() []string {
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}

// Clear drops every pending question.
func (q *Queue) Clear() {
	q.items = nil
}

// Drain invokes handler for each question in insertion order. A failure for
// one entry is logged and skipped; the remaining entries still run. The queue
// is empty afterwards regardless of individual outcomes. Drain reports how
// many entries succeeded.
func (q *Queue) Drain(handler func(question string) error) int {
	pending := q.items
	q.items = nil

	done := 0
	for i, question := range pending {
		if err := handler(question); err != nil {
			q.logger.Warn("question failed, continuing with the rest",
				zap.Int("index", i+1),
				zap.Int("total", len(pending)),
				zap.String("question", question),
				zap.Error(err))
			continue
		}
		done++
	}
	return done
}
