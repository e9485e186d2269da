// Package llm talks to text-generation HTTP backends. Each backend is one
// Client implementation; Caller wraps a client with bounded retries. The
// backends here serve summaries and note classification, never the driven
// reading surface.
package llm

import (
	"context"
	"errors"
)

// Client is the single capability a backend exposes.
type Client interface {
	// Call sends one prompt and returns the generated text.
	Call(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend in logs.
	Name() string
}

// ErrEmptyResponse is returned when a backend answers successfully but with
// no usable text.
var ErrEmptyResponse = errors.New("backend returned an empty response")

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 10 * 1024 * 1024
