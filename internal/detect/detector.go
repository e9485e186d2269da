// Package detect decides when an incrementally rendered answer has finished
// generating. The observed surface gives no completion event, so the detector
// polls the visible text and treats it as done once it stops growing for a
// configurable number of consecutive polls.
package detect

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Status tags the result of one acquisition attempt.
type Status int

const (
	// StatusComplete means a stable (or best-effort partial) answer was read.
	StatusComplete Status = iota
	// StatusTimedOut means no content ever appeared before the deadline.
	StatusTimedOut
)

func (s Status) String() string {
	if s == StatusComplete {
		return "complete"
	}
	return "timed_out"
}

// Outcome is the tagged result of Await.
type Outcome struct {
	Status Status
	Text   string
}

// state tracks where the polling loop is; used only for logging.
type state int

const (
	stateIdle state = iota
	statePolling
	stateGrowing
	stateStable
	stateNoDataYet
)

func (s state) String() string {
	switch s {
	case statePolling:
		return "polling"
	case stateGrowing:
		return "growing"
	case stateStable:
		return "stable"
	case stateNoDataYet:
		return "no_data_yet"
	default:
		return "idle"
	}
}

// Config holds the detection thresholds. The defaults mirror the heuristic
// the assistant was tuned with; all of them are operator-configurable.
type Config struct {
	// PollInterval is the fixed delay between reads of the surface text.
	PollInterval time.Duration
	// StableThreshold is how many consecutive unchanged polls count as done.
	StableThreshold int
	// MinContentLen is the minimum best-known length before stability can
	// complete the read. Filters out placeholder fragments.
	MinContentLen int
	// RecoverAfterPolls triggers the one-shot recovery action when no content
	// has appeared by this poll count.
	RecoverAfterPolls int
	// Timeout bounds the whole acquisition attempt.
	Timeout time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		PollInterval:      3 * time.Second,
		StableThreshold:   2,
		MinContentLen:     10,
		RecoverAfterPolls: 10,
		Timeout:           180 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.StableThreshold <= 0 {
		c.StableThreshold = d.StableThreshold
	}
	if c.MinContentLen <= 0 {
		c.MinContentLen = d.MinContentLen
	}
	if c.RecoverAfterPolls <= 0 {
		c.RecoverAfterPolls = d.RecoverAfterPolls
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// Detector runs the stabilization state machine.
type Detector struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a detector. A nil logger is replaced with a no-op one.
func New(cfg Config, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{cfg: cfg.withDefaults(), logger: logger}
}

// Await polls until the observed text stabilizes, the timeout elapses, or ctx
// is cancelled. poll reads the current surface text (stale, partial, or empty
// readings are all fine); recover is invoked exactly once if nothing has
// appeared by the configured poll count, and is meant to resubmit the request.
//
// Acceptance is monotonic: the longest text seen so far is the best-known
// answer and a shorter reading never replaces it. On timeout or cancellation
// the best-known text is returned as a partial Complete when anything was
// ever observed; TimedOut is returned only when nothing was.
func (d *Detector) Await(ctx context.Context, poll func() string, recoverFn func()) Outcome {
	cfg := d.cfg
	deadline := time.Now().Add(cfg.Timeout)

	var (
		best      string
		stable    int
		polls     int
		recovered bool
		st        = statePolling
	)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("detection cancelled",
				zap.Int("polls", polls), zap.Int("best_len", len(best)))
			return d.bestEffort(best)
		case <-ticker.C:
		}

		polls++
		current := strings.TrimSpace(poll())

		switch {
		case len(current) > len(best):
			best = current
			stable = 0
			st = stateGrowing
			d.logger.Debug("content grew",
				zap.Int("poll", polls), zap.Int("len", len(best)))
		case best == "":
			st = stateNoDataYet
		default:
			stable++
			st = stateStable
		}

		if stable >= cfg.StableThreshold && len(best) > cfg.MinContentLen {
			d.logger.Info("answer stabilized",
				zap.Int("polls", polls), zap.Int("len", len(best)))
			return Outcome{Status: StatusComplete, Text: best}
		}

		if !recovered && best == "" && polls >= cfg.RecoverAfterPolls {
			d.logger.Warn("no content observed, invoking recovery",
				zap.Int("poll", polls))
			recovered = true
			if recoverFn != nil {
				recoverFn()
			}
		}

		if time.Now().After(deadline) {
			d.logger.Warn("detection timed out",
				zap.Int("polls", polls),
				zap.Int("best_len", len(best)),
				zap.String("state", st.String()))
			return d.bestEffort(best)
		}
	}
}

// bestEffort turns whatever was observed into the terminal outcome.
func (d *Detector) bestEffort(best string) Outcome {
	if best != "" {
		return Outcome{Status: StatusComplete, Text: best}
	}
	return Outcome{Status: StatusTimedOut}
}
