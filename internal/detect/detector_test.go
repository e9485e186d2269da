package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() Config {
	return Config{
		PollInterval:      time.Millisecond,
		StableThreshold:   2,
		MinContentLen:     10,
		RecoverAfterPolls: 10,
		Timeout:           250 * time.Millisecond,
	}
}

// scripted returns a poll func that yields vals in order, then repeats the
// last one forever.
func scripted(vals ...string) func() string {
	i := 0
	return func() string {
		if i < len(vals) {
			v := vals[i]
			i++
			return v
		}
		if len(vals) == 0 {
			return ""
		}
		return vals[len(vals)-1]
	}
}

func TestAwait_GrowThenStable(t *testing.T) {
	d := New(testConfig(), nil)
	out := d.Await(context.Background(), scripted(
		"The pap",
		"The paper introduces a",
		"The paper introduces a sparse attention variant.",
	), nil)

	require.Equal(t, StatusComplete, out.Status)
	assert.Equal(t, "The paper introduces a sparse attention variant.", out.Text)
}

func TestAwait_CompletesWithoutWaitingForTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = time.Minute

	polls := 0
	poll := func() string {
		polls++
		return "a perfectly stable answer"
	}

	d := New(cfg, nil)
	start := time.Now()
	out := d.Await(context.Background(), poll, nil)

	require.Equal(t, StatusComplete, out.Status)
	// First poll is growth, the next two are the stability window.
	assert.Equal(t, 3, polls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAwait_EmptyForeverTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	d := New(cfg, nil)
	out := d.Await(context.Background(), scripted(), nil)

	assert.Equal(t, StatusTimedOut, out.Status)
	assert.Empty(t, out.Text)
}

func TestAwait_ShorterReadingNeverReplacesBest(t *testing.T) {
	d := New(testConfig(), nil)
	out := d.Await(context.Background(), scripted(
		"a long answer that was fully rendered once",
		"a long answ",
		"a long answ",
	), nil)

	require.Equal(t, StatusComplete, out.Status)
	assert.Equal(t, "a long answer that was fully rendered once", out.Text)
}

func TestAwait_RecoveryInvokedExactlyOnce(t *testing.T) {
	cfg := testConfig()
	cfg.RecoverAfterPolls = 3
	cfg.Timeout = time.Minute

	recoveries := 0
	polls := 0
	poll := func() string {
		polls++
		// Nothing until well past the recovery trigger, then a real answer.
		if polls < 8 {
			return ""
		}
		return "recovered answer after resubmit"
	}

	d := New(cfg, nil)
	out := d.Await(context.Background(), poll, func() { recoveries++ })

	require.Equal(t, StatusComplete, out.Status)
	assert.Equal(t, "recovered answer after resubmit", out.Text)
	assert.Equal(t, 1, recoveries)
}

func TestAwait_TimeoutReturnsBestEffortPartial(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 25 * time.Millisecond

	polls := 0
	poll := func() string {
		// Keeps growing, never stabilizes within the timeout.
		polls++
		s := make([]byte, polls+20)
		for i := range s {
			s[i] = 'x'
		}
		return string(s)
	}

	d := New(cfg, nil)
	out := d.Await(context.Background(), poll, nil)

	require.Equal(t, StatusComplete, out.Status)
	assert.GreaterOrEqual(t, len(out.Text), 21)
}

func TestAwait_StabilityBelowMinContentDoesNotComplete(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	d := New(cfg, nil)
	// "ok" is stable but below the 10-char floor; the attempt runs to the
	// deadline and returns it as a best-effort partial.
	out := d.Await(context.Background(), scripted("ok"), nil)

	require.Equal(t, StatusComplete, out.Status)
	assert.Equal(t, "ok", out.Text)
}

func TestAwait_ContextCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	polls := 0
	poll := func() string {
		polls++
		if polls == 2 {
			cancel()
		}
		return ""
	}

	d := New(cfg, nil)
	out := d.Await(ctx, poll, nil)
	assert.Equal(t, StatusTimedOut, out.Status)
}
