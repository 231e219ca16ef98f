package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"genforge/internal/ratelimit"
	"genforge/internal/tester"
)

// flaky fails a fixed number of times before succeeding.
type flaky struct {
	failures  int32
	permanent bool
	calls     int32
}

func (f *flaky) Name() string { return "flaky" }
func (f *flaky) Close() error { return nil }
func (f *flaky) Generate(ctx context.Context, prompt string, input any) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		if f.permanent {
			return "", Permanent(errors.New("bad request"))
		}
		return "", errors.New("transient")
	}
	return "content", nil
}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	inner := &flaky{failures: 2}
	cli := Wrap(inner, Retry(3, time.Millisecond))
	out, err := cli.Generate(context.Background(), "p", nil)
	tester.NoErr(t, err)
	tester.Eq(t, out, "content")
	tester.Eq(t, atomic.LoadInt32(&inner.calls), int32(3))
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flaky{failures: 10}
	cli := Wrap(inner, Retry(2, time.Millisecond))
	_, err := cli.Generate(context.Background(), "p", nil)
	tester.Err(t, err)
	tester.Eq(t, atomic.LoadInt32(&inner.calls), int32(2))
}

func TestRetry_NoBackoffAfterFinalAttempt(t *testing.T) {
	inner := &flaky{failures: 10}
	cli := Wrap(inner, Retry(2, 150*time.Millisecond))
	start := time.Now()
	_, err := cli.Generate(context.Background(), "p", nil)
	elapsed := time.Since(start)
	tester.Err(t, err)
	tester.Eq(t, atomic.LoadInt32(&inner.calls), int32(2))
	// one backoff between the two attempts, none after the last
	tester.True(t, elapsed < 300*time.Millisecond,
		"expected a single 150ms backoff, got "+elapsed.String())
}

func TestRetry_BackoffHonorsCancellation(t *testing.T) {
	inner := &flaky{failures: 10}
	cli := Wrap(inner, Retry(5, time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := cli.Generate(ctx, "p", nil)
	tester.Err(t, err)
	tester.True(t, errors.Is(err, context.Canceled))
	tester.Eq(t, atomic.LoadInt32(&inner.calls), int32(1), "cancellation interrupts the backoff, not a retry")
	tester.True(t, time.Since(start) < 500*time.Millisecond, "backoff must not run to completion after cancel")
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	inner := &flaky{failures: 10, permanent: true}
	cli := Wrap(inner, Retry(5, time.Millisecond))
	_, err := cli.Generate(context.Background(), "p", nil)
	tester.Err(t, err)
	var pErr *PermanentError
	tester.True(t, errors.As(err, &pErr))
	tester.Eq(t, atomic.LoadInt32(&inner.calls), int32(1), "permanent errors are not retried")
}

func TestRateLimit_SpacesCalls(t *testing.T) {
	// 4 per second → 250ms spacing
	lim := ratelimit.New(4, 4, time.Second)
	inner := &flaky{}
	cli := Wrap(inner, RateLimit(lim))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := cli.Generate(context.Background(), "p", nil)
		tester.NoErr(t, err)
	}
	elapsed := time.Since(start)
	tester.True(t, elapsed >= 450*time.Millisecond, "expected throttling >=450ms, got %v", elapsed)
	tester.Eq(t, lim.InUse(), 0, "slots released after each call")
}

func TestWrap_AppliesLeftToRight(t *testing.T) {
	inner := &flaky{failures: 1}
	cli := Wrap(inner, LogRequests(), Retry(2, time.Millisecond))
	out, err := cli.Generate(context.Background(), "p", nil)
	tester.NoErr(t, err)
	tester.Eq(t, out, "content")
	tester.Eq(t, cli.Name(), "flaky")
}

func TestFakeClient_IsDeterministic(t *testing.T) {
	cli := NewFakeClient()
	in := map[string]any{"path": "src/main.go"}
	a, err := cli.Generate(context.Background(), "p", in)
	tester.NoErr(t, err)
	b, err := cli.Generate(context.Background(), "p", in)
	tester.NoErr(t, err)
	tester.Eq(t, a, b)
	tester.True(t, a != "", "fake content is never empty")
}
