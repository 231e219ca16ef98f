package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"genforge/internal/ratelimit"
	"genforge/internal/tester"
	"genforge/internal/types"
)

func items(paths ...string) []types.WorkItem {
	out := make([]types.WorkItem, 0, len(paths))
	for _, p := range paths {
		out = append(out, types.NewWorkItem(p, nil, 0))
	}
	return out
}

func okProducer(content string) Producer {
	return func(ctx context.Context, path string, _ any) (string, error) {
		return content + path, nil
	}
}

func TestRun_AllSucceed(t *testing.T) {
	s := New(Config{MaxConcurrent: 4})
	results, err := s.Run(context.Background(), items("a", "b", "c"), okProducer("gen:"), nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, len(results), 3)
	for _, p := range []string{"a", "b", "c"} {
		r := results[p]
		tester.True(t, r.Success, p)
		tester.Eq(t, r.Content, "gen:"+p)
	}
	st := s.Stats()
	tester.Eq(t, st.Total, 3)
	tester.Eq(t, st.Succeeded, 3)
	tester.Eq(t, st.Failed, 0)
	tester.Eq(t, st.SuccessRate, 1.0)
}

func TestRun_OneFailureIsIsolated(t *testing.T) {
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		if path == "b" {
			return "", errors.New("backend exploded")
		}
		return "ok", nil
	}
	s := New(Config{MaxConcurrent: 2})
	results, err := s.Run(context.Background(), items("a", "b", "c", "d"), produce, nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, len(results), 4)
	tester.False(t, results["b"].Success)
	tester.Eq(t, results["b"].Error, "backend exploded")
	for _, p := range []string{"a", "c", "d"} {
		tester.True(t, results[p].Success, p)
	}

	st := s.Stats()
	tester.Eq(t, st.Failed, 1)
	tester.Eq(t, st.FailedPaths, []string{"b"})
}

func TestRun_ProducerPanicIsIsolated(t *testing.T) {
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		if path == "boom" {
			panic("kaput")
		}
		return "ok", nil
	}
	s := New(Config{MaxConcurrent: 3})
	results, err := s.Run(context.Background(), items("a", "boom", "c"), produce, nil, nil)
	tester.NoErr(t, err)
	tester.False(t, results["boom"].Success)
	tester.True(t, results["a"].Success)
	tester.True(t, results["c"].Success)
	tester.Eq(t, s.Stats().Failed, 1)
}

func TestRun_DependencyGating_RandomizedInterleavings(t *testing.T) {
	order := []string{"a", "b", "c", "d", "e"}
	for trial := 0; trial < 30; trial++ {
		var mu sync.Mutex
		started := make([]string, 0, len(order))
		produce := func(ctx context.Context, path string, _ any) (string, error) {
			mu.Lock()
			started = append(started, path)
			mu.Unlock()
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			return "ok", nil
		}

		s := New(Config{MaxConcurrent: 4})
		_, err := s.Run(context.Background(), items(order...), produce, nil, order)
		tester.NoErr(t, err)

		pos := make(map[string]int, len(started))
		for i, p := range started {
			pos[p] = i
		}
		for i := 1; i < len(order); i++ {
			tester.True(t, pos[order[i-1]] < pos[order[i]],
				fmt.Sprintf("trial %d: %s must start after %s", trial, order[i], order[i-1]))
		}
	}
}

func TestRun_GatedDependentWaitsForFailedDep(t *testing.T) {
	// forward-progress policy: b still runs after a fails
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		if path == "a" {
			return "", errors.New("nope")
		}
		return "ok", nil
	}
	s := New(Config{MaxConcurrent: 2})
	results, err := s.Run(context.Background(), items("a", "b"), produce, nil, []string{"a", "b"})
	tester.NoErr(t, err)
	tester.False(t, results["a"].Success)
	tester.True(t, results["b"].Success, "failed dependency still satisfies gating by default")
}

func TestRun_StrictPolicySkipsDependents(t *testing.T) {
	var calls int32
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		atomic.AddInt32(&calls, 1)
		if path == "a" {
			return "", errors.New("nope")
		}
		return "ok", nil
	}
	s := New(Config{MaxConcurrent: 2, Policy: StrictDependencies})
	results, err := s.Run(context.Background(), items("a", "b", "c"), produce, nil, []string{"a", "b", "c"})
	tester.NoErr(t, err)
	tester.False(t, results["b"].Success)
	tester.True(t, results["b"].Skipped)
	tester.True(t, results["c"].Skipped, "skips cascade through the order")
	tester.Eq(t, atomic.LoadInt32(&calls), int32(1), "skipped items never reach the producer")
	tester.Eq(t, s.Stats().Failed, 2)
}

func TestRun_ProgressFiresOncePerItem(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	var lastCompleted int
	progress := func(path string, completed, total int) {
		mu.Lock()
		calls[path]++
		if completed > lastCompleted {
			lastCompleted = completed
		}
		tester.Eq(t, total, 3)
		mu.Unlock()
	}
	s := New(Config{MaxConcurrent: 2})
	_, err := s.Run(context.Background(), items("a", "b", "c"), okProducer(""), progress, nil)
	tester.NoErr(t, err)
	tester.Eq(t, len(calls), 3)
	for p, n := range calls {
		tester.Eq(t, n, 1, p)
	}
	tester.Eq(t, lastCompleted, 3)
}

func TestRun_PanickingProgressDoesNotKillWorkers(t *testing.T) {
	progress := func(path string, completed, total int) { panic("bad callback") }
	s := New(Config{MaxConcurrent: 2})
	results, err := s.Run(context.Background(), items("a", "b", "c"), okProducer(""), progress, nil)
	tester.NoErr(t, err)
	tester.Eq(t, len(results), 3)
	tester.Eq(t, s.Stats().Succeeded, 3)
}

func TestRun_ResetsBetweenRuns(t *testing.T) {
	s := New(Config{MaxConcurrent: 2})
	_, err := s.Run(context.Background(), items("a", "b"), okProducer(""), nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, s.Stats().Total, 2)

	results, err := s.Run(context.Background(), items("x"), okProducer(""), nil, nil)
	tester.NoErr(t, err)
	tester.Eq(t, len(results), 1)
	_, stale := results["a"]
	tester.False(t, stale, "previous run's results must not leak")
	tester.Eq(t, s.Stats().Total, 1)
}

func TestRun_NilProducerIsMisuse(t *testing.T) {
	s := New(Config{})
	_, err := s.Run(context.Background(), items("a"), nil, nil, nil)
	tester.Err(t, err)
}

func TestRun_HonorsRateLimiterCap(t *testing.T) {
	const slots = 2
	lim := ratelimit.New(slots, 0, 0)
	var inFlight, peak int32
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "ok", nil
	}
	s := New(Config{MaxConcurrent: 8, Limiter: lim})
	_, err := s.Run(context.Background(), items("a", "b", "c", "d", "e", "f"), produce, nil, nil)
	tester.NoErr(t, err)
	tester.True(t, atomic.LoadInt32(&peak) <= slots, "producer concurrency bounded by limiter slots")
	tester.Eq(t, lim.InUse(), 0, "all slots released after the run")
}

func TestRun_PriorityQueueIgnoredWhenGated(t *testing.T) {
	// one worker, b carries the higher priority hint but depends on a:
	// the run must hand out a first instead of blocking forever on b
	var mu sync.Mutex
	var started []string
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		mu.Lock()
		started = append(started, path)
		mu.Unlock()
		return "ok", nil
	}
	in := []types.WorkItem{
		types.NewWorkItem("a", nil, 0),
		types.NewWorkItem("b", nil, 9),
	}
	s := New(Config{MaxConcurrent: 1, QueueMode: PriorityOrder})

	done := make(chan struct{})
	var results map[string]types.Result
	var runErr error
	go func() {
		defer close(done)
		results, runErr = s.Run(context.Background(), in, produce, nil, []string{"a", "b"})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("gated run with priority queue did not complete")
	}
	tester.NoErr(t, runErr)
	tester.True(t, results["a"].Success)
	tester.True(t, results["b"].Success)
	tester.Eq(t, started, []string{"a", "b"})
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	produce := func(ctx context.Context, path string, _ any) (string, error) {
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s := New(Config{MaxConcurrent: 1})

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		_, runErr = s.Run(ctx, items("a", "b", "c"), produce, nil, []string{"a", "b", "c"})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not drain after cancellation")
	}
	tester.Err(t, runErr)
	close(release)
}
