package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"genforge/internal/ratelimit"
	"genforge/internal/types"
)

// Producer materializes the content for one artifact. It may be slow and
// network-bound; the scheduler treats it as opaque and never retries it.
type Producer func(ctx context.Context, path string, context any) (string, error)

// ProgressFunc is invoked once per terminal item. It must be cheap; panics
// are swallowed so a broken callback cannot take a worker down.
type ProgressFunc func(path string, completed, total int)

// Policy decides what happens to an item whose dependency failed.
type Policy int

const (
	// ForwardProgress lets dependents proceed even when a dependency
	// failed: any terminal state satisfies gating. This is the default.
	ForwardProgress Policy = iota
	// StrictDependencies skips dependents of a failed path instead of
	// attempting them; the skip is recorded as a failed Result.
	StrictDependencies
)

// Config parametrizes a Scheduler. Zero values get safe defaults.
type Config struct {
	MaxConcurrent int
	Limiter       *ratelimit.Limiter
	Policy        Policy
	QueueMode     QueueMode
}

// Scheduler executes work items on a fixed pool of workers, gating each item
// on its predecessors in the supplied order and on the rate limiter. All
// per-run state (results, completed set, failed list) is owned by the
// instance and reset at the start of each Run.
type Scheduler struct {
	cfg Config

	mu      sync.Mutex
	cond    *sync.Cond
	done    map[string]bool
	results map[string]types.Result
	failed  []string
	tally   int
	total   int
}

// New builds a Scheduler. MaxConcurrent < 1 is raised to 1.
func New(cfg Config) *Scheduler {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	s := &Scheduler{cfg: cfg}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Run executes all items and returns the path→Result map. One item's
// failure never aborts the run; the only error returns are contract misuse
// (nil producer) and context cancellation, the latter with partial results.
//
// order, when supplied, gates each item on every path that precedes it in
// the slice: the item does not start producing until those paths are
// terminal. Items absent from order are ungated.
func (s *Scheduler) Run(ctx context.Context, items []types.WorkItem, produce Producer, progress ProgressFunc, order []string) (map[string]types.Result, error) {
	if s == nil {
		return nil, errors.New("scheduler: nil scheduler")
	}
	if produce == nil {
		return nil, errors.New("scheduler: producer is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.done = make(map[string]bool, len(items))
	s.results = make(map[string]types.Result, len(items))
	s.failed = nil
	s.tally = 0
	s.total = len(items)
	s.mu.Unlock()

	preds := predecessors(items, order)
	mode := s.cfg.QueueMode
	if mode == PriorityOrder && len(preds) > 0 {
		// A gated run must hand out items in dependency order: a worker
		// that pops a high-priority item whose predecessor is still
		// queued would block on it with nobody left to produce it.
		log.Printf("scheduler: priority queue ignored for dependency-gated run")
		mode = FIFO
	}
	queue := newWorkQueue(mode, items)

	// Wake dependency waiters when the run is canceled so workers can drain.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	log.Printf("scheduler: run start (%d items, %d workers)", len(items), s.cfg.MaxConcurrent)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.MaxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				item, ok := queue.pop()
				if !ok {
					return
				}
				s.runItem(ctx, item, produce, progress, preds[item.Path])
			}
		}()
	}
	wg.Wait()

	s.mu.Lock()
	out := make(map[string]types.Result, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	log.Printf("scheduler: run done (%d/%d succeeded)", len(out)-len(s.failed), len(items))
	return out, nil
}

// runItem drives one item through dependency-wait → rate limit → produce →
// record. An unexpected panic anywhere in the worker path is isolated to
// this item and recorded as its failure.
func (s *Scheduler) runItem(ctx context.Context, item types.WorkItem, produce Producer, progress ProgressFunc, preds []string) {
	defer func() {
		if r := recover(); r != nil {
			s.record(types.Result{
				Path:      item.Path,
				Error:     fmt.Sprintf("internal: %v", r),
				Timestamp: time.Now(),
			}, progress)
		}
	}()

	failedDep, ok := s.awaitDeps(ctx, preds)
	if !ok {
		return // canceled while waiting
	}
	if s.cfg.Policy == StrictDependencies && failedDep != "" {
		s.record(types.Result{
			Path:      item.Path,
			Skipped:   true,
			Error:     "skipped: dependency " + failedDep + " failed",
			Timestamp: time.Now(),
		}, progress)
		return
	}

	if lim := s.cfg.Limiter; lim != nil {
		if err := lim.Acquire(ctx); err != nil {
			return
		}
		defer lim.Release()
	}

	start := time.Now()
	content, err := produceSafe(ctx, produce, item)
	dur := time.Since(start)

	res := types.Result{
		Path:      item.Path,
		Duration:  dur,
		Timestamp: time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Content = content
		res.Success = true
	}
	s.record(res, progress)
}

// awaitDeps blocks until every predecessor is terminal. It returns the last
// failed predecessor seen (for strict gating) and false when the context was
// canceled before the dependencies resolved.
func (s *Scheduler) awaitDeps(ctx context.Context, preds []string) (string, bool) {
	if len(preds) == 0 {
		return "", true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return "", false
		}
		failedDep := ""
		pending := false
		for _, p := range preds {
			if !s.done[p] {
				pending = true
				break
			}
			if r := s.results[p]; !r.Success {
				failedDep = p
			}
		}
		if !pending {
			return failedDep, true
		}
		s.cond.Wait()
	}
}

// record stores a terminal result exactly once, wakes dependency waiters,
// and fires the progress callback outside the lock.
func (s *Scheduler) record(res types.Result, progress ProgressFunc) {
	s.mu.Lock()
	if s.done[res.Path] {
		s.mu.Unlock()
		return
	}
	s.done[res.Path] = true
	s.results[res.Path] = res
	s.tally++
	if !res.Success {
		s.failed = append(s.failed, res.Path)
	}
	completed, total := s.tally, s.total
	s.cond.Broadcast()
	s.mu.Unlock()

	if progress != nil {
		func() {
			defer func() { _ = recover() }()
			progress(res.Path, completed, total)
		}()
	}
}

func produceSafe(ctx context.Context, produce Producer, item types.WorkItem) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	return produce(ctx, item.Path, item.Context)
}

// predecessors maps each item path to the paths that precede it in order,
// restricted to paths actually present in this run.
func predecessors(items []types.WorkItem, order []string) map[string][]string {
	if len(order) == 0 {
		return nil
	}
	present := make(map[string]bool, len(items))
	for _, it := range items {
		present[it.Path] = true
	}
	out := make(map[string][]string, len(items))
	var before []string
	for _, p := range order {
		if !present[p] {
			continue
		}
		if len(before) > 0 {
			out[p] = append([]string(nil), before...)
		}
		before = append(before, p)
	}
	return out
}
