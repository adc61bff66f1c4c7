package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/oced/internal/model"
)

// Option configures a search.
type Option func(*options)

type options struct {
	workers    int
	stepBudget int64
	timeout    time.Duration
	runIDs     RunIDGenerator
}

// WithWorkers sets the number of concurrent workers. Values below one
// mean one.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = max(n, 1)
	}
}

// WithStepBudget sets the maximum number of explored assignments.
//
// Default: 5,000,000 steps (DefaultStepBudget)
// A non-positive budget is unlimited.
func WithStepBudget(n int64) Option {
	return func(o *options) {
		o.stepBudget = n
	}
}

// WithTimeout bounds wall-clock time. Zero means no limit beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRunIDGenerator sets the generator for Outcome.RunID.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *options) {
		o.runIDs = g
	}
}

// shared is the state every worker of one search touches.
type shared struct {
	ctx    context.Context
	budget *Budget

	mu    sync.Mutex
	found *model.Instance

	// bestRank mirrors the rank of found for lock-free checkpoints.
	bestRank atomic.Int64

	// firstGap is the lowest rank that was handed out but not explored to
	// completion. Ranks are handed out in order, so every unit below it
	// that was handed out also completed.
	firstGap atomic.Int64
	done     atomic.Int64
}

func newShared(ctx context.Context, b *Budget) *shared {
	sh := &shared{ctx: ctx, budget: b}
	sh.bestRank.Store(math.MaxInt64)
	sh.firstGap.Store(math.MaxInt64)
	return sh
}

// offer records in as the result of unit rank if it beats the current one.
func (sh *shared) offer(rank int, in *model.Instance) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if int64(rank) < sh.bestRank.Load() {
		sh.found = in
		sh.bestRank.Store(int64(rank))
	}
}

// outranked reports whether a unit ranked before rank already has a result.
func (sh *shared) outranked(rank int) bool {
	return sh.bestRank.Load() < int64(rank)
}

func (sh *shared) complete() {
	sh.done.Add(1)
}

// abandon marks unit rank as handed out but not fully explored.
func (sh *shared) abandon(rank int) {
	r := int64(rank)
	for {
		cur := sh.firstGap.Load()
		if r >= cur || sh.firstGap.CompareAndSwap(cur, r) {
			return
		}
	}
}

// settled reports whether the best result stands: every unit ranked before
// it was explored to completion. Valid once all workers have returned.
func (sh *shared) settled() bool {
	best := sh.bestRank.Load()
	return best != math.MaxInt64 && sh.firstGap.Load() > best
}

func (sh *shared) completedCount() int {
	return int(sh.done.Load())
}

// Search explores every instance of s within bound in canonical order and
// returns the first that meets goal.
//
// The returned error is non-nil only for unusable requests (*SearchError),
// a failing predicate, or cancellation of ctx. Running out of budget or
// reaching ctx's deadline is an Outcome with StatusResourceExhausted.
func Search(ctx context.Context, s *model.Schema, bound Bound, goal Goal, opts ...Option) (*Outcome, error) {
	o := options{workers: 1, stepBudget: DefaultStepBudget, runIDs: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	if err := bound.Validate(); err != nil {
		return nil, err
	}
	if err := goal.validate(bound); err != nil {
		return nil, err
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	runID := o.runIDs.Generate()
	t := model.SequentialTime(bound.Time)
	p := newPlan(s, t, bound, goal)
	units := p.size()

	slog.Debug("search planned",
		"run", runID,
		"goal", goal.Name,
		"kind", goal.Kind,
		"bound", bound.String(),
		"units", units,
		"workers", o.workers,
	)

	g, gctx := errgroup.WithContext(ctx)
	sh := newShared(gctx, NewBudget(o.stepBudget))
	var next atomic.Int64
	for range o.workers {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= units || sh.outranked(i) {
					return nil
				}
				if sh.budget.Exceeded() || gctx.Err() != nil {
					sh.abandon(i)
					return nil
				}
				err := newWalker(sh, s, t, goal, p.unit(i)).run()
				switch {
				case err == nil || errors.Is(err, errFound):
					sh.complete()
				case errors.Is(err, errStop):
					sh.abandon(i)
				default:
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Outcome{
		RunID:     runID,
		Goal:      goal.Name,
		Kind:      goal.Kind,
		Bound:     bound,
		Steps:     sh.budget.Steps(),
		Units:     units,
		Completed: sh.completedCount(),
		Elapsed:   time.Since(start),
	}
	switch {
	case sh.settled():
		out.Status = StatusFound
		out.Instance = sh.found
	case out.Completed == out.Units:
		// Every unit finished, so a budget or deadline hit afterwards
		// leaves the answer complete.
		out.Status = StatusNoneWithinBound
	case sh.budget.Exceeded():
		out.Status = StatusResourceExhausted
		out.Reason = fmt.Sprintf("step budget of %d exhausted after %d of %d work units", sh.budget.Limit(), out.Completed, out.Units)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Status = StatusResourceExhausted
		out.Reason = fmt.Sprintf("deadline exceeded after %d of %d work units", out.Completed, out.Units)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("search %q: %w", goal.Name, ctx.Err())
	default:
		out.Status = StatusNoneWithinBound
	}

	slog.Info("search finished",
		"run", runID,
		"goal", goal.Name,
		"status", out.Status,
		"steps", out.Steps,
		"elapsed", out.Elapsed,
	)
	return out, nil
}
