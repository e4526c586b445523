// Package sequence provides a resumable, strictly sequential walk over an
// ordered slice of items. Each item is handed to a user-supplied step function
// together with a continuation; the walk does not move to the next index until
// the step explicitly advances (optionally replacing the current value) or
// aborts the run. The final sequence is delivered to a completion callback.
//
// Exactly one item is in flight at a time. A step may resume the walk
// synchronously or from arbitrary goroutines arbitrarily later; stale or
// duplicate continuation handles are neutralized, and starting a new walk on a
// controller invalidates every handle minted by the previous one.
package sequence

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	sdkerrors "github.com/wehubfusion/Ariadne/pkg/errors"
)

// Controller drives sequential walks over item slices. A controller runs at
// most one walk at a time; calling Iterate while a previous walk is still
// suspended supersedes that walk and renders its handles inert.
//
// The zero value is not usable; create controllers with New.
type Controller[T any] struct {
	mu      sync.Mutex
	current *run[T]
	logger  *zap.Logger
	tracer  trace.Tracer
}

// New creates a new controller with the given config.
func New[T any](config Config) *Controller[T] {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller[T]{
		logger: logger,
		tracer: otel.Tracer("ariadne/sequence"),
	}
}

// Iterate starts a walk over items. It dispatches the step for index 0 and
// returns; all results are delivered through done, which receives the final
// sequence exactly once per run (unless items is empty, in which case neither
// step nor done is ever invoked and callers must check length themselves).
//
// The items slice is owned by the controller for the duration of the run:
// element values may be overwritten through the continuations, the length
// never changes, and external mutation during a run is the caller's
// responsibility to avoid. done may be nil.
//
// ctx is used to parent the run's trace span. Cancelling it does not stop the
// walk; the only way to end a run early is through a continuation's Abort.
//
// Returns an invalid-argument error if step is nil; no side effects occur in
// that case.
func (c *Controller[T]) Iterate(ctx context.Context, items []T, step StepFunc[T], done DoneFunc[T]) error {
	if step == nil {
		return sdkerrors.InvalidArgument("step must be callable", sdkerrors.ErrStepRequired)
	}
	if done == nil {
		done = func([]T) {}
	}

	_, span := c.tracer.Start(ctx, "sequence.iterate",
		trace.WithAttributes(
			attribute.Int("sequence.length", len(items)),
		))

	r := &run[T]{
		id:     uuid.NewString(),
		items:  items,
		step:   step,
		done:   done,
		logger: c.logger,
		span:   span,
	}
	span.SetAttributes(attribute.String("run.id", r.id))

	// Swap in the new run before dispatching anything, so handles retained
	// from the previous run cannot advance or complete it from now on.
	c.mu.Lock()
	prev := c.current
	c.current = r
	c.mu.Unlock()
	if prev != nil {
		prev.supersede()
	}

	c.logger.Debug("starting sequence walk",
		zap.String("run_id", r.id),
		zap.Int("items", len(items)))

	if len(items) == 0 {
		// Empty input is inert: no step call, no completion.
		r.mu.Lock()
		r.finished = true
		r.mu.Unlock()
		span.End()
		return nil
	}

	r.dispatch(0)
	return nil
}

// run is the per-walk state record. Every Iterate call allocates a fresh run;
// continuations close over the run they were minted for, so a late handle from
// an old run can never reach a newer run's state.
type run[T any] struct {
	mu         sync.Mutex
	id         string
	items      []T
	step       StepFunc[T]
	done       DoneFunc[T]
	index      int
	aborted    bool
	finished   bool
	superseded bool
	logger     *zap.Logger
	span       trace.Span
}

// dispatch invokes the step for index. The run lock must not be held; the
// step may re-enter the run synchronously through its continuation.
func (r *run[T]) dispatch(index int) {
	r.mu.Lock()
	value := r.items[index]
	r.mu.Unlock()
	r.step(index, value, &Continuation[T]{run: r, index: index})
}

// supersede marks the run stale so every handle minted for it becomes a no-op.
func (r *run[T]) supersede() {
	r.mu.Lock()
	stale := !r.finished && !r.aborted
	r.superseded = true
	r.mu.Unlock()
	if stale {
		r.logger.Debug("superseding suspended run", zap.String("run_id", r.id))
		r.span.End()
	}
}

// live reports whether the run can still accept handle effects.
// Callers must hold r.mu.
func (r *run[T]) live() bool {
	return !r.aborted && !r.finished && !r.superseded
}

// Continuation resumes a suspended walk. Each continuation is bound to the run
// and index it was minted for: Advance moves the walk past that index exactly
// once, and Abort ends the run while overwriting (at most) that index. Both
// are safe to call from any goroutine and become no-ops once the run has
// finished, aborted, or been superseded by a newer Iterate call.
type Continuation[T any] struct {
	run   *run[T]
	index int
}

// Index returns the index this continuation was minted for.
func (c *Continuation[T]) Index() int {
	return c.index
}

// Advance moves the walk to the next index, keeping the current value.
func (c *Continuation[T]) Advance() {
	c.advance(nil)
}

// AdvanceWith replaces the value at this continuation's index with v, then
// moves the walk to the next index.
func (c *Continuation[T]) AdvanceWith(v T) {
	c.advance(&v)
}

// Abort ends the run immediately. The completion callback receives the items
// as they stand; indices past this continuation's are never visited.
func (c *Continuation[T]) Abort() {
	c.abort(nil)
}

// AbortWith replaces the value at this continuation's index with v, then ends
// the run immediately. The index written is the one this handle was minted
// for, even if the walk has since moved past it.
func (c *Continuation[T]) AbortWith(v T) {
	c.abort(&v)
}

func (c *Continuation[T]) advance(value *T) {
	r := c.run

	r.mu.Lock()
	// A handle only advances the index it was minted for; duplicate calls and
	// handles from dead runs fall through here.
	if !r.live() || c.index != r.index {
		r.mu.Unlock()
		return
	}
	if value != nil {
		r.items[c.index] = *value
	}
	r.index++
	next := r.index
	if next >= len(r.items) {
		r.finished = true
		items := r.items
		r.mu.Unlock()

		r.logger.Debug("sequence walk complete",
			zap.String("run_id", r.id),
			zap.Int("items", len(items)))
		r.span.End()
		r.done(items)
		return
	}
	r.mu.Unlock()

	r.span.AddEvent("advance", trace.WithAttributes(attribute.Int("index", c.index)))
	r.dispatch(next)
}

func (c *Continuation[T]) abort(value *T) {
	r := c.run

	r.mu.Lock()
	if !r.live() {
		r.mu.Unlock()
		return
	}
	r.aborted = true
	if value != nil {
		// Abort writes the index this handle was bound to, which may be
		// behind the walk's current index.
		r.items[c.index] = *value
	}
	items := r.items
	r.mu.Unlock()

	r.logger.Debug("sequence walk aborted",
		zap.String("run_id", r.id),
		zap.Int("index", c.index))
	r.span.AddEvent("abort", trace.WithAttributes(attribute.Int("index", c.index)))
	r.span.End()
	r.done(items)
}

// Iterate is a convenience wrapper that runs a one-off walk on a fresh
// controller with default configuration.
func Iterate[T any](items []T, step StepFunc[T], done DoneFunc[T]) error {
	return New[T](DefaultConfig()).Iterate(context.Background(), items, step, done)
}
