// Package runner drives a sequence walk over NATS: every item is published as
// a request, and the walk resumes from the reply handler with the responder's
// payload as the replacement value. It exists to exercise the controller the
// way it is meant to be used — continuations fired from foreign goroutines,
// arbitrarily later — while giving callers a blocking, error-returning API.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	sdkerrors "github.com/wehubfusion/Ariadne/pkg/errors"
	"github.com/wehubfusion/Ariadne/pkg/sequence"
)

// Runner walks byte-payload sequences by round-tripping each item over NATS.
// A Runner is safe for concurrent Run calls; every call gets its own
// controller and inbox subscriptions.
type Runner struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewRunner creates a new Runner publishing to the given subject.
// The connection must already be established.
// timeout bounds the wait for each item's reply; a timed-out item aborts the
// walk. logger is the zap logger instance for structured logging.
// Returns an error if any of the parameters are invalid.
func NewRunner(conn *nats.Conn, subject string, timeout time.Duration, logger *zap.Logger) (*Runner, error) {
	if conn == nil {
		return nil, sdkerrors.ErrNotConnected
	}
	if subject == "" {
		return nil, sdkerrors.ErrInvalidSubject
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be greater than 0")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Runner{
		conn:    conn,
		subject: subject,
		timeout: timeout,
		logger:  logger,
		tracer:  otel.Tracer("ariadne/runner"),
	}, nil
}

// Run walks items, replacing each with the responder's reply payload, and
// blocks until the walk completes, aborts, or ctx is cancelled. On abort it
// returns the items as they stood together with the first error (timeout or
// transport failure) that caused it.
func (r *Runner) Run(ctx context.Context, items [][]byte) ([][]byte, error) {
	ctx, span := r.tracer.Start(ctx, "runner.run",
		trace.WithAttributes(
			attribute.String("subject", r.subject),
			attribute.Int("items", len(items)),
		))
	defer span.End()

	if len(items) == 0 {
		return items, nil
	}

	var mu sync.Mutex
	var runErr error
	setErr := func(err error) {
		mu.Lock()
		if runErr == nil {
			runErr = err
		}
		mu.Unlock()
	}

	step := func(index int, value []byte, cont *sequence.Continuation[[]byte]) {
		// One gate per item: whichever of reply and timeout fires first wins,
		// and a late fire of the other side is harmless.
		var once sync.Once

		inbox := nats.NewInbox()
		sub, err := r.conn.Subscribe(inbox, func(msg *nats.Msg) {
			once.Do(func() {
				cont.AdvanceWith(msg.Data)
			})
		})
		if err != nil {
			setErr(sdkerrors.NewError(sdkerrors.CodeTransport,
				fmt.Sprintf("failed to subscribe for item %d", index), err))
			cont.Abort()
			return
		}
		if err := sub.AutoUnsubscribe(1); err != nil {
			r.logger.Warn("failed to limit inbox subscription", zap.Error(err))
		}

		time.AfterFunc(r.timeout, func() {
			once.Do(func() {
				_ = sub.Unsubscribe()
				setErr(fmt.Errorf("item %d: %w", index, sdkerrors.ErrTimeout))
				cont.Abort()
			})
		})

		if err := r.conn.PublishRequest(r.subject, inbox, value); err != nil {
			once.Do(func() {
				_ = sub.Unsubscribe()
				setErr(sdkerrors.NewError(sdkerrors.CodeTransport,
					fmt.Sprintf("failed to publish item %d", index), err))
				cont.Abort()
			})
		}
	}

	done := make(chan [][]byte, 1)
	controller := sequence.New[[]byte](sequence.Config{Logger: r.logger})
	if err := controller.Iterate(ctx, items, step, func(final [][]byte) {
		done <- final
	}); err != nil {
		return nil, err
	}

	select {
	case final := <-done:
		mu.Lock()
		err := runErr
		mu.Unlock()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Error("walk aborted", zap.Error(err))
			return final, err
		}
		r.logger.Info("walk complete",
			zap.String("subject", r.subject),
			zap.Int("items", len(final)))
		return final, nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "context cancelled")
		return nil, ctx.Err()
	}
}
