package sequence

import "go.uber.org/zap"

// StepFunc is the function called for each item in the sequence. It receives
// the item's index, the current value at that index, and the continuation that
// resumes the walk. The walk stays suspended until one of the continuation's
// methods is invoked; that may happen synchronously, before StepFunc returns,
// or from another goroutine at any later time.
type StepFunc[T any] func(index int, value T, cont *Continuation[T])

// DoneFunc receives the final, possibly mutated, sequence when the walk
// completes or is aborted.
type DoneFunc[T any] func(items []T)

// Config holds configuration for a Controller
type Config struct {
	// Logger is the zap logger for run lifecycle events (optional, no-op if nil)
	Logger *zap.Logger
}

// DefaultConfig returns a default controller configuration
func DefaultConfig() Config {
	return Config{}
}
