// Package jsstep adapts JavaScript functions to sequence steps. Scripts see
// the classic continuation surface: the third argument is a callable advance
// with an attached abort property, each taking an optional replacement value.
//
// A Step owns a single goja runtime and is not safe for use by multiple walks
// at once; the controller's one-step-in-flight guarantee makes per-run use
// safe, including when continuations are fired from other goroutines (only
// the script's own synchronous calls touch the VM).
package jsstep

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"

	sdkerrors "github.com/wehubfusion/Ariadne/pkg/errors"
	"github.com/wehubfusion/Ariadne/pkg/sequence"
)

// Step is a compiled JavaScript step function.
type Step struct {
	vm      *goja.Runtime
	fn      goja.Callable
	logger  *zap.Logger
	onError func(index int, err error)
}

// New compiles the configured script inside a sandboxed runtime. The script
// must evaluate to a function; anything else fails with an invalid-argument
// error.
func New(config Config) (*Step, error) {
	if config.Script == "" {
		return nil, sdkerrors.InvalidArgument("script cannot be empty", nil)
	}
	level := config.SecurityLevel
	if level == "" {
		level = SecurityLevelStandard
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	vm := goja.New()
	if err := applySandbox(vm, level); err != nil {
		return nil, sdkerrors.NewError(sdkerrors.CodeScriptFailure, "failed to apply sandbox", err)
	}

	val, err := vm.RunString(config.Script)
	if err != nil {
		return nil, sdkerrors.NewError(sdkerrors.CodeScriptFailure, "failed to compile script", err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, sdkerrors.InvalidArgument("script must evaluate to a function", sdkerrors.ErrScriptNotCallable)
	}

	return &Step{
		vm:      vm,
		fn:      fn,
		logger:  logger,
		onError: config.OnError,
	}, nil
}

// Func returns the step as a sequence.StepFunc. The continuation handed to
// the script honors the usual rules: stale and duplicate calls are no-ops.
func (s *Step) Func() sequence.StepFunc[any] {
	return func(index int, value any, cont *sequence.Continuation[any]) {
		advance := s.continuationValue(cont)

		if _, err := s.fn(goja.Undefined(), s.vm.ToValue(index), s.vm.ToValue(value), advance); err != nil {
			if s.onError != nil {
				s.onError(index, err)
				return
			}
			s.logger.Error("script failed, aborting walk",
				zap.Int("index", index),
				zap.Error(err))
			cont.Abort()
		}
	}
}

// continuationValue builds the advance function object, with abort attached
// as a property, for a single step invocation.
func (s *Step) continuationValue(cont *sequence.Continuation[any]) goja.Value {
	advance := s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || goja.IsUndefined(call.Argument(0)) {
			cont.Advance()
		} else {
			cont.AdvanceWith(call.Argument(0).Export())
		}
		return goja.Undefined()
	})

	abort := s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || goja.IsUndefined(call.Argument(0)) {
			cont.Abort()
		} else {
			cont.AbortWith(call.Argument(0).Export())
		}
		return goja.Undefined()
	})

	obj := advance.(*goja.Object)
	_ = obj.Set("abort", abort)
	return obj
}
