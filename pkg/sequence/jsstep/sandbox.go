package jsstep

import (
	"fmt"

	"github.com/dop251/goja"
)

// applySandbox removes dangerous globals from the VM and, in strict mode,
// disables eval. Permissive mode leaves the runtime untouched.
func applySandbox(vm *goja.Runtime, securityLevel string) error {
	if securityLevel == SecurityLevelPermissive {
		return nil
	}

	dangerousGlobals := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"__dirname",
		"__filename",
		"Buffer",
		"setImmediate",
		"clearImmediate",
	}
	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	if securityLevel == SecurityLevelStrict {
		restrictedEval := func(call goja.FunctionCall) goja.Value {
			panic(vm.NewGoError(fmt.Errorf("eval is not allowed in strict security mode")))
		}
		if err := vm.Set("eval", restrictedEval); err != nil {
			return fmt.Errorf("failed to restrict eval: %w", err)
		}
	}

	return nil
}
