package jsstep

import "go.uber.org/zap"

// SecurityLevel defines the security restrictions for JavaScript execution
const (
	SecurityLevelStrict     = "strict"
	SecurityLevelStandard   = "standard"
	SecurityLevelPermissive = "permissive"
)

// Config represents the configuration for a JavaScript step
type Config struct {
	// Script is JavaScript source that must evaluate to a function with the
	// signature (index, value, advance). advance is callable and carries an
	// `abort` property; both accept an optional replacement value.
	Script string

	// SecurityLevel defines sandbox restrictions (strict, standard, permissive).
	// Defaults to standard.
	SecurityLevel string

	// Logger is the zap logger for script errors (optional, no-op if nil)
	Logger *zap.Logger

	// OnError is invoked when the script throws. If nil, the error is logged
	// and the run is aborted without a replacement value.
	OnError func(index int, err error)
}
