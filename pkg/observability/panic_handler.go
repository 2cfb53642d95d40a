package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the full stack trace.
//
// Usage in defer statements:
//
//	func worker() {
//	    defer observability.RecoverPanic(logger, "audit worker")
//	    // ... code that might panic
//	}
//
// After logging, the panic is NOT re-raised. Background workers use this so
// one bad payload cannot take the whole pipeline down.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}
