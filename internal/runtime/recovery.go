// Package runtime provides the asynchronous execution bridge between the
// host's single-threaded main loop and background work.
// This file contains panic recovery utilities.
package runtime

import (
	"fmt"
	"runtime/debug"

	"github.com/corrreia/ccupdater/internal/shared"
)

// logPanic can be replaced by the bridge to route panics to the host console.
var logPanic func(context string, panicVal interface{}, stack string)

// SetPanicLogger sets the panic logging function
func SetPanicLogger(fn func(context string, panicVal interface{}, stack string)) {
	logPanic = fn
}

func logPanicError(context string, panicVal interface{}, stack string) {
	if logPanic != nil {
		logPanic(context, panicVal, stack)
		return
	}
	shared.LogError("Panic", "%s: %v\n%s", context, panicVal, stack)
}

// PanicError is returned by SafeCallWithError when the wrapped function panicked.
type PanicError struct {
	Context string
	Value   interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Context, e.Value)
}

// SafeCall calls a function with panic recovery
// Returns true if the function completed without panicking
func SafeCall(context string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logPanicError(context, r, string(debug.Stack()))
			ok = false
		}
	}()
	fn()
	return true
}

// SafeCallWithError calls a function with panic recovery.
// A panic is logged and returned as a *PanicError.
func SafeCallWithError(context string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanicError(context, r, string(debug.Stack()))
			err = &PanicError{Context: context, Value: r}
		}
	}()
	return fn()
}
