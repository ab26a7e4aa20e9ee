// Package bridge provides the CGO bridge between the native host shim and
// the Go updater.
// This file contains all functions exported to the host via CGO.
package bridge

/*
#cgo CFLAGS: -I../../native/include
#include "ccupdater_abi.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/corrreia/ccupdater/internal/plugin"
	"github.com/corrreia/ccupdater/internal/runtime"
	"github.com/corrreia/ccupdater/internal/shared"
)

// ============================================================
// Global State
// ============================================================

// C exports cannot carry a Go handle, so the bridge keeps exactly one.
var (
	initMu      sync.Mutex
	ctx         *plugin.Context
	lastError   string
	lastErrorMu sync.Mutex
)

// ============================================================
// Error Handling
// ============================================================

// setLastError stores an error message for later retrieval by the host
func setLastError(format string, args ...interface{}) {
	lastErrorMu.Lock()
	lastError = fmt.Sprintf(format, args...)
	lastErrorMu.Unlock()
}

// clearLastError clears the last error
func clearLastError() {
	lastErrorMu.Lock()
	lastError = ""
	lastErrorMu.Unlock()
}

// safeCall wraps a function with panic recovery.
// Returns CCU_OK on success, CCU_ERR_PANIC if a panic occurred.
func safeCall(fn func()) (err C.ccu_error_t) {
	defer func() {
		if r := recover(); r != nil {
			setLastError("panic: %v\n%s", r, debug.Stack())
			err = C.CCU_ERR_PANIC
			Log(LogLevelError, "PANIC", fmt.Sprintf("Recovered from panic: %v", r))
		}
	}()
	fn()
	return C.CCU_OK
}

// current returns the live context, or nil before init and after free.
func current() *plugin.Context {
	initMu.Lock()
	defer initMu.Unlock()
	return ctx
}

// ============================================================
// Exported Functions (called by the host shim)
// ============================================================

//export CCUpdater_Init
func CCUpdater_Init() C.ccu_error_t {
	initMu.Lock()
	defer initMu.Unlock()

	if ctx != nil {
		setLastError("init: %v", plugin.ErrAlreadyInitialized)
		return C.CCU_ERR_ALREADY_INITIALIZED
	}

	result := C.ccu_error_t(C.CCU_OK)
	err := safeCall(func() {
		runtime.SetPanicLogger(func(context string, panicVal interface{}, stack string) {
			Log(LogLevelError, "PANIC", fmt.Sprintf("Panic in %s: %v\n%s", context, panicVal, stack))
		})

		c := plugin.New(plugin.WithOutput(hostOutput{}))
		if err := c.Init(); err != nil {
			setLastError("init: %v", err)
			Log(LogLevelError, "CCUpdater", fmt.Sprintf("Initialization failed: %v", err))
			result = C.CCU_ERR_INIT
			return
		}
		if err := c.Err(); err != nil {
			setLastError("init: %v", err)
		}
		ctx = c
	})
	if err != C.CCU_OK {
		return err
	}
	return result
}

//export CCUpdater_Free
func CCUpdater_Free() {
	initMu.Lock()
	defer initMu.Unlock()

	if ctx == nil {
		return
	}

	_ = safeCall(func() {
		ctx.Shutdown()
	})
	ctx = nil
}

//export CCUpdater_Reset
func CCUpdater_Reset() {
	if c := current(); c != nil {
		_ = safeCall(c.Reset)
	}
}

//export CCUpdater_OnNewMap
func CCUpdater_OnNewMap() {
	if c := current(); c != nil {
		_ = safeCall(c.NewMap)
	}
}

//export CCUpdater_OnNewMapLoaded
func CCUpdater_OnNewMapLoaded() {
	if c := current(); c != nil {
		_ = safeCall(c.NewMapLoaded)
	}
}

//export CCUpdater_Tick
func CCUpdater_Tick(deltaTime C.double) {
	if c := current(); c != nil {
		_ = safeCall(func() {
			c.Tick(float64(deltaTime))
		})
	}
}

//export CCUpdater_RegisterCallbacks
func CCUpdater_RegisterCallbacks(cb *C.ccu_callbacks_t) {
	callbacks.Store(cb)
	if cb == nil {
		shared.SetLogCallback(nil)
		return
	}
	shared.SetLogCallback(forwardLog)
	Log(LogLevelInfo, "CCUpdater", "Host callbacks registered")
}

//export CCUpdater_GetLastError
func CCUpdater_GetLastError() *C.char {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()

	if lastError == "" {
		return nil
	}

	// Caller must free this memory
	return C.CString(lastError)
}

//export CCUpdater_ClearLastError
func CCUpdater_ClearLastError() {
	clearLastError()
}

//export CCUpdater_GetABIVersion
func CCUpdater_GetABIVersion() C.int32_t {
	return C.CCUPDATER_ABI_VERSION
}
