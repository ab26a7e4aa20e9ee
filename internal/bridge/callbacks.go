// Package bridge provides the CGO bridge between the native host shim and
// the Go updater.
// This file contains Go functions that call back into the host via the
// registered callbacks.
package bridge

/*
#cgo CFLAGS: -I../../native/include
#include "ccupdater_abi.h"
#include <stdlib.h>

static inline void call_log(ccu_callbacks_t* cb, int32_t level, const char* tag, const char* msg) {
    if (cb && cb->log) {
        cb->log(level, tag, msg);
    }
}

static inline void call_chat_add(ccu_callbacks_t* cb, const char* msg) {
    if (cb && cb->chat_add) {
        cb->chat_add(msg);
    }
}

static inline void call_chat_add_of(ccu_callbacks_t* cb, const char* msg, int32_t msg_type) {
    if (cb && cb->chat_add_of) {
        cb->chat_add_of(msg, msg_type);
    }
}
*/
import "C"
import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/corrreia/ccupdater/internal/shared"
)

var callbacks atomic.Pointer[C.ccu_callbacks_t]

// ============================================================
// Logging
// ============================================================

// Log sends a message to the host logger
func Log(level int, tag, message string) {
	cb := callbacks.Load()
	if cb == nil {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", tag, message)
		return
	}

	cTag := C.CString(tag)
	cMsg := C.CString(message)
	defer C.free(unsafe.Pointer(cTag))
	defer C.free(unsafe.Pointer(cMsg))

	C.call_log(cb, C.int32_t(level), cTag, cMsg)
}

// hostLogLevel maps shared levels onto ccu_log_level_t.
func hostLogLevel(level shared.LogLevel) int {
	switch level {
	case shared.LevelDebug:
		return LogLevelDebug
	case shared.LevelWarning:
		return LogLevelWarning
	case shared.LevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func forwardLog(level shared.LogLevel, tag, message string) {
	Log(hostLogLevel(level), tag, message)
}

// ============================================================
// Chat
// ============================================================

// ChatAdd appends a line to the host chat. Main thread only.
func ChatAdd(message string) {
	cb := callbacks.Load()
	if cb == nil {
		return
	}

	cMsg := C.CString(message)
	defer C.free(unsafe.Pointer(cMsg))

	C.call_chat_add(cb, cMsg)
}

// ChatAddOf writes message to the host chat slot msgType. Main thread only.
func ChatAddOf(message string, msgType int) {
	cb := callbacks.Load()
	if cb == nil {
		return
	}

	cMsg := C.CString(message)
	defer C.free(unsafe.Pointer(cMsg))

	C.call_chat_add_of(cb, cMsg, C.int32_t(msgType))
}

// hostOutput routes user notices to the host chat.
type hostOutput struct{}

func (hostOutput) Print(message string) {
	ChatAdd(message)
}

func (hostOutput) Status(message string) {
	ChatAddOf(message, MsgTypeClientStatus2)
}
