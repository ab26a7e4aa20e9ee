// Package bridge provides the CGO bridge between the native host shim and
// the Go updater.
// This file contains constants shared with the native side.
package bridge

// Log levels matching ccu_log_level_t
const (
	LogLevelDebug   = 0
	LogLevelInfo    = 1
	LogLevelWarning = 2
	LogLevelError   = 3
)

// Host chat message types matching CCU_MSG_TYPE_*
const (
	MsgTypeNormal        = 0
	MsgTypeClientStatus1 = 256
	MsgTypeClientStatus2 = 257
)
