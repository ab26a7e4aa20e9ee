package shared

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// LogLevel mirrors the host ABI log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the lowercase level name.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// LogCallback receives formatted log lines. The bridge installs one that
// forwards to the host console.
type LogCallback func(level LogLevel, tag, message string)

var (
	logMu        sync.RWMutex
	logCallback  LogCallback
	debugEnabled bool
	fallback     = newFallback(os.Stderr)
)

func newFallback(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "ccupdater",
		ReportTimestamp: true,
	})
	l.SetLevel(log.DebugLevel)
	return l
}

// SetLogCallback routes log output to cb. Passing nil restores the stderr logger.
func SetLogCallback(cb LogCallback) {
	logMu.Lock()
	logCallback = cb
	logMu.Unlock()
}

// SetFallbackOutput redirects the logger used when no callback is installed.
// A nil writer restores stderr.
func SetFallbackOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logMu.Lock()
	fallback = newFallback(w)
	logMu.Unlock()
}

// SetDebug enables or disables debug-level messages.
func SetDebug(enabled bool) {
	logMu.Lock()
	debugEnabled = enabled
	logMu.Unlock()
}

// Log writes a tagged message at the given level.
func Log(level LogLevel, tag, message string) {
	logMu.RLock()
	cb, dbg, fb := logCallback, debugEnabled, fallback
	logMu.RUnlock()

	if level == LevelDebug && !dbg {
		return
	}
	if cb != nil {
		cb(level, tag, message)
		return
	}

	l := fb.WithPrefix(tag)
	switch level {
	case LevelDebug:
		l.Debug(message)
	case LevelInfo:
		l.Info(message)
	case LevelWarning:
		l.Warn(message)
	default:
		l.Error(message)
	}
}

// LogDebug logs a debug message
func LogDebug(tag, format string, args ...interface{}) {
	Log(LevelDebug, tag, fmt.Sprintf(format, args...))
}

// LogInfo logs an info message
func LogInfo(tag, format string, args ...interface{}) {
	Log(LevelInfo, tag, fmt.Sprintf(format, args...))
}

// LogWarning logs a warning message
func LogWarning(tag, format string, args ...interface{}) {
	Log(LevelWarning, tag, fmt.Sprintf(format, args...))
}

// LogError logs an error message
func LogError(tag, format string, args ...interface{}) {
	Log(LevelError, tag, fmt.Sprintf(format, args...))
}

// Logger is a tag-bound handle onto the package logging functions.
type Logger struct {
	tag string
}

// NewLogger returns a Logger that prefixes every message with tag.
func NewLogger(tag string) Logger {
	return Logger{tag: tag}
}

func (l Logger) Debug(format string, args ...interface{}) { LogDebug(l.tag, format, args...) }
func (l Logger) Info(format string, args ...interface{})  { LogInfo(l.tag, format, args...) }
func (l Logger) Warn(format string, args ...interface{})  { LogWarning(l.tag, format, args...) }
func (l Logger) Error(format string, args ...interface{}) { LogError(l.tag, format, args...) }
