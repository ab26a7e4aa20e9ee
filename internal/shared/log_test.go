package shared

import (
	"bytes"
	"strings"
	"testing"
)

type captured struct {
	level   LogLevel
	tag     string
	message string
}

func withCallback(t *testing.T) *[]captured {
	t.Helper()
	var got []captured
	SetLogCallback(func(level LogLevel, tag, message string) {
		got = append(got, captured{level, tag, message})
	})
	t.Cleanup(func() {
		SetLogCallback(nil)
		SetDebug(false)
	})
	return &got
}

func TestLogRoutesToCallback(t *testing.T) {
	got := withCallback(t)

	LogInfo("Updater", "checking %s/%s", "SpiralP", "classicube-cef-plugin")
	LogError("Installer", "failed: %v", "boom")

	if len(*got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(*got))
	}
	if (*got)[0].level != LevelInfo || (*got)[0].tag != "Updater" {
		t.Errorf("unexpected first message: %+v", (*got)[0])
	}
	if (*got)[0].message != "checking SpiralP/classicube-cef-plugin" {
		t.Errorf("unexpected formatting: %q", (*got)[0].message)
	}
	if (*got)[1].level != LevelError {
		t.Errorf("expected error level, got %v", (*got)[1].level)
	}
}

func TestDebugFiltered(t *testing.T) {
	got := withCallback(t)

	LogDebug("Bridge", "pumped %d", 3)
	if len(*got) != 0 {
		t.Fatalf("debug message emitted while debug disabled")
	}

	SetDebug(true)
	NewLogger("Bridge").Debug("pumped %d", 3)
	if len(*got) != 1 {
		t.Fatalf("expected debug message once enabled, got %d", len(*got))
	}
}

func TestFallbackOutput(t *testing.T) {
	var buf bytes.Buffer
	SetFallbackOutput(&buf)
	t.Cleanup(func() { SetFallbackOutput(nil) })

	NewLogger("Marker").Warn("marker %s unreadable", "Cef")

	out := buf.String()
	if !strings.Contains(out, "marker Cef unreadable") {
		t.Errorf("fallback output missing message: %q", out)
	}
	if !strings.Contains(out, "Marker") {
		t.Errorf("fallback output missing tag: %q", out)
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		LevelDebug:   "debug",
		LevelInfo:    "info",
		LevelWarning: "warning",
		LevelError:   "error",
		LogLevel(9):  "level(9)",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(level), got, want)
		}
	}
}

func TestRecordingOutput(t *testing.T) {
	var out RecordingOutput
	out.Print("hello")
	out.Status("done")

	if p := out.Printed(); len(p) != 1 || p[0] != "hello" {
		t.Errorf("Printed() = %v", p)
	}
	if s := out.Statuses(); len(s) != 1 || s[0] != "done" {
		t.Errorf("Statuses() = %v", s)
	}
}
