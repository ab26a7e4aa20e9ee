// Package shared provides the host-facing types and logging shared by the
// bridge, runtime, and updater packages without import cycles.
package shared

import "sync"

// Output is the host's user-visible message surface. Implementations must
// only be called from the host main thread.
type Output interface {
	// Print appends a line to the host's chat.
	Print(message string)
	// Status shows a message in the host's client status area.
	Status(message string)
}

// OutputFuncs adapts plain functions to Output. Nil fields are ignored.
type OutputFuncs struct {
	PrintFunc  func(message string)
	StatusFunc func(message string)
}

// Print implements Output.
func (o OutputFuncs) Print(message string) {
	if o.PrintFunc != nil {
		o.PrintFunc(message)
	}
}

// Status implements Output.
func (o OutputFuncs) Status(message string) {
	if o.StatusFunc != nil {
		o.StatusFunc(message)
	}
}

// Discard is an Output that drops every message.
var Discard Output = OutputFuncs{}

// RecordingOutput keeps every message it receives. Used by the CLI and tests.
type RecordingOutput struct {
	mu       sync.Mutex
	printed  []string
	statuses []string
}

// Print implements Output.
func (r *RecordingOutput) Print(message string) {
	r.mu.Lock()
	r.printed = append(r.printed, message)
	r.mu.Unlock()
}

// Status implements Output.
func (r *RecordingOutput) Status(message string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, message)
	r.mu.Unlock()
}

// Printed returns a copy of the chat lines received so far.
func (r *RecordingOutput) Printed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.printed...)
}

// Statuses returns a copy of the status messages received so far.
func (r *RecordingOutput) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}
