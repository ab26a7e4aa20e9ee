// Package modules provides the lifecycle registry for the updater's
// components. Modules load in priority order and shut down in reverse.
package modules

import (
	"fmt"
	"sync"

	"github.com/corrreia/ccupdater/internal/shared"
)

// ModuleState represents the state of a module
type ModuleState int

const (
	ModuleStateUnloaded ModuleState = iota
	ModuleStateLoading
	ModuleStateLoaded
	ModuleStateUnloading
	ModuleStateFailed
)

// String returns the string representation of the module state
func (s ModuleState) String() string {
	switch s {
	case ModuleStateUnloaded:
		return "Unloaded"
	case ModuleStateLoading:
		return "Loading"
	case ModuleStateLoaded:
		return "Loaded"
	case ModuleStateUnloading:
		return "Unloading"
	case ModuleStateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Module is the interface that components must implement
type Module interface {
	// Name returns the module's display name
	Name() string

	// Version returns the module's version string
	Version() string

	// Priority returns the module's load priority (lower loads first)
	Priority() int

	// Init initializes the module
	Init() error

	// Shutdown shuts down the module
	Shutdown() error
}

// ModuleInfo contains module metadata for external use
type ModuleInfo struct {
	Name     string
	Version  string
	Priority int
	State    string
	Error    string
}

// moduleEntry holds a registered module
type moduleEntry struct {
	module Module
	state  ModuleState
	err    error
}

// Registry owns a set of modules.
type Registry struct {
	mu          sync.RWMutex
	entries     []*moduleEntry
	initialized bool
	log         shared.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{log: shared.NewLogger("Modules")}
}

// Register adds a module in priority order. Modules with equal priority keep
// registration order.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &moduleEntry{
		module: m,
		state:  ModuleStateUnloaded,
	}

	for i, e := range r.entries {
		if m.Priority() < e.module.Priority() {
			r.entries = append(r.entries[:i], append([]*moduleEntry{entry}, r.entries[i:]...)...)
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// Init initializes all registered modules. A module that fails or panics is
// marked Failed and the rest still load. The first failure is returned.
func (r *Registry) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	r.log.Debug("Initializing %d module(s)", len(r.entries))

	var firstErr error
	for _, entry := range r.entries {
		if entry.state == ModuleStateLoaded {
			continue
		}

		entry.state = ModuleStateLoading
		r.log.Debug("Loading module: %s v%s", entry.module.Name(), entry.module.Version())

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					entry.state = ModuleStateFailed
					entry.err = fmt.Errorf("panic during init: %v", rec)
				}
			}()

			if err := entry.module.Init(); err != nil {
				entry.state = ModuleStateFailed
				entry.err = err
				return
			}
			entry.state = ModuleStateLoaded
			entry.err = nil
		}()

		if entry.state == ModuleStateFailed {
			r.log.Error("Module %s failed to load: %v", entry.module.Name(), entry.err)
			if firstErr == nil {
				firstErr = fmt.Errorf("module %s: %w", entry.module.Name(), entry.err)
			}
		}
	}

	r.initialized = true
	r.log.Debug("Modules initialized: %d loaded", r.loadedCountLocked())
	return firstErr
}

// Shutdown shuts down all loaded modules in reverse order
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return
	}

	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.state != ModuleStateLoaded {
			entry.state = ModuleStateUnloaded
			continue
		}

		entry.state = ModuleStateUnloading
		r.log.Debug("Shutting down module: %s", entry.module.Name())

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("Module %s panicked during shutdown: %v", entry.module.Name(), rec)
				}
			}()

			if err := entry.module.Shutdown(); err != nil {
				r.log.Error("Module %s failed to shutdown cleanly: %v", entry.module.Name(), err)
			}
		}()

		entry.state = ModuleStateUnloaded
	}

	r.initialized = false
}

// All returns information about all registered modules
func (r *Registry) All() []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ModuleInfo, len(r.entries))
	for i, entry := range r.entries {
		result[i] = ModuleInfo{
			Name:     entry.module.Name(),
			Version:  entry.module.Version(),
			Priority: entry.module.Priority(),
			State:    entry.state.String(),
		}
		if entry.err != nil {
			result[i].Error = entry.err.Error()
		}
	}
	return result
}

// LoadedCount returns the number of loaded modules
func (r *Registry) LoadedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedCountLocked()
}

func (r *Registry) loadedCountLocked() int {
	count := 0
	for _, entry := range r.entries {
		if entry.state == ModuleStateLoaded {
			count++
		}
	}
	return count
}
