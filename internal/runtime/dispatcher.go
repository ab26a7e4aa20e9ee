// Package runtime provides the asynchronous execution bridge between the
// host's single-threaded main loop and background work.
// This file contains host hook dispatch.
package runtime

import "sync"

// TickHandler runs on every host tick.
type TickHandler func(deltaTime float64)

// Hooks holds the handlers invoked from host lifecycle callbacks. Dispatch
// happens on the host main thread; each handler is panic isolated.
type Hooks struct {
	mu           sync.RWMutex
	tick         []TickHandler
	reset        []func()
	newMap       []func()
	newMapLoaded []func()
}

// ============================================================
// Registration
// ============================================================

// OnTick adds a tick handler
func (h *Hooks) OnTick(handler TickHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick = append(h.tick, handler)
}

// OnReset adds a handler for the host's reset callback
func (h *Hooks) OnReset(handler func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reset = append(h.reset, handler)
}

// OnNewMap adds a handler for the host's new-map callback
func (h *Hooks) OnNewMap(handler func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.newMap = append(h.newMap, handler)
}

// OnNewMapLoaded adds a handler for the host's new-map-loaded callback
func (h *Hooks) OnNewMapLoaded(handler func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.newMapLoaded = append(h.newMapLoaded, handler)
}

// Clear removes every handler.
func (h *Hooks) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick, h.reset, h.newMap, h.newMapLoaded = nil, nil, nil, nil
}

// ============================================================
// Dispatching
// ============================================================

// DispatchTick is called every host tick
func (h *Hooks) DispatchTick(deltaTime float64) {
	h.mu.RLock()
	handlers := h.tick
	h.mu.RUnlock()

	for _, handler := range handlers {
		SafeCall("tick handler", func() { handler(deltaTime) })
	}
}

// DispatchReset is called when the host resets its state
func (h *Hooks) DispatchReset() {
	dispatch(&h.mu, &h.reset, "reset handler")
}

// DispatchNewMap is called when the host starts loading a map
func (h *Hooks) DispatchNewMap() {
	dispatch(&h.mu, &h.newMap, "new-map handler")
}

// DispatchNewMapLoaded is called once the host finished loading a map
func (h *Hooks) DispatchNewMapLoaded() {
	dispatch(&h.mu, &h.newMapLoaded, "new-map-loaded handler")
}

func dispatch(mu *sync.RWMutex, list *[]func(), context string) {
	mu.RLock()
	handlers := *list
	mu.RUnlock()

	for _, handler := range handlers {
		SafeCall(context, handler)
	}
}
