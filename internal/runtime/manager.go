// Package runtime provides the asynchronous execution bridge between the
// host's single-threaded main loop and background work.
// This file contains the task manager and the main-thread callback queue.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/shared"
)

var (
	// ErrAlreadyInitialized is returned by Initialize on a running manager.
	ErrAlreadyInitialized = errors.New("runtime: manager already initialized")
	// ErrNotInitialized is returned by Spawn before Initialize or after Shutdown.
	ErrNotInitialized = errors.New("runtime: manager not initialized")
	// ErrShutdown resolves main-thread requests that never ran because the
	// manager shut down first.
	ErrShutdown = errors.New("runtime: manager shut down")
	// ErrCallbackPanicked is returned to the waiter of a callback that panicked.
	ErrCallbackPanicked = errors.New("runtime: main-thread callback panicked")
)

// DefaultShutdownGrace bounds how long Shutdown waits for running tasks.
const DefaultShutdownGrace = 10 * time.Second

// Task is a unit of background work. It must return promptly once ctx is done.
type Task func(ctx context.Context) error

// Option configures a Manager.
type Option func(*Manager)

// WithShutdownGrace sets how long Shutdown waits for in-flight tasks.
func WithShutdownGrace(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.grace = d
		}
	}
}

// WithLogger sets the logger used for task and callback failures.
func WithLogger(l shared.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// Request states. A request is claimed exactly once, either by Pump
// (pending to running) or by its waiter (pending to abandoned).
const (
	statePending int32 = iota
	stateRunning
	stateAbandoned
)

// request is a callback waiting for the main thread.
type request struct {
	fn    func() error
	done  chan error
	state atomic.Int32
}

// shutdownError wraps ErrShutdown with CodeShutdown so callers can match
// either errors.Is(err, ErrShutdown) or appErrors.IsCode.
func shutdownError() error {
	return appErrors.New(appErrors.CodeShutdown, "main-thread callback dropped", ErrShutdown)
}

// Manager runs background tasks and marshals callbacks onto the host main
// thread. The main thread drives it by calling Pump.
type Manager struct {
	grace time.Duration
	log   shared.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   *sync.WaitGroup
	active  map[string]string
	queue   []*request
}

// NewManager creates a manager in the uninitialized state.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		grace: DefaultShutdownGrace,
		log:   shared.NewLogger("Async"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize creates the background execution context. It may be called
// again after Shutdown.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyInitialized
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.tasks = &sync.WaitGroup{}
	m.active = make(map[string]string)
	m.queue = nil
	m.running = true

	m.log.Debug("Initialized")
	return nil
}

// Running reports whether the manager accepts work.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Spawn starts task in the background and returns immediately.
// Failures and panics are logged; they never reach the host.
func (m *Manager) Spawn(name string, task Task) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	id := uuid.NewString()
	ctx, wg := m.ctx, m.tasks
	m.active[id] = name
	wg.Add(1)
	m.mu.Unlock()

	m.log.Debug("Spawned task %s (%s)", name, id)

	go func() {
		defer wg.Done()
		defer m.forget(id)

		err := SafeCallWithError("task "+name, func() error {
			return task(ctx)
		})
		switch {
		case err == nil:
			m.log.Debug("Task %s finished", name)
		case errors.Is(err, context.Canceled), errors.Is(err, ErrShutdown):
			m.log.Debug("Task %s stopped: %v", name, err)
		default:
			m.log.Error("Task %s (%s) failed: %v", name, id, err)
		}
	}()
	return nil
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// ActiveTasks returns the names of tasks that have not returned yet.
func (m *Manager) ActiveTasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.active))
	for _, name := range m.active {
		names = append(names, name)
	}
	return names
}

// RunOnMainThread queues fn for the next Pump and blocks the calling
// background task until fn has run. It returns fn's error, ErrShutdown
// (coded CodeShutdown) if the manager shut down before fn ran, or ctx.Err()
// if ctx ended before Pump picked fn up, in which case fn is skipped. Once fn
// has started, the waiter always receives its result. It must not be called from the main thread.
func (m *Manager) RunOnMainThread(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req := &request{fn: fn, done: make(chan error, 1)}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return shutdownError()
	}
	m.queue = append(m.queue, req)
	m.mu.Unlock()

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		if req.state.CompareAndSwap(statePending, stateAbandoned) {
			return ctx.Err()
		}
		return <-req.done
	}
}

// Pending returns the number of queued main-thread callbacks.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Pump runs every callback queued before the call, in FIFO order, on the
// calling thread. Callbacks queued while pumping wait for the next Pump.
// It returns the number of callbacks executed.
func (m *Manager) Pump() int {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	executed := 0
	for _, req := range batch {
		if !req.state.CompareAndSwap(statePending, stateRunning) {
			continue
		}

		err := SafeCallWithError("main-thread callback", req.fn)
		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			err = fmt.Errorf("%w: %v", ErrCallbackPanicked, panicErr.Value)
		}
		if err != nil {
			m.log.Warn("Main-thread callback failed: %v", err)
		}

		req.done <- err
		executed++
	}
	return executed
}

// Shutdown stops accepting work, resolves queued callbacks with ErrShutdown
// without running them, cancels the background context, and waits up to the
// grace period for tasks to return. It is safe to call more than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	pending := m.queue
	m.queue = nil
	cancel, wg := m.cancel, m.tasks
	m.mu.Unlock()

	for _, req := range pending {
		req.done <- shutdownError()
	}
	cancel()

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.log.Debug("Shut down, %d pending callback(s) dropped", len(pending))
	case <-time.After(m.grace):
		m.log.Warn("Shutdown grace period %s elapsed with tasks still running: %v", m.grace, m.ActiveTasks())
	}
}
