// Package plugin holds the process-wide updater context driven by the host
// lifecycle hooks.
package plugin

import (
	"errors"
	"fmt"
	"net/http"
	goruntime "runtime"
	"sync"

	"github.com/corrreia/ccupdater/internal/config"
	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/modules"
	"github.com/corrreia/ccupdater/internal/modules/database"
	"github.com/corrreia/ccupdater/internal/runtime"
	"github.com/corrreia/ccupdater/internal/shared"
	"github.com/corrreia/ccupdater/internal/updater"
)

var (
	// ErrNotInitialized is returned by operations that need Init first.
	ErrNotInitialized = errors.New("plugin not initialized")
	// ErrAlreadyInitialized is returned by Init until Shutdown has run.
	ErrAlreadyInitialized = errors.New("plugin already initialized")
)

// Option configures a Context.
type Option func(*Context)

// WithConfig uses cfg instead of loading one.
func WithConfig(cfg *config.Config) Option {
	return func(c *Context) {
		c.cfg = cfg
	}
}

// WithConfigOptions passes opts to config.Load.
func WithConfigOptions(opts ...config.Option) Option {
	return func(c *Context) {
		c.configOpts = append(c.configOpts, opts...)
	}
}

// WithOutput sets the host output used for user notices.
func WithOutput(out shared.Output) Option {
	return func(c *Context) {
		if out != nil {
			c.output = out
		}
	}
}

// WithPlatform overrides the GOOS/GOARCH used to pick artifact paths.
func WithPlatform(goos, goarch string) Option {
	return func(c *Context) {
		c.goos = goos
		c.goarch = goarch
	}
}

// WithHTTPClient sets the client used for registry queries and downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Context) {
		c.httpClient = client
	}
}

// Context is the updater state for one host session. The host calls Init
// once, the hook methods from its main thread, and Shutdown on unload.
type Context struct {
	mu          sync.Mutex
	initialized bool
	initErr     error

	cfg        *config.Config
	configOpts []config.Option
	output     shared.Output
	goos       string
	goarch     string
	httpClient *http.Client
	log        shared.Logger

	manager  *runtime.Manager
	hooks    *runtime.Hooks
	registry *modules.Registry
	updater  *updaterModule
}

// New creates an uninitialized context.
func New(opts ...Option) *Context {
	c := &Context{
		output: shared.Discard,
		goos:   goruntime.GOOS,
		goarch: goruntime.GOARCH,
		log:    shared.NewLogger("CCUpdater"),
		hooks:  &runtime.Hooks{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init loads configuration, starts the Async Bridge, and spawns the update
// run. Only an Async Bridge failure is returned. A configuration or module
// failure is logged, kept for Err, and leaves the context initialized with
// updates disabled. Init returns ErrAlreadyInitialized until Shutdown runs.
func (c *Context) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return ErrAlreadyInitialized
	}
	c.initErr = nil

	cfg := c.cfg
	if cfg == nil {
		loaded, err := config.Load(c.configOpts...)
		if err != nil {
			c.initErr = appErrors.New(appErrors.CodeConfiguration, "load config", err)
			c.log.Error("Updates disabled: %v", c.initErr)
		} else {
			cfg = loaded
			c.cfg = cfg
		}
	}

	grace := runtime.DefaultShutdownGrace
	if cfg != nil {
		grace = cfg.ShutdownGrace
		shared.SetDebug(cfg.Debug)
		if cfg.File != "" {
			c.log.Debug("Loaded config from %s", cfg.File)
		}
	}

	c.manager = runtime.NewManager(runtime.WithShutdownGrace(grace))
	c.registry = modules.NewRegistry()
	c.registry.Register(&asyncModule{manager: c.manager})

	c.updater = nil
	switch {
	case cfg == nil:
	case !cfg.Enabled:
		c.log.Info("Updates disabled by config")
	default:
		var db *database.Module
		if cfg.Markers.Driver == config.MarkersDriverSQLite {
			db = NewDatabaseModule(cfg)
			c.registry.Register(db)
		}
		c.updater = &updaterModule{c: c, db: db, log: shared.NewLogger("Updater")}
		c.registry.Register(c.updater)
	}

	if err := c.registry.Init(); err != nil {
		if !c.manager.Running() {
			c.registry.Shutdown()
			return fmt.Errorf("init async bridge: %w", err)
		}
		c.log.Error("%v", err)
		if c.initErr == nil {
			c.initErr = err
		}
	}

	manager := c.manager
	c.hooks.Clear()
	c.hooks.OnTick(func(float64) { manager.Pump() })
	c.hooks.OnNewMapLoaded(func() {
		c.log.Debug("New map loaded")
		manager.Pump()
	})
	c.hooks.OnNewMap(func() { c.log.Debug("New map") })
	c.hooks.OnReset(func() { c.log.Debug("Reset") })

	c.initialized = true
	c.log.Info("Initialized (%d modules)", c.registry.LoadedCount())
	return nil
}

// Shutdown stops background work and releases every module. Pending
// main-thread callbacks are dropped without running.
func (c *Context) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}
	c.hooks.Clear()
	c.registry.Shutdown()
	c.initialized = false
	c.log.Info("Shut down")
}

// Err returns the non-fatal failure recorded by the last Init, if any.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErr
}

// Initialized reports whether Init succeeded and Shutdown has not run.
func (c *Context) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Tick pumps the Async Bridge from the host's scheduled tick.
func (c *Context) Tick(deltaTime float64) {
	c.hooks.DispatchTick(deltaTime)
}

// Reset handles the host reset hook.
func (c *Context) Reset() {
	c.hooks.DispatchReset()
}

// NewMap handles the host new-map hook.
func (c *Context) NewMap() {
	c.hooks.DispatchNewMap()
}

// NewMapLoaded handles the host new-map-loaded hook and pumps the bridge.
func (c *Context) NewMapLoaded() {
	c.hooks.DispatchNewMapLoaded()
}

// Manager returns the Async Bridge, or nil before Init.
func (c *Context) Manager() *runtime.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manager
}

// Config returns the active configuration, or nil before Init or when it
// failed to load.
func (c *Context) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Modules lists the registered modules and their states.
func (c *Context) Modules() []modules.ModuleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry == nil {
		return nil
	}
	return c.registry.All()
}

// Results returns the per-group results of the update run so far.
func (c *Context) Results() ([]updater.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if c.updater == nil || c.updater.orchestrator == nil {
		return nil, nil
	}
	return c.updater.orchestrator.Results(), nil
}
