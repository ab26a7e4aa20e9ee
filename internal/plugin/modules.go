package plugin

import (
	"context"
	"errors"

	"github.com/corrreia/ccupdater/internal/config"
	"github.com/corrreia/ccupdater/internal/modules/database"
	"github.com/corrreia/ccupdater/internal/runtime"
	"github.com/corrreia/ccupdater/internal/shared"
	"github.com/corrreia/ccupdater/internal/updater"
)

// asyncModule owns the Async Bridge. It loads first so later modules can
// spawn tasks.
type asyncModule struct {
	manager *runtime.Manager
}

func (m *asyncModule) Name() string    { return "Async" }
func (m *asyncModule) Version() string { return config.Version }
func (m *asyncModule) Priority() int   { return 10 }

func (m *asyncModule) Init() error {
	return m.manager.Initialize()
}

func (m *asyncModule) Shutdown() error {
	m.manager.Shutdown()
	return nil
}

// updaterModule builds the checkers and spawns one orchestrator run.
type updaterModule struct {
	c   *Context
	db  *database.Module
	log shared.Logger

	orchestrator *updater.Orchestrator
}

func (m *updaterModule) Name() string    { return "Updater" }
func (m *updaterModule) Version() string { return config.Version }
func (m *updaterModule) Priority() int   { return 100 }

func (m *updaterModule) Init() error {
	cfg := m.c.cfg

	store, err := NewStore(cfg, m.db)
	if err != nil {
		return err
	}

	groups, err := Groups(cfg, m.c.goos, m.c.goarch)
	if err != nil {
		return err
	}
	if b := cfg.Binary; !b.Enabled() && (b.URL != "" || b.Version != "" || b.Path != "") {
		m.log.Warn("%s skipped: binary.url, binary.version and binary.path must all be set", BinaryGroupName)
	}

	client := NewClient(cfg, m.c.httpClient)
	checkers := Checkers(groups, client, NewInstaller(cfg, client), store)
	m.orchestrator = updater.NewOrchestrator(checkers, m.c.manager, m.c.output, OrchestratorOptions(cfg)...)

	orchestrator := m.orchestrator
	log := m.log
	return m.c.manager.Spawn("update", func(ctx context.Context) error {
		changed, err := orchestrator.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Update finished with errors: %v", err)
		}
		log.Debug("Update run complete (changed=%v)", changed)
		return nil
	})
}

// Shutdown stops the background run before the store it writes to closes.
func (m *updaterModule) Shutdown() error {
	m.c.manager.Shutdown()
	return nil
}
