package main

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/corrreia/ccupdater/internal/config"
	"github.com/corrreia/ccupdater/internal/marker"
	"github.com/corrreia/ccupdater/internal/modules/database"
	"github.com/corrreia/ccupdater/internal/plugin"
	"github.com/corrreia/ccupdater/internal/shared"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	rootDir    string
	goos       string
	goarch     string
	debug      bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "ccupdate",
		Short: "Check and install ClassiCube plugin updates",
		Long: TitleStyle.Render("ccupdate") + SubtitleStyle.Render(" - ClassiCube plugin updater") + `

Runs the same update cycle as the in-game plugin from the command line.
Paths are resolved against the game directory (--root).`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default: search plugins/ccupdater, plugins, then the game directory)")
	pf.StringVar(&flags.rootDir, "root", "", "game directory (default \".\")")
	pf.StringVar(&flags.goos, "os", goruntime.GOOS, "target operating system for artifact paths")
	pf.StringVar(&flags.goarch, "arch", goruntime.GOARCH, "target architecture for artifact paths")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newRunCommand(flags),
		newCheckCommand(flags),
		newMarkersCommand(flags),
	)
	return cmd
}

// loadConfig resolves configuration from the global flags.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var opts []config.Option
	if f.rootDir != "" {
		opts = append(opts, config.WithRootDir(f.rootDir))
	}
	if f.configFile != "" {
		opts = append(opts, config.WithFile(f.configFile))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if f.debug {
		cfg.Debug = true
	}
	shared.SetDebug(cfg.Debug)
	return cfg, nil
}

// openStore opens the configured marker store. The returned close function
// is never nil.
func openStore(cfg *config.Config) (marker.Store, func(), error) {
	var db *database.Module
	closeFn := func() {}

	if cfg.Markers.Driver == config.MarkersDriverSQLite {
		db = plugin.NewDatabaseModule(cfg)
		if err := db.Init(); err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { _ = db.Shutdown() }
	}

	store, err := plugin.NewStore(cfg, db)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return store, closeFn, nil
}
