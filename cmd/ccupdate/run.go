package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/corrreia/ccupdater/internal/chat"
	"github.com/corrreia/ccupdater/internal/config"
	"github.com/corrreia/ccupdater/internal/marker"
	"github.com/corrreia/ccupdater/internal/plugin"
	"github.com/corrreia/ccupdater/internal/runtime"
	"github.com/corrreia/ccupdater/internal/shared"
	"github.com/corrreia/ccupdater/internal/updater"
)

const defaultTickInterval = 50 * time.Millisecond

// runParams bundles the dependencies of the run command so runUpdate can be
// tested without cobra.
type runParams struct {
	stdout io.Writer
	cfg    *config.Config
	store  marker.Store
	goos   string
	goarch string
	tick   time.Duration
}

func newRunCommand(flags *globalFlags) *cobra.Command {
	var tick time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check every group and install available updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			changed, err := runUpdate(cmd.Context(), runParams{
				stdout: cmd.OutOrStdout(),
				cfg:    cfg,
				store:  store,
				goos:   flags.goos,
				goarch: flags.goarch,
				tick:   tick,
			})
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("Everything is up to date."))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&tick, "tick", defaultTickInterval, "interval of the simulated main loop")
	return cmd
}

// runUpdate spawns one orchestrator run on a fresh Async Bridge and pumps
// the main-thread queue until it finishes. Host notices go to p.stdout with
// color codes stripped.
func runUpdate(ctx context.Context, p runParams) (bool, error) {
	groups, err := plugin.Groups(p.cfg, p.goos, p.goarch)
	if err != nil {
		return false, err
	}

	manager := runtime.NewManager(runtime.WithShutdownGrace(p.cfg.ShutdownGrace))
	if err := manager.Initialize(); err != nil {
		return false, err
	}
	defer manager.Shutdown()

	out := shared.OutputFuncs{
		PrintFunc:  func(msg string) { fmt.Fprintln(p.stdout, chat.Strip(msg)) },
		StatusFunc: func(msg string) { fmt.Fprintln(p.stdout, SuccessStyle.Render(chat.Strip(msg))) },
	}

	client := plugin.NewClient(p.cfg, nil)
	checkers := plugin.Checkers(groups, client, plugin.NewInstaller(p.cfg, client), p.store)
	orchestrator := updater.NewOrchestrator(checkers, manager, out, plugin.OrchestratorOptions(p.cfg)...)

	type outcome struct {
		changed bool
		err     error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	if err := manager.Spawn("update", func(ctx context.Context) error {
		changed, err := orchestrator.Run(ctx)
		done <- outcome{changed, err}
		return nil
	}); err != nil {
		return false, err
	}

	tick := p.tick
	if tick <= 0 {
		tick = defaultTickInterval
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case o := <-done:
			manager.Pump()
			printResults(p.stdout, orchestrator.Results())
			fmt.Fprintln(p.stdout, SubtitleStyle.Render(fmt.Sprintf("Finished in %s", time.Since(start).Round(time.Millisecond))))
			return o.changed, o.err
		case <-ticker.C:
			manager.Pump()
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

func printResults(w io.Writer, results []updater.Result) {
	for _, r := range results {
		var status string
		switch {
		case r.Err != nil:
			status = ErrorStyle.Render("failed") + " " + r.Err.Error()
		case r.Changed:
			status = SuccessStyle.Render("updated") + fmt.Sprintf(" %s -> %s", orNone(r.FromTag), r.ToTag)
		default:
			status = SubtitleStyle.Render("up to date") + " " + orNone(r.ToTag)
		}
		fmt.Fprintf(w, "%-12s %s\n", r.Group, status)
	}
}

func orNone(tag string) string {
	if tag == "" {
		return "(none)"
	}
	return tag
}
