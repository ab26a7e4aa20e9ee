package updater

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/corrreia/ccupdater/internal/chat"
	"github.com/corrreia/ccupdater/internal/shared"
)

// RestartNotice is shown once after a run that changed anything.
var RestartNotice = string(chat.Yellow) + "Everything done, restart your game to finish the update!"

// MainThread runs callbacks on the host main thread. runtime.Manager
// implements it.
type MainThread interface {
	RunOnMainThread(ctx context.Context, fn func() error) error
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithParallel runs up to limit checkers at once instead of sequentially.
func WithParallel(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		if limit > 1 {
			o.limit = limit
		}
	}
}

// WithNotice replaces the restart notice.
func WithNotice(message string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.notice = message
	}
}

// Orchestrator runs every checker and reports the aggregate outcome.
type Orchestrator struct {
	checkers []*Checker
	main     MainThread
	output   shared.Output
	limit    int
	notice   string
	log      shared.Logger

	mu      sync.Mutex
	results []Result
}

// NewOrchestrator creates an orchestrator. The notice is emitted through
// output from a callback scheduled on main.
func NewOrchestrator(checkers []*Checker, main MainThread, output shared.Output, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		checkers: checkers,
		main:     main,
		output:   output,
		limit:    1,
		notice:   RestartNotice,
		log:      shared.NewLogger("Updater"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Checkers returns the configured checkers.
func (o *Orchestrator) Checkers() []*Checker {
	return o.checkers
}

// Run runs every checker and returns whether any group changed. A failing
// group never stops the others; failures are joined into the returned error.
// When something changed, exactly one status notice is scheduled on the main
// thread before Run returns.
func (o *Orchestrator) Run(ctx context.Context) (bool, error) {
	results := make([]Result, len(o.checkers))

	if o.limit > 1 {
		var g errgroup.Group
		g.SetLimit(o.limit)
		for i, c := range o.checkers {
			g.Go(func() error {
				results[i] = c.Run(ctx)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, c := range o.checkers {
			if ctx.Err() != nil {
				results[i] = Result{Group: c.Group().Name, State: StateIdle, Err: ctx.Err()}
				continue
			}
			results[i] = c.Run(ctx)
		}
	}

	o.mu.Lock()
	o.results = results
	o.mu.Unlock()

	changed := false
	var errs []error
	for _, r := range results {
		changed = changed || r.Changed
		if r.Err != nil {
			o.log.Error("Updating %s failed: %v", r.Group, r.Err)
			errs = append(errs, fmt.Errorf("%s: %w", r.Group, r.Err))
		}
	}

	if changed {
		notice := o.notice
		err := o.main.RunOnMainThread(ctx, func() error {
			o.output.Status(notice)
			return nil
		})
		if err != nil {
			o.log.Warn("Could not show restart notice: %v", err)
		}
	} else {
		o.log.Debug("Nothing to update")
	}

	return changed, errors.Join(errs...)
}

// Results returns the per-group results of the last Run.
func (o *Orchestrator) Results() []Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Result(nil), o.results...)
}
