package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/installer"
	"github.com/corrreia/ccupdater/internal/marker"
	"github.com/corrreia/ccupdater/internal/release"
	"github.com/corrreia/ccupdater/internal/shared"
)

// State is a checker's position in the update state machine.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateUpToDate
	StateDownloading
	StateInstalling
	StateDone
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateChecking:
		return "Checking"
	case StateUpToDate:
		return "UpToDate"
	case StateDownloading:
		return "Downloading"
	case StateInstalling:
		return "Installing"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Installer installs one artifact at a destination.
type Installer interface {
	Install(ctx context.Context, url, dest string, expect installer.Expect) error
}

// Result is the outcome of one checker run.
type Result struct {
	Group    string
	State    State
	FromTag  string // Marker before the run, empty when none
	ToTag    string // Latest published tag, empty when unknown
	Changed  bool
	Err      error
	Duration time.Duration
}

// Checker drives the update of one artifact group.
type Checker struct {
	group     Group
	source    release.Source
	installer Installer
	markers   marker.Store
	log       shared.Logger

	mu    sync.Mutex
	state State
}

// NewChecker creates a checker for g. g.Source, when set, takes precedence
// over source.
func NewChecker(g Group, source release.Source, inst Installer, markers marker.Store) *Checker {
	if g.Source != nil {
		source = g.Source
	}
	return &Checker{
		group:     g,
		source:    source,
		installer: inst,
		markers:   markers,
		log:       shared.NewLogger("Updater"),
	}
}

// Group returns the checker's group.
func (c *Checker) Group() Group { return c.group }

// State returns the current state.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Checker) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Installed returns the group's marker tag, or "" when there is none or it
// cannot be read.
func (c *Checker) Installed(ctx context.Context) string {
	tag, ok, err := c.markers.Get(ctx, c.group.Key())
	if err != nil {
		c.log.Warn("Ignoring unreadable marker for %s: %v", c.group.Name, err)
		return ""
	}
	if !ok {
		return ""
	}
	return tag
}

// Latest queries the release source without installing anything.
func (c *Checker) Latest(ctx context.Context) (*release.Release, error) {
	return c.source.LatestRelease(ctx, c.group.Owner, c.group.Repo)
}

// Run checks the group's release source and, when the published tag differs
// from the marker, installs every asset in order. The marker only advances
// after all assets installed. An asset failure stops the group and leaves
// already replaced files in place with the old marker.
func (c *Checker) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{Group: c.group.Name}
	finish := func(s State, err error) Result {
		c.setState(s)
		res.State = s
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	c.setState(StateChecking)
	c.log.Debug("Checking %s", c.group.Name)

	res.FromTag = c.Installed(ctx)

	rel, err := c.Latest(ctx)
	if err != nil {
		if appErrors.IsCode(err, appErrors.CodeNotFound) {
			c.log.Info("%s has no published release", c.group.Name)
			return finish(StateUpToDate, nil)
		}
		return finish(StateFailed, err)
	}
	res.ToTag = rel.TagName

	if res.FromTag != "" && res.FromTag == rel.TagName {
		c.log.Info("%s is up to date (%s)", c.group.Name, rel.TagName)
		return finish(StateUpToDate, nil)
	}
	if semver.IsValid(res.FromTag) && semver.IsValid(rel.TagName) && semver.Compare(rel.TagName, res.FromTag) < 0 {
		c.log.Warn("%s latest release %s is older than installed %s, installing anyway",
			c.group.Name, rel.TagName, res.FromTag)
	}

	if len(rel.Assets) != len(c.group.Paths) {
		return finish(StateFailed, appErrors.New(appErrors.CodeConfiguration,
			fmt.Sprintf("%s release %s has %d asset(s) but %d destination(s) are configured",
				c.group.Name, rel.TagName, len(rel.Assets), len(c.group.Paths)), nil))
	}

	if res.FromTag == "" {
		c.log.Info("Installing %s %s", c.group.Name, rel.TagName)
	} else {
		c.log.Info("Updating %s from %s to %s", c.group.Name, res.FromTag, rel.TagName)
	}

	c.setState(StateDownloading)
	for i, asset := range rel.Assets {
		dest := c.group.Paths[i]
		c.log.Debug("Downloading %s (%d/%d) to %s", asset.Name, i+1, len(rel.Assets), dest)

		err := c.installer.Install(ctx, asset.URL, dest, installer.Expect{
			Size:   asset.Size,
			Digest: asset.Digest,
		})
		if err != nil {
			return finish(StateFailed, fmt.Errorf("installing %s: %w", asset.Name, err))
		}
	}

	c.setState(StateInstalling)
	if err := c.markers.Set(ctx, c.group.Key(), rel.TagName); err != nil {
		return finish(StateFailed, appErrors.New(appErrors.CodeIO, "recording installed version", err))
	}

	res.Changed = true
	c.log.Info("%s updated to %s", c.group.Name, rel.TagName)
	return finish(StateDone, nil)
}
