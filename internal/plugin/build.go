package plugin

import (
	"fmt"
	"net/http"

	"github.com/corrreia/ccupdater/internal/config"
	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/installer"
	"github.com/corrreia/ccupdater/internal/marker"
	"github.com/corrreia/ccupdater/internal/modules/database"
	"github.com/corrreia/ccupdater/internal/release"
	"github.com/corrreia/ccupdater/internal/updater"
)

// BinaryGroupName names the ungrouped artifact configured under binary.*.
const BinaryGroupName = "Cef Binary"

// memoryDSN is passed through to SQLite unresolved.
const memoryDSN = ":memory:"

// NewDatabaseModule returns the marker database module for cfg with the
// marker migration registered.
func NewDatabaseModule(cfg *config.Config) *database.Module {
	dbCfg := database.DefaultConfig()
	dbCfg.Path = cfg.Markers.Path
	if dbCfg.Path != memoryDSN {
		dbCfg.Path = cfg.Path(dbCfg.Path)
	}
	db := database.New(dbCfg)
	db.RegisterMigration(marker.Migration)
	return db
}

// NewStore returns the marker store selected by markers.driver. db is only
// used by the sqlite driver and must already be initialized.
func NewStore(cfg *config.Config, db *database.Module) (marker.Store, error) {
	switch cfg.Markers.Driver {
	case config.MarkersDriverSQLite:
		if db == nil || !db.IsConnected() {
			return nil, appErrors.New(appErrors.CodeConfiguration, "sqlite marker store: database not connected", nil)
		}
		return marker.NewSQLiteStore(db.DB()), nil
	case config.MarkersDriverFile, "":
		return marker.NewFileStore(cfg.Path(cfg.Markers.Path)), nil
	default:
		return nil, appErrors.New(appErrors.CodeConfiguration,
			fmt.Sprintf("unknown marker driver %q", cfg.Markers.Driver), nil)
	}
}

// NewClient returns a release client configured from cfg.github. A nil
// httpClient uses http.DefaultClient.
func NewClient(cfg *config.Config, httpClient *http.Client) *release.GitHubClient {
	opts := []release.ClientOption{
		release.WithBaseURL(cfg.GitHub.APIURL),
		release.WithToken(cfg.GitHub.Token),
		release.WithUserAgent(cfg.GitHub.UserAgent),
		release.WithTimeout(cfg.GitHub.Timeout),
	}
	if httpClient != nil {
		opts = append(opts, release.WithHTTPClient(httpClient))
	}
	return release.NewGitHubClient(opts...)
}

// NewInstaller returns an installer configured from cfg.download.
func NewInstaller(cfg *config.Config, d release.Downloader) *installer.Installer {
	return installer.New(d,
		installer.WithVerifyDigest(cfg.Download.VerifyDigest),
		installer.WithTimeout(cfg.Download.Timeout),
	)
}

// Groups returns the artifact groups for goos/goarch: the configured groups
// when any are set, otherwise the built-in table, plus the ungrouped binary
// when binary.* is configured.
func Groups(cfg *config.Config, goos, goarch string) ([]updater.Group, error) {
	var groups []updater.Group

	if len(cfg.Groups) > 0 {
		for _, gc := range cfg.Groups {
			paths := make([]string, len(gc.Paths))
			for i, p := range gc.Paths {
				paths[i] = cfg.Path(p)
			}
			groups = append(groups, updater.Group{
				Name:  gc.Name,
				Owner: gc.Owner,
				Repo:  gc.Repo,
				Paths: paths,
			})
		}
	} else {
		defaults, err := updater.DefaultGroups(cfg.RootDir, goos, goarch)
		if err != nil && !cfg.Binary.Enabled() {
			return nil, appErrors.New(appErrors.CodeConfiguration, "resolving artifact groups", err)
		}
		groups = append(groups, defaults...)
	}

	if cfg.Binary.Enabled() {
		groups = append(groups, updater.Group{
			Name:  BinaryGroupName,
			Paths: []string{cfg.Path(cfg.Binary.Path)},
			Source: release.StaticSource{
				Tag:  cfg.Binary.Version,
				URLs: []string{cfg.Binary.URL},
			},
		})
	}

	return groups, nil
}

// Checkers builds one checker per group sharing source, installer, and store.
func Checkers(groups []updater.Group, source release.Source, inst updater.Installer, store marker.Store) []*updater.Checker {
	checkers := make([]*updater.Checker, 0, len(groups))
	for _, g := range groups {
		checkers = append(checkers, updater.NewChecker(g, source, inst, store))
	}
	return checkers
}

// OrchestratorOptions maps parallel and max_concurrency onto orchestrator
// options.
func OrchestratorOptions(cfg *config.Config) []updater.OrchestratorOption {
	if !cfg.Parallel {
		return nil
	}
	return []updater.OrchestratorOption{updater.WithParallel(cfg.MaxConcurrency)}
}
