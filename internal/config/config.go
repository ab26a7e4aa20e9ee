// Package config loads the updater configuration from defaults, an optional
// JSON file, and CCUPDATER_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyEnabled        = "enabled"
	KeyDebug          = "debug"
	KeyRootDir        = "root_dir"
	KeyParallel       = "parallel"
	KeyMaxConcurrency = "max_concurrency"
	KeyShutdownGrace  = "shutdown_grace"

	KeyGitHubAPIURL    = "github.api_url"
	KeyGitHubToken     = "github.token"
	KeyGitHubUserAgent = "github.user_agent"
	KeyGitHubTimeout   = "github.timeout"

	KeyDownloadTimeout      = "download.timeout"
	KeyDownloadVerifyDigest = "download.verify_digest"

	KeyMarkersDriver = "markers.driver"
	KeyMarkersPath   = "markers.path"

	KeyBinaryURL     = "binary.url"
	KeyBinaryVersion = "binary.version"
	KeyBinaryPath    = "binary.path"

	KeyGroups = "groups"
)

const (
	envPrefix = "CCUPDATER"

	// FileName is the config file searched for in the candidate directories.
	FileName = "ccupdater.json"

	MarkersDriverFile   = "file"
	MarkersDriverSQLite = "sqlite"
)

// Version is stamped at build time.
var Version = "dev"

// DefaultSearchDirs are tried in order, relative to the root directory.
var DefaultSearchDirs = []string{
	filepath.Join("plugins", "ccupdater"),
	"plugins",
	".",
}

// GitHubConfig configures the release registry client.
type GitHubConfig struct {
	APIURL    string
	Token     string
	UserAgent string
	Timeout   time.Duration
}

// DownloadConfig configures artifact downloads.
type DownloadConfig struct {
	Timeout      time.Duration
	VerifyDigest bool
}

// MarkersConfig selects the installed-version marker store.
type MarkersConfig struct {
	Driver string
	Path   string
}

// BinaryConfig describes the ungrouped artifact. It is enabled only when
// URL, Version, and Path are all set.
type BinaryConfig struct {
	URL     string
	Version string
	Path    string
}

// Enabled reports whether the ungrouped artifact is configured.
func (b BinaryConfig) Enabled() bool {
	return b.URL != "" && b.Version != "" && b.Path != ""
}

// GroupConfig overrides the built-in artifact groups.
type GroupConfig struct {
	Name  string   `mapstructure:"name"`
	Owner string   `mapstructure:"owner"`
	Repo  string   `mapstructure:"repo"`
	Paths []string `mapstructure:"paths"`
}

// Config is the resolved configuration.
type Config struct {
	Enabled        bool
	Debug          bool
	RootDir        string
	Parallel       bool
	MaxConcurrency int
	ShutdownGrace  time.Duration

	GitHub   GitHubConfig
	Download DownloadConfig
	Markers  MarkersConfig
	Binary   BinaryConfig
	Groups   []GroupConfig

	// File is the config file that was merged, empty when none was found.
	File string
}

// Path resolves p against RootDir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.RootDir, p)
}

type loadSettings struct {
	rootDir    string
	file       string
	searchDirs []string
}

// Option configures Load. Useful for tests to override paths.
type Option func(*loadSettings)

// WithRootDir sets the directory that relative paths resolve against.
func WithRootDir(dir string) Option {
	return func(s *loadSettings) {
		s.rootDir = dir
	}
}

// WithFile loads path instead of searching for a config file.
func WithFile(path string) Option {
	return func(s *loadSettings) {
		s.file = path
	}
}

// WithSearchPaths overrides DefaultSearchDirs.
func WithSearchPaths(dirs ...string) Option {
	return func(s *loadSettings) {
		s.searchDirs = dirs
	}
}

// Load resolves configuration using the precedence:
// defaults < config file < environment variables.
func Load(opts ...Option) (*Config, error) {
	settings := loadSettings{searchDirs: DefaultSearchDirs}
	for _, opt := range opts {
		opt(&settings)
	}

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if settings.rootDir != "" {
		v.SetDefault(KeyRootDir, settings.rootDir)
	}
	root := v.GetString(KeyRootDir)

	file := strings.TrimSpace(settings.file)
	if file == "" {
		found, err := findConfigFile(root, settings.searchDirs)
		if err != nil {
			return nil, err
		}
		file = found
	}
	if err := mergeConfigFile(v, file); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(file); file != "" && statErr == nil {
		cfg.File = file
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Enabled:        v.GetBool(KeyEnabled),
		Debug:          v.GetBool(KeyDebug),
		RootDir:        v.GetString(KeyRootDir),
		Parallel:       v.GetBool(KeyParallel),
		MaxConcurrency: v.GetInt(KeyMaxConcurrency),
		ShutdownGrace:  v.GetDuration(KeyShutdownGrace),
		GitHub: GitHubConfig{
			APIURL:    strings.TrimRight(v.GetString(KeyGitHubAPIURL), "/"),
			Token:     v.GetString(KeyGitHubToken),
			UserAgent: v.GetString(KeyGitHubUserAgent),
			Timeout:   v.GetDuration(KeyGitHubTimeout),
		},
		Download: DownloadConfig{
			Timeout:      v.GetDuration(KeyDownloadTimeout),
			VerifyDigest: v.GetBool(KeyDownloadVerifyDigest),
		},
		Markers: MarkersConfig{
			Driver: strings.ToLower(v.GetString(KeyMarkersDriver)),
			Path:   v.GetString(KeyMarkersPath),
		},
		Binary: BinaryConfig{
			URL:     v.GetString(KeyBinaryURL),
			Version: v.GetString(KeyBinaryVersion),
			Path:    v.GetString(KeyBinaryPath),
		},
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.GitHub.UserAgent == "" {
		cfg.GitHub.UserAgent = "ccupdater/" + Version
	}

	if err := v.UnmarshalKey(KeyGroups, &cfg.Groups); err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyGroups, err)
	}

	switch cfg.Markers.Driver {
	case MarkersDriverFile:
		if cfg.Markers.Path == "" {
			cfg.Markers.Path = filepath.Join("plugins", "ccupdater", "markers.json")
		}
	case MarkersDriverSQLite:
		if cfg.Markers.Path == "" {
			cfg.Markers.Path = filepath.Join("plugins", "ccupdater", "markers.db")
		}
	default:
		return nil, fmt.Errorf("unsupported %s %q (want %q or %q)",
			KeyMarkersDriver, cfg.Markers.Driver, MarkersDriverFile, MarkersDriverSQLite)
	}

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", KeyMaxConcurrency, cfg.MaxConcurrency)
	}
	for i, g := range cfg.Groups {
		if g.Name == "" || len(g.Paths) == 0 {
			return nil, fmt.Errorf("%s[%d]: name and paths are required", KeyGroups, i)
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyEnabled, true)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyRootDir, ".")
	v.SetDefault(KeyParallel, false)
	v.SetDefault(KeyMaxConcurrency, 2)
	v.SetDefault(KeyShutdownGrace, 10*time.Second)

	v.SetDefault(KeyGitHubAPIURL, "https://api.github.com")
	v.SetDefault(KeyGitHubToken, "")
	v.SetDefault(KeyGitHubUserAgent, "")
	v.SetDefault(KeyGitHubTimeout, 30*time.Second)

	v.SetDefault(KeyDownloadTimeout, 10*time.Minute)
	v.SetDefault(KeyDownloadVerifyDigest, true)

	v.SetDefault(KeyMarkersDriver, MarkersDriverFile)
	v.SetDefault(KeyMarkersPath, "")

	v.SetDefault(KeyBinaryURL, "")
	v.SetDefault(KeyBinaryVersion, "")
	v.SetDefault(KeyBinaryPath, "")
}

func findConfigFile(root string, dirs []string) (string, error) {
	for _, dir := range dirs {
		candidate := filepath.Join(root, dir, FileName)
		info, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("config path %s is a directory", candidate)
		}
		return candidate, nil
	}
	return "", nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
