package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/corrreia/ccupdater/internal/config"
	"github.com/corrreia/ccupdater/internal/marker"
	"github.com/corrreia/ccupdater/internal/plugin"
)

// newRegistry publishes owner/tools at v2 with two assets.
func newRegistry(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/tools/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tag_name": "v2",
			"assets": []map[string]interface{}{
				{"name": "a.so", "browser_download_url": srv.URL + "/dl/a.so"},
				{"name": "b", "browser_download_url": srv.URL + "/dl/b"},
			},
		})
	})
	mux.HandleFunc("/repos/owner/missing/releases/latest", http.NotFound)
	mux.HandleFunc("/dl/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "v2 "+r.PathValue("name"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, root, apiURL string) string {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")

	doc := map[string]interface{}{
		"github": map[string]interface{}{"api_url": apiURL},
		"groups": []map[string]interface{}{
			{"name": "Tools", "owner": "owner", "repo": "tools", "paths": []string{"plugins/a.so", "bin/b"}},
			{"name": "Missing", "owner": "owner", "repo": "missing", "paths": []string{"plugins/m.so"}},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, config.FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUpdate(t *testing.T) {
	root := t.TempDir()
	srv := newRegistry(t)
	writeConfig(t, root, srv.URL)

	cfg, err := config.Load(config.WithRootDir(root))
	if err != nil {
		t.Fatal(err)
	}
	store := marker.NewFileStore(cfg.Path(cfg.Markers.Path))

	var out bytes.Buffer
	changed, err := runUpdate(context.Background(), runParams{
		stdout: &out,
		cfg:    cfg,
		store:  store,
		goos:   "linux",
		goarch: "amd64",
		tick:   5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("runUpdate: %v", err)
	}
	if !changed {
		t.Fatal("expected changes")
	}

	got := out.String()
	if !strings.Contains(got, "Everything done, restart your game to finish the update!") {
		t.Errorf("missing restart notice in %q", got)
	}
	if strings.Contains(got, "&e") {
		t.Errorf("color codes not stripped: %q", got)
	}
	if strings.Count(got, "restart your game") != 1 {
		t.Errorf("notice printed more than once: %q", got)
	}

	data, err := os.ReadFile(filepath.Join(root, "bin", "b"))
	if err != nil || string(data) != "v2 b" {
		t.Errorf("bin/b = %q, %v", data, err)
	}

	// A second run is a no-op.
	out.Reset()
	changed, err = runUpdate(context.Background(), runParams{
		stdout: &out, cfg: cfg, store: store, goos: "linux", goarch: "amd64", tick: 5 * time.Millisecond,
	})
	if err != nil || changed {
		t.Fatalf("second run changed=%v err=%v", changed, err)
	}
	if strings.Contains(out.String(), "restart your game") {
		t.Errorf("unexpected notice on second run: %q", out.String())
	}
}

func TestRunCheck(t *testing.T) {
	root := t.TempDir()
	srv := newRegistry(t)
	writeConfig(t, root, srv.URL)

	cfg, err := config.Load(config.WithRootDir(root))
	if err != nil {
		t.Fatal(err)
	}
	store := marker.NewFileStore(cfg.Path(cfg.Markers.Path))
	if err := store.Set(context.Background(), "owner/tools", "v1"); err != nil {
		t.Fatal(err)
	}

	groups, err := plugin.Groups(cfg, "linux", "amd64")
	if err != nil {
		t.Fatal(err)
	}
	client := plugin.NewClient(cfg, nil)
	checkers := plugin.Checkers(groups, client, plugin.NewInstaller(cfg, client), store)

	var out bytes.Buffer
	if err := runCheck(context.Background(), &out, checkers); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "update available v1 -> v2") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "no release") {
		t.Errorf("missing no-release line in %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "plugins", "a.so")); !os.IsNotExist(err) {
		t.Errorf("check must not install, stat err = %v", err)
	}
}

func TestRunMarkers(t *testing.T) {
	store := marker.NewFileStore(filepath.Join(t.TempDir(), "markers.json"))

	var out bytes.Buffer
	if err := runMarkers(context.Background(), &out, store); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No markers recorded.") {
		t.Errorf("output = %q", out.String())
	}

	ctx := context.Background()
	_ = store.Set(ctx, "b/repo", "v2")
	_ = store.Set(ctx, "a/repo", "v1")

	out.Reset()
	if err := runMarkers(ctx, &out, store); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "a/repo") || !strings.HasPrefix(lines[1], "b/repo") {
		t.Errorf("lines = %q", lines)
	}
}

func TestRootCommandMarkersSQLite(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "cfg.json")
	if err := os.WriteFile(path, []byte(`{"markers": {"driver": "sqlite"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"markers", "--root", root, "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "No markers recorded.") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(root, "plugins", "ccupdater", "markers.db")); err != nil {
		t.Errorf("sqlite store not created: %v", err)
	}
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "cfg.json")
	if err := os.WriteFile(path, []byte(`{"markers": {"driver": "etcd"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"check", "--root", root, "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}
