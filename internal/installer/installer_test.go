package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/release"
)

const payload = "new plugin binary contents"

func digestOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/asset":
			_, _ = io.WriteString(w, payload)
		case "/truncated":
			w.Header().Set("Content-Length", "1000")
			_, _ = io.WriteString(w, "short")
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newInstaller(opts ...Option) *Installer {
	return New(release.NewGitHubClient(), opts...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertNoTempFiles fails when a download temp file was left in dir.
func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".download-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestInstallCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	root := t.TempDir()
	dest := filepath.Join(root, "cef", "classicube_cef_linux_x86_64.so")

	err := newInstaller().Install(context.Background(), srv.URL+"/asset", dest, Expect{
		Size:   int64(len(payload)),
		Digest: digestOf(payload),
	})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if got := readFile(t, dest); got != payload {
		t.Errorf("dest contents = %q, want %q", got, payload)
	}
	assertNoTempFiles(t, filepath.Dir(dest))
}

func TestInstallReplacesExisting(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	dest := filepath.Join(t.TempDir(), "plugin.so")
	if err := os.WriteFile(dest, []byte("old"), 0o700); err != nil {
		t.Fatal(err)
	}

	if err := newInstaller().Install(context.Background(), srv.URL+"/asset", dest, Expect{}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := readFile(t, dest); got != payload {
		t.Errorf("dest contents = %q, want %q", got, payload)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(dest)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o700 {
			t.Errorf("mode = %v, want 0700 preserved", info.Mode().Perm())
		}
	}
}

func TestInstallFailureLeavesDestination(t *testing.T) {
	t.Parallel()

	srv := newServer(t)

	tests := []struct {
		name   string
		path   string
		expect Expect
		opts   []Option
		code   appErrors.Code
	}{
		{name: "server error", path: "/broken", code: appErrors.CodeNetwork},
		{name: "truncated body", path: "/truncated", code: appErrors.CodeNetwork},
		{name: "size mismatch", path: "/asset", expect: Expect{Size: 3}, code: appErrors.CodeChecksum},
		{name: "digest mismatch", path: "/asset", expect: Expect{Digest: digestOf("something else")}, code: appErrors.CodeChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			dest := filepath.Join(dir, "plugin.dll")
			if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
				t.Fatal(err)
			}

			err := newInstaller(tt.opts...).Install(context.Background(), srv.URL+tt.path, dest, tt.expect)
			if err == nil {
				t.Fatal("expected an error")
			}
			if code := appErrors.CodeOf(err); code != tt.code {
				t.Errorf("error code = %q, want %q (%v)", code, tt.code, err)
			}
			if got := readFile(t, dest); got != "old" {
				t.Errorf("dest modified after failure: %q", got)
			}
			assertNoTempFiles(t, dir)
		})
	}
}

func TestInstallDigestMismatchIsChecksumError(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	dest := filepath.Join(t.TempDir(), "plugin.so")

	err := newInstaller().Install(context.Background(), srv.URL+"/asset", dest, Expect{Digest: digestOf("other")})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("dest should not exist after failed first install, stat err = %v", statErr)
	}
}

func TestInstallDigestVerificationDisabled(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	dest := filepath.Join(t.TempDir(), "plugin.so")

	err := newInstaller(WithVerifyDigest(false)).Install(context.Background(), srv.URL+"/asset", dest, Expect{Digest: digestOf("other")})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := readFile(t, dest); got != payload {
		t.Errorf("dest contents = %q", got)
	}
}

func TestInstallCanceled(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "plugin.so")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newInstaller().Install(ctx, srv.URL+"/asset", dest, Expect{})
	if !appErrors.IsCode(err, appErrors.CodeNetwork) {
		t.Fatalf("expected CodeNetwork, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("dest created despite cancellation")
	}
	assertNoTempFiles(t, dir)
}

func TestParseDigest(t *testing.T) {
	t.Parallel()

	valid := strings.Repeat("ab", 32)
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"sha256:" + valid, valid, true},
		{"SHA256:" + strings.ToUpper(valid), valid, true},
		{"sha512:" + valid, "", false},
		{"sha256:xyz", "", false},
		{valid, "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := parseDigest(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseDigest(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
