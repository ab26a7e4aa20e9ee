// Package installer downloads release artifacts and replaces files on disk
// without ever leaving a partially written destination.
package installer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/release"
	"github.com/corrreia/ccupdater/internal/shared"
)

// DefaultFileMode is applied to artifacts that did not exist before.
const DefaultFileMode os.FileMode = 0o755

// Expect describes what the downloaded artifact must look like.
type Expect struct {
	Size   int64  // Expected length, 0 when unknown
	Digest string // "sha256:<hex>", empty when unknown
}

// Option configures an Installer.
type Option func(*Installer)

// WithVerifyDigest toggles registry digest verification.
func WithVerifyDigest(verify bool) Option {
	return func(i *Installer) {
		i.verifyDigest = verify
	}
}

// WithTimeout bounds each download.
func WithTimeout(d time.Duration) Option {
	return func(i *Installer) {
		i.timeout = d
	}
}

// WithLogger sets the installer's logger.
func WithLogger(l shared.Logger) Option {
	return func(i *Installer) {
		i.log = l
	}
}

// Installer fetches artifacts through a Downloader and installs them.
type Installer struct {
	downloader   release.Downloader
	verifyDigest bool
	timeout      time.Duration
	log          shared.Logger
}

// New creates an Installer that downloads through d.
func New(d release.Downloader, opts ...Option) *Installer {
	i := &Installer{
		downloader:   d,
		verifyDigest: true,
		log:          shared.NewLogger("Installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install downloads url and atomically replaces dest with it. The parent
// directory is created when missing. The download lands in a temporary file
// next to dest and only a verified, complete file is renamed over dest; on
// any earlier failure dest is left untouched.
func (i *Installer) Install(ctx context.Context, url, dest string, expect Expect) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return appErrors.New(appErrors.CodeIO, "creating directory "+dir, err)
	}
	removeStale(dest)

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	i.log.Debug("Downloading %s -> %s", url, dest)

	body, advertised, err := i.downloader.Download(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".download-*")
	if err != nil {
		return appErrors.New(appErrors.CodeIO, "creating temp file in "+dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, h), body)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return appErrors.New(appErrors.CodeIO, "writing "+tmpPath, err)
		}
		return appErrors.New(appErrors.CodeNetwork, "downloading "+filepath.Base(dest), err)
	}
	if err := tmp.Close(); err != nil {
		return appErrors.New(appErrors.CodeIO, "closing "+tmpPath, err)
	}

	if err := i.verify(dest, written, advertised, expect, h); err != nil {
		return err
	}

	mode := DefaultFileMode
	if info, statErr := os.Stat(dest); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return appErrors.New(appErrors.CodeIO, "setting permissions on "+tmpPath, err)
	}

	if err := replaceFile(tmpPath, dest); err != nil {
		return appErrors.New(appErrors.CodeIO, "replacing "+dest, err)
	}
	committed = true

	i.log.Info("Installed %s (%s)", dest, humanize.Bytes(uint64(written)))
	return nil
}

func (i *Installer) verify(dest string, written, advertised int64, expect Expect, h hash.Hash) error {
	if advertised >= 0 && written != advertised {
		return appErrors.New(appErrors.CodeNetwork,
			fmt.Sprintf("download of %s truncated: got %d of %d bytes", filepath.Base(dest), written, advertised), nil)
	}
	if expect.Size > 0 && written != expect.Size {
		return appErrors.New(appErrors.CodeChecksum,
			fmt.Sprintf("size mismatch for %s: got %s, want %s", filepath.Base(dest),
				humanize.Bytes(uint64(written)), humanize.Bytes(uint64(expect.Size))), nil)
	}

	if !i.verifyDigest || expect.Digest == "" {
		return nil
	}
	want, ok := parseDigest(expect.Digest)
	if !ok {
		i.log.Debug("Skipping unsupported digest %q for %s", expect.Digest, dest)
		return nil
	}
	if err := compareDigest(filepath.Base(dest), want, h.Sum(nil)); err != nil {
		return appErrors.New(appErrors.CodeChecksum, "verifying "+filepath.Base(dest), err)
	}
	return nil
}
