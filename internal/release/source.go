// Package release provides clients for release registries that publish
// versioned binary artifacts.
package release

import (
	"context"
	"errors"
	"io"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
)

// ErrNotFound is wrapped by sources when the repository has no published
// release. Callers treat it as "nothing to update".
var ErrNotFound = errors.New("release not found")

// Release is the latest published release of a repository.
type Release struct {
	TagName string  // Opaque version tag, compared by exact string equality
	Name    string  // Human-readable release name
	HTMLURL string  // Browser URL for the release page
	Assets  []Asset // Downloadable artifacts in published order
}

// Asset is a single downloadable artifact of a release.
type Asset struct {
	Name   string // File name
	URL    string // Direct download URL
	Size   int64  // Expected length in bytes, 0 when unknown
	Digest string // "sha256:<hex>" when the registry publishes one
}

// Source looks up the latest release of owner/repo.
type Source interface {
	LatestRelease(ctx context.Context, owner, repo string) (*Release, error)
}

// Downloader opens an artifact stream. The returned length is -1 when the
// server did not advertise one. The caller closes the reader.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

func notFound(owner, repo string) error {
	return appErrors.New(appErrors.CodeNotFound, "no release published for "+owner+"/"+repo, ErrNotFound)
}
