package release

import (
	"context"
	"path"
)

// StaticSource reports a fixed release. It serves artifacts whose version
// and location come from configuration instead of a registry.
type StaticSource struct {
	Tag  string
	URLs []string
}

// LatestRelease returns the configured release regardless of owner and repo.
// An empty tag reports ErrNotFound.
func (s StaticSource) LatestRelease(_ context.Context, owner, repo string) (*Release, error) {
	if s.Tag == "" {
		return nil, notFound(owner, repo)
	}

	assets := make([]Asset, 0, len(s.URLs))
	for _, u := range s.URLs {
		assets = append(assets, Asset{Name: path.Base(u), URL: u})
	}
	return &Release{TagName: s.Tag, Name: s.Tag, Assets: assets}, nil
}
