// Package updater checks release sources for newer artifacts and installs
// them group by group.
package updater

import (
	"fmt"
	"path/filepath"

	"github.com/corrreia/ccupdater/internal/release"
)

// Group is a set of artifacts updated together as one unit. Paths correspond
// positionally to the release's assets.
type Group struct {
	Name  string
	Owner string
	Repo  string
	Paths []string

	// Source overrides the checker's default release source.
	Source release.Source
}

// Key identifies the group's installed-version marker.
func (g Group) Key() string {
	if g.Owner != "" && g.Repo != "" {
		return g.Owner + "/" + g.Repo
	}
	return g.Name
}

func (g Group) String() string {
	return g.Name
}

// platform holds the artifact naming for one GOOS/GOARCH pair.
type platform struct {
	os     string
	arch   string
	libExt string
	exeExt string
}

var platforms = map[string]platform{
	"windows/amd64": {"windows", "x86_64", ".dll", ".exe"},
	"windows/386":   {"windows", "i686", ".dll", ".exe"},
	"linux/amd64":   {"linux", "x86_64", ".so", ""},
	"linux/386":     {"linux", "i686", ".so", ""},
	"linux/arm":     {"linux", "armhf", ".so", ""},
	"linux/arm64":   {"linux", "aarch64", ".so", ""},
	"darwin/amd64":  {"macos", "x86_64", ".dylib", ""},
}

// SupportedPlatform reports whether DefaultGroups knows goos/goarch.
func SupportedPlatform(goos, goarch string) bool {
	_, ok := platforms[goos+"/"+goarch]
	return ok
}

// DefaultGroups returns the built-in artifact groups for goos/goarch with
// destinations rooted at root.
func DefaultGroups(root, goos, goarch string) ([]Group, error) {
	p, ok := platforms[goos+"/"+goarch]
	if !ok {
		return nil, fmt.Errorf("no artifacts published for %s/%s", goos, goarch)
	}
	suffix := p.os + "_" + p.arch

	return []Group{
		{
			Name:  "Cef Loader",
			Owner: "SpiralP",
			Repo:  "classicube-cef-loader-plugin",
			Paths: []string{
				filepath.Join(root, "plugins", "classicube_cef_loader_"+suffix+p.libExt),
			},
		},
		{
			Name:  "Cef",
			Owner: "SpiralP",
			Repo:  "classicube-cef-plugin",
			Paths: []string{
				filepath.Join(root, "cef", "classicube_cef_"+suffix+p.libExt),
				filepath.Join(root, "cef", "cef-"+p.os+"-"+p.arch+p.exeExt),
			},
		},
	}, nil
}
