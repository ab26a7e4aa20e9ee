package updater

import (
	"context"
	"errors"
	"sort"
	"sync"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
	"github.com/corrreia/ccupdater/internal/installer"
	"github.com/corrreia/ccupdater/internal/marker"
	"github.com/corrreia/ccupdater/internal/release"
)

// fakeSource serves canned releases keyed by "owner/repo".
type fakeSource struct {
	mu       sync.Mutex
	releases map[string]*release.Release
	errs     map[string]error
	calls    int
}

func (f *fakeSource) LatestRelease(_ context.Context, owner, repo string) (*release.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	key := owner + "/" + repo
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	rel, ok := f.releases[key]
	if !ok {
		return nil, appErrors.New(appErrors.CodeNotFound, "no release published for "+key, release.ErrNotFound)
	}
	return rel, nil
}

type installCall struct {
	url  string
	dest string
}

// fakeInstaller records installs and fails for URLs listed in fail.
type fakeInstaller struct {
	mu    sync.Mutex
	calls []installCall
	fail  map[string]error
}

func (f *fakeInstaller) Install(_ context.Context, url, dest string, _ installer.Expect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[url]; ok {
		return err
	}
	f.calls = append(f.calls, installCall{url, dest})
	return nil
}

func (f *fakeInstaller) installed() []installCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]installCall(nil), f.calls...)
}

// memStore is an in-memory marker.Store.
type memStore struct {
	mu       sync.Mutex
	tags     map[string]string
	getErr   error
	setErr   error
	setCalls int
}

func newMemStore(seed map[string]string) *memStore {
	tags := make(map[string]string)
	for k, v := range seed {
		tags[k] = v
	}
	return &memStore{tags: tags}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	tag, ok := m.tags[key]
	return tag, ok, nil
}

func (m *memStore) Set(_ context.Context, key, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.tags[key] = tag
	return nil
}

func (m *memStore) List(_ context.Context) ([]marker.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []marker.Entry
	for k, v := range m.tags {
		list = append(list, marker.Entry{Key: k, Tag: v})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

func (m *memStore) tag(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tags[key]
}

// immediateMain runs callbacks synchronously and counts them.
type immediateMain struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *immediateMain) RunOnMainThread(_ context.Context, fn func() error) error {
	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return fn()
}

var errDownload = appErrors.New(appErrors.CodeNetwork, "downloading", errors.New("connection reset"))

var cefGroup = Group{
	Name:  "Cef",
	Owner: "SpiralP",
	Repo:  "classicube-cef-plugin",
	Paths: []string{"cef/classicube_cef_linux_x86_64.so", "cef/cef-linux-x86_64"},
}

var loaderGroup = Group{
	Name:  "Cef Loader",
	Owner: "SpiralP",
	Repo:  "classicube-cef-loader-plugin",
	Paths: []string{"plugins/classicube_cef_loader_linux_x86_64.so"},
}

func cefRelease(tag string) *release.Release {
	return &release.Release{
		TagName: tag,
		Assets: []release.Asset{
			{Name: "classicube_cef_linux_x86_64.so", URL: "https://dl/" + tag + "/plugin"},
			{Name: "cef-linux-x86_64", URL: "https://dl/" + tag + "/exe"},
		},
	}
}

func loaderRelease(tag string) *release.Release {
	return &release.Release{
		TagName: tag,
		Assets:  []release.Asset{{Name: "classicube_cef_loader_linux_x86_64.so", URL: "https://dl/loader/" + tag}},
	}
}
