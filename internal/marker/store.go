// Package marker persists which release tag is installed for each artifact
// group.
package marker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Entry is one persisted installed-version marker.
type Entry struct {
	Key         string    `json:"-"`
	Tag         string    `json:"tag"`
	InstalledAt time.Time `json:"installed_at"`
}

// Store reads and writes installed-version markers.
type Store interface {
	// Get returns the installed tag for key; ok is false when no marker exists.
	Get(ctx context.Context, key string) (tag string, ok bool, err error)
	// Set records tag as installed for key.
	Set(ctx context.Context, key, tag string) error
	// List returns every marker ordered by key.
	List(ctx context.Context) ([]Entry, error)
}

// FileStore keeps markers in a single JSON document keyed by group.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return "", false, err
	}
	e, ok := entries[key]
	if !ok || e.Tag == "" {
		return "", false, nil
	}
	return e.Tag, true, nil
}

// Set implements Store. The document is rewritten through a temp file and a
// rename so a crash never leaves it half written.
func (s *FileStore) Set(_ context.Context, key, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		// An unreadable document is replaced rather than blocking every update.
		entries = make(map[string]Entry)
	}
	entries[key] = Entry{Tag: tag, InstalledAt: s.now().UTC()}

	return s.writeLocked(entries)
}

// List implements Store.
func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	list := make([]Entry, 0, len(entries))
	for key, e := range entries {
		e.Key = key
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

func (s *FileStore) readLocked() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Entry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading marker file %q: %w", s.path, err)
	}

	entries := make(map[string]Entry)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing marker file %q: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) writeLocked(entries map[string]Entry) error {
	contents, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling markers: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating marker temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing marker file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing marker file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing marker file %q: %w", s.path, err)
	}
	return nil
}
