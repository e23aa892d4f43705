// Package prefs is the client's local storage: a small PebbleDB key-value
// store holding UI preferences and the persisted session cookies.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
)

// KV is the minimal local-storage contract the rest of the client uses.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store persists string values in PebbleDB.
type Store struct {
	mu sync.Mutex
	db *pebble.DB
}

// Open opens (or creates) the store at dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("prefs: state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("prefs: create state dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("prefs: open store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory returns a store backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	return OpenFS("", vfs.NewMem())
}

// OpenFS opens the store at dir on the given filesystem.
func OpenFS(dir string, fs vfs.FS) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{FS: fs})
	if err != nil {
		return nil, fmt.Errorf("prefs: open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %q: %w", key, err)
	}
	out := string(value)
	if err := closer.Close(); err != nil {
		return "", false, fmt.Errorf("prefs: release %q: %w", key, err)
	}
	return out, true, nil
}

// Set stores value under key and syncs it to disk.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("prefs: delete %q: %w", key, err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
