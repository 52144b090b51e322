// Package storage provides file-backed JSON snapshot storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Store persists JSON snapshots under a namespace directory. Writes are
// atomic (temp file + rename) and flock-guarded so concurrent processes
// sharing the directory get last-write-wins without torn files.
type Store struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*fileLock
}

// New creates a store rooted at baseDir/namespace.
func New(baseDir, namespace string) *Store {
	return &Store{
		dir:   filepath.Join(baseDir, namespace),
		locks: make(map[string]*fileLock),
	}
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads the value stored under key into v.
func (s *Store) Get(ctx context.Context, key string, v any) error {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Put stores v under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	path := s.pathFor(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	lock := s.lockFor(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting an absent key is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	path := s.pathFor(key)

	lock := s.lockFor(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer lock.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns every stored key in the namespace, in no particular
// order. A missing namespace directory yields an empty list.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list storage dir: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		keys = append(keys, name[:len(name)-len(".json")])
	}
	return keys, nil
}

// Exists reports whether key has a stored value.
func (s *Store) Exists(ctx context.Context, key string) bool {
	_, err := os.Stat(s.pathFor(key))
	return err == nil
}

func (s *Store) lockFor(path string) *fileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[path]
	if !ok {
		lock = newFileLock(path)
		s.locks[path] = lock
	}
	return lock
}
