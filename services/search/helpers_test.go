package search

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/meghashyamc/deepfind/db/kvdb"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	return logger.NewWithLevel(os.Stderr, slog.LevelDebug)
}

// writeTree creates files under root; paths ending in "/" become directories.
func writeTree(t *testing.T, root string, paths []string) {
	t.Helper()
	for _, relPath := range paths {
		fullPath := filepath.Join(root, filepath.FromSlash(relPath))
		if relPath[len(relPath)-1] == '/' {
			require.NoError(t, os.MkdirAll(fullPath, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte(relPath), 0644))
	}
}

// recorder collects callback invocations from a traversal or a session.
type recorder struct {
	mu       sync.Mutex
	matches  []listing.Entry
	progress [][2]int
	states   []State
}

func (r *recorder) onMatch(entry listing.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, entry)
}

func (r *recorder) onProgress(folders int, files int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{folders, files})
}

func (r *recorder) onState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{OnMatch: r.onMatch, OnProgress: r.onProgress, OnState: r.onState}
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.matches))
	for _, entry := range r.matches {
		names = append(names, entry.Name)
	}
	return names
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.matches))
	for _, entry := range r.matches {
		paths = append(paths, entry.FullPath)
	}
	return paths
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches) + len(r.progress) + len(r.states)
}

func (r *recorder) stateLog() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// memoryStore is an in-memory StatusStore.
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) Set(bucket string, key string, value string) error {
	if key == "" {
		return &kvdb.InvalidKeyError{Key: key, Reason: "key cannot be empty"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[bucket+"/"+key] = value
	return nil
}

func (m *memoryStore) Get(bucket string, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[bucket+"/"+key]
	if !ok {
		return "", &kvdb.NotFoundError{Key: key}
	}
	return value, nil
}

func (m *memoryStore) GetAllKeys(bucket string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	prefix := bucket + "/"
	for key := range m.values {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key[len(prefix):])
		}
	}
	return keys, nil
}

func (m *memoryStore) Delete(bucket string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, bucket+"/"+key)
	return nil
}

// fakeReader serves a synthetic tree described as path -> children.
type fakeReader struct {
	mu       sync.Mutex
	tree     map[string][]listing.Child
	failing  map[string]bool
	vanished map[string]bool
	blockOn  map[string]chan struct{}
	reads    []string
}

var errFakeDenied = errors.New("access denied")

func (f *fakeReader) ReadChildren(path string) ([]listing.Child, error) {
	f.mu.Lock()
	f.reads = append(f.reads, path)
	block := f.blockOn[path]
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.failing[path] {
		return nil, errFakeDenied
	}
	return f.tree[path], nil
}

func (f *fakeReader) Materialize(parentPath string, child listing.Child) (listing.Entry, error) {
	fullPath := filepath.Join(parentPath, child.Name)
	if f.vanished[fullPath] {
		return listing.Entry{}, os.ErrNotExist
	}
	return listing.Entry{
		Name:         child.Name,
		FullPath:     fullPath,
		IsDirectory:  child.IsDir,
		ParentPath:   parentPath,
		DisplayLabel: child.Name,
	}, nil
}

func (f *fakeReader) readPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

func dir(name string) listing.Child {
	return listing.Child{Name: name, IsDir: true}
}

func file(name string) listing.Child {
	return listing.Child{Name: name}
}
