package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	recordExt  = ".json"
	tempPrefix = ".waypoint-tmp-"

	// ownWriteWindow is how long Watch ignores a record file after this
	// process wrote or removed it.
	ownWriteWindow = time.Second
)

// FS is a Backend storing one JSON file per key under root/<collection>/.
type FS struct {
	root string // absolute path to the data directory

	mu      sync.Mutex
	written map[string]time.Time // collection/key -> last own write
}

// NewFS creates an FS backend rooted at root, creating the directory if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, written: map[string]time.Time{}}, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string {
	return f.root
}

// Collection returns the directory-backed collection name.
func (f *FS) Collection(name string) (Provider, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(f.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir collection: %w", err)
	}
	return &fsCollection{fs: f, name: name, dir: dir}, nil
}

// Close is a no-op.
func (f *FS) Close() error { return nil }

func (f *FS) noteWrite(collection, key string) {
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, at := range f.written {
		if now.Sub(at) > ownWriteWindow {
			delete(f.written, k)
		}
	}
	f.written[collection+"/"+key] = now
}

// ownWrite reports whether this process touched the record file recently.
func (f *FS) ownWrite(collection, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.written[collection+"/"+key]
	return ok && time.Since(at) <= ownWriteWindow
}

// validName rejects names that could escape the collection directory.
func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("storage: invalid name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, tempPrefix) {
		return fmt.Errorf("storage: invalid name %q", name)
	}
	return nil
}

type fsCollection struct {
	mu   sync.RWMutex
	fs   *FS
	name string
	dir  string
}

func (c *fsCollection) path(key string) (string, error) {
	if err := validName(key); err != nil {
		return "", err
	}
	return filepath.Join(c.dir, key+recordExt), nil
}

// Insert writes atomically: tmp file → fsync → rename.
func (c *fsCollection) Insert(key string, value []byte) error {
	abs, err := c.path(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	c.fs.noteWrite(c.name, key)
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Get reports a key that cannot name a record file as absent.
func (c *fsCollection) Get(key string) ([]byte, bool, error) {
	abs, err := c.path(key)
	if err != nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return readRecord(abs)
}

func (c *fsCollection) Remove(key string) ([]byte, bool, error) {
	abs, err := c.path(key)
	if err != nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok, err := readRecord(abs)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.fs.noteWrite(c.name, key)
	if err := os.Remove(abs); err != nil {
		return nil, false, fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return data, true, nil
}

func (c *fsCollection) Values() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if key, ok := recordKey(e.Name()); ok && !e.IsDir() {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		data, ok, err := readRecord(filepath.Join(c.dir, k+recordExt))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, data)
		}
	}
	return out, nil
}

// recordKey maps a file name back to its key, skipping temp files.
func recordKey(name string) (string, bool) {
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, recordExt) {
		return "", false
	}
	return strings.TrimSuffix(name, recordExt), true
}

func readRecord(abs string) ([]byte, bool, error) {
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENAMETOOLONG) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: read %s: %w", filepath.Base(abs), err)
	}
	return data, true, nil
}
