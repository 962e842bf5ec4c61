// Package rendercache provides the content-addressed store of rendered
// intermediate clips, persisted across process runs.
//
// Correctness assumes the content at a source path never changes between
// cache writes and reads; only path and render parameters are fingerprinted,
// not the source bytes. When that assumption breaks the caller must Clear.
package rendercache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/logging"
	"github.com/montagekit/montage/internal/util"
)

const tableFile = "cachedb.json"

// Fingerprint identifies a rendered clip. Two clips with equal fingerprints
// are assumed interchangeable.
type Fingerprint struct {
	SourcePath   string
	Start        float64
	End          float64
	Style        string
	Width        int
	Height       int
	PanDirection string
	PixelFormat  string
	IncludeAudio bool
}

// Key returns the cache key for the fingerprint.
func (f Fingerprint) Key() string {
	abs, err := filepath.Abs(f.SourcePath)
	if err != nil {
		abs = f.SourcePath
	}
	name := fmt.Sprintf("%s%v%v%s%d%d%s%s%v",
		abs, f.Start, f.End, f.Style, f.Width, f.Height,
		f.PanDirection, f.PixelFormat, f.IncludeAudio)
	return fmt.Sprintf("%x", md5.Sum([]byte(name)))
}

// Cache maps fingerprints to intermediate file paths. The table is loaded
// lazily and written back after every insertion, trading write amplification
// for crash safety. A file lock serializes the table across processes
// sharing one scratch directory.
type Cache struct {
	dir  string
	lock *flock.Flock
	log  *slog.Logger

	mu      sync.Mutex
	entries map[string]string
	loaded  bool
}

// New creates a cache rooted at the given scratch directory. The table is
// not read until the first Lookup or Store.
func New(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, tableFile+".lock")),
		log:  logging.WithComponent(logger, "rendercache"),
	}
}

// Dir returns the scratch directory the cache lives in.
func (c *Cache) Dir() string {
	return c.dir
}

// ensure loads the table from disk once.
func (c *Cache) ensure() error {
	if c.loaded {
		return nil
	}
	if err := util.EnsureDirectory(c.dir); err != nil {
		return errors.NewIOError("failed to create scratch directory", err)
	}

	c.entries = make(map[string]string)
	c.loaded = true

	path := filepath.Join(c.dir, tableFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIOError("failed to read cache table", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		// A corrupt table costs re-renders, not correctness.
		c.log.Warn("cache table unreadable, starting empty", slog.Any("error", err))
		c.entries = make(map[string]string)
	}
	return nil
}

// Lookup returns the cached intermediate path for a fingerprint. Entries
// whose files have vanished from the scratch dir are dropped from the
// persisted table and treated as misses.
func (c *Cache) Lookup(fp Fingerprint) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return "", false, err
	}
	path, ok := c.entries[fp.Key()]
	if !ok {
		return "", false, nil
	}
	if !util.FileExists(path) {
		delete(c.entries, fp.Key())
		if err := c.save(); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return path, true, nil
}

// Store records a rendered intermediate and persists the table immediately.
func (c *Cache) Store(fp Fingerprint, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(); err != nil {
		return err
	}
	c.entries[fp.Key()] = path
	return c.save()
}

// save writes the table under the file lock.
func (c *Cache) save() error {
	if err := c.lock.Lock(); err != nil {
		return errors.NewIOError("failed to lock cache table", err)
	}
	defer func() { _ = c.lock.Unlock() }()

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return errors.NewIOError("failed to encode cache table", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, tableFile), data, 0644); err != nil {
		return errors.NewIOError("failed to write cache table", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(); err != nil {
		return 0, err
	}
	return len(c.entries), nil
}

// Entries returns a copy of the table for inspection.
func (c *Cache) Entries() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out, nil
}

// Clear removes every file in the scratch directory, including the table,
// and empties the in-memory map. Required when source file contents change
// under a previously fingerprinted path.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !util.DirectoryExists(c.dir) {
		c.entries = make(map[string]string)
		c.loaded = true
		return nil
	}

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return errors.NewIOError("failed to list scratch directory", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, f.Name())); err != nil {
			return errors.NewIOError("failed to delete scratch file "+f.Name(), err)
		}
	}

	c.entries = make(map[string]string)
	c.loaded = true
	return nil
}
