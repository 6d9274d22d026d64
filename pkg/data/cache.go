package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CacheFileName is the name of the raw feed artifact inside the cache directory.
const CacheFileName = "epg_cache.xml"

// Cache stores the last downloaded, decompressed feed on disk. The file's
// modification time decides freshness; there is no separate metadata.
type Cache struct {
	path string
	now  func() time.Time
}

// NewCache creates a cache whose artifact lives in dir.
func NewCache(dir string) *Cache {
	return &Cache{
		path: filepath.Join(dir, CacheFileName),
		now:  time.Now,
	}
}

// Path returns the location of the cache artifact.
func (c *Cache) Path() string {
	return c.path
}

// Age returns how long ago the artifact was last written.
func (c *Cache) Age() (time.Duration, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	return c.now().Sub(info.ModTime()), nil
}

// IsFresh reports whether the artifact exists and is younger than maxAge.
func (c *Cache) IsFresh(maxAge time.Duration) bool {
	age, err := c.Age()
	if err != nil {
		return false
	}
	return age < maxAge
}

// Exists reports whether an artifact is present, fresh or not.
func (c *Cache) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Read returns the cached feed text.
func (c *Cache) Read() ([]byte, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrCacheIO, c.path, err)
	}
	return raw, nil
}

// Write replaces the artifact with raw. The content is written to a
// temporary file first so readers never observe a partial document.
func (c *Cache) Write(raw []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrCacheIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, CacheFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(raw)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %w", ErrCacheIO, tmpName, err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrCacheIO, err)
	}

	return nil
}
