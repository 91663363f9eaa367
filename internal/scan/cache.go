package scan

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of file bodies kept in memory.
const DefaultCacheSize = 4096

// Cache serves file contents for the duration of one run. The include
// resolver, the checksum pass and entry-point detection all read the same
// files; the cache makes that one disk read per file.
type Cache struct {
	files *lru.Cache[string, []byte]
}

// NewCache creates a cache holding at most size files.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	files, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create source cache: %w", err)
	}
	return &Cache{files: files}, nil
}

// ReadFile returns the contents of p, reading it from disk on a miss.
func (c *Cache) ReadFile(p string) ([]byte, error) {
	if data, ok := c.files.Get(p); ok {
		return data, nil
	}
	data, err := os.ReadFile(filepath.FromSlash(p))
	if err != nil {
		return nil, err
	}
	c.files.Add(p, data)
	return data, nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.files.Len()
}
