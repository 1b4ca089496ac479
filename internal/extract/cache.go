package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes per-file extraction results across watch-mode runs,
// keyed by path and content hash so edits invalidate naturally.
type Cache struct {
	entries *lru.Cache[string, []Relationship]
}

// NewCache returns a cache bounded to the given number of files.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, []Relationship](size)
	if err != nil {
		return nil, fmt.Errorf("create extraction cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached edges for a file content, if present.
func (c *Cache) Get(path string, content []byte) ([]Relationship, bool) {
	return c.entries.Get(cacheKey(path, content))
}

// Put stores the edges extracted from a file content.
func (c *Cache) Put(path string, content []byte, rels []Relationship) {
	c.entries.Add(cacheKey(path, content), rels)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func cacheKey(path string, content []byte) string {
	sum := sha256.Sum256(content)
	return path + "@" + hex.EncodeToString(sum[:])
}
