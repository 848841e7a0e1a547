package graph

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// defaultASTCacheCapacity bounds the number of trees held at once. Chosen to
// keep memory proportional to a worker pool's in-flight chunk rather than
// the whole repository.
const defaultASTCacheCapacity = 256

// ASTCache is a bounded, opaque-eviction cache of parsed syntax trees, keyed
// by file path. Downstream resolvers (call-edge resolution, community
// detection) read from it as a side channel; parsing writes to it but never
// requires entries to persist. Consumers must tolerate absent entries.
type ASTCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	trees    map[string]*sitter.Tree
}

// NewASTCache creates a cache bounded at the default capacity.
func NewASTCache() *ASTCache {
	return NewASTCacheWithCapacity(defaultASTCacheCapacity)
}

// NewASTCacheWithCapacity creates a cache bounded at capacity entries. A
// non-positive capacity disables eviction (unbounded growth), intended only
// for tests on small inputs.
func NewASTCacheWithCapacity(capacity int) *ASTCache {
	return &ASTCache{
		capacity: capacity,
		trees:    make(map[string]*sitter.Tree),
	}
}

// Set stores (or replaces) the tree for filePath, evicting the
// longest-resident entry if the cache is at capacity. Eviction order is an
// implementation detail consumers must not depend on.
func (c *ASTCache) Set(filePath string, tree *sitter.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.trees[filePath]; !exists {
		c.order = append(c.order, filePath)
	}
	c.trees[filePath] = tree
	if c.capacity > 0 {
		for len(c.order) > c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.trees, oldest)
		}
	}
}

// Get returns the cached tree for filePath, if present. Callers must
// tolerate a miss: entries may be evicted at any time.
func (c *ASTCache) Get(filePath string) (*sitter.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tree, ok := c.trees[filePath]
	return tree, ok
}

// Release drops filePath's entry, if any, freeing the tree for GC. Part of
// the cache's explicit ownership-release contract.
func (c *ASTCache) Release(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.trees, filePath)
	for i, p := range c.order {
		if p == filePath {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the current number of cached entries.
func (c *ASTCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trees)
}
