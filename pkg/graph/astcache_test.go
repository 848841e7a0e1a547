package graph

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"

	"github.com/srcgraph/srcgraph/pkg/parser"
)

func parseTree(t *testing.T, path string, source string) *sitter.Tree {
	t.Helper()
	p := parser.New()
	defer p.Close()
	result, err := p.Parse([]byte(source), path)
	assert.NoError(t, err)
	return result.Tree
}

func TestASTCacheSetAndGet(t *testing.T) {
	c := NewASTCache()
	tree := parseTree(t, "a.go", "package a\nfunc Hello() {}\n")
	c.Set("a.go", tree)

	got, ok := c.Get("a.go")
	assert.True(t, ok)
	assert.Same(t, tree, got)
}

func TestASTCacheMissTolerated(t *testing.T) {
	c := NewASTCache()
	_, ok := c.Get("missing.go")
	assert.False(t, ok)
}

func TestASTCacheRelease(t *testing.T) {
	c := NewASTCache()
	tree := parseTree(t, "a.go", "package a\nfunc Hello() {}\n")
	c.Set("a.go", tree)
	c.Release("a.go")
	_, ok := c.Get("a.go")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestASTCacheEvictsAtCapacity(t *testing.T) {
	c := NewASTCacheWithCapacity(2)
	c.Set("a.go", parseTree(t, "a.go", "package a\n"))
	c.Set("b.go", parseTree(t, "b.go", "package a\n"))
	c.Set("c.go", parseTree(t, "c.go", "package a\n"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a.go")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("c.go")
	assert.True(t, ok)
}
