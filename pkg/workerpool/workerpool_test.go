package workerpool

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/querycatalog"
)

func TestDispatchMergesPerChunkResults(t *testing.T) {
	p := New(querycatalog.New(), graph.NewASTCache(), WithWorkerCount(2))

	items := []Item{
		{Path: "a.go", Content: []byte("package m\nfunc Hello(){}\n")},
		{Path: "b.go", Content: []byte("package m\nfunc World(){}\n")},
		{Path: "c.go", Content: []byte("package m\nfunc Again(){}\n")},
	}

	var mu sync.Mutex
	var seen []string
	results, err := p.Dispatch(context.Background(), items, func(current, total int, path string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, path)
		assert.LessOrEqual(t, current, total)
		assert.Equal(t, 3, total)
	})

	require.NoError(t, err)
	assert.Len(t, seen, 3)

	var totalNodes int
	for _, r := range results {
		totalNodes += len(r.Nodes)
	}
	assert.Equal(t, 3, totalNodes)
}

func TestWithMaxFileSizeSkipsOversizedContent(t *testing.T) {
	p := New(querycatalog.New(), graph.NewASTCache(), WithMaxFileSize(10))

	items := []Item{{Path: "a.go", Content: []byte("package m\nfunc Hello(){}\n")}}
	results, err := p.Dispatch(context.Background(), items, nil)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Nodes)
}

func TestDispatchEmptyItems(t *testing.T) {
	p := New(querycatalog.New(), graph.NewASTCache())
	results, err := p.Dispatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestDispatchWithWarnFuncCompletesWithoutWarnings(t *testing.T) {
	var mu sync.Mutex
	var warnings []string
	p := New(querycatalog.New(), graph.NewASTCache(), WithWarnFunc(func(path, msg string) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, fmt.Sprintf("%s: %s", path, msg))
	}))

	// A .go file with content the grammar cannot recognize as valid still
	// parses (tree-sitter is error-tolerant), so there is no warning path
	// exercised by ordinary content; this test only asserts dispatch
	// completes cleanly when no warnings are produced.
	items := []Item{{Path: "ok.go", Content: []byte("package m\n")}}
	_, err := p.Dispatch(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
