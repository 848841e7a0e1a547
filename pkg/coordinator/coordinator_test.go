package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/querycatalog"
	"github.com/srcgraph/srcgraph/pkg/worker"
	"github.com/srcgraph/srcgraph/pkg/workerpool"
)

type memSource struct {
	files map[string][]byte
}

func (m memSource) Read(path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return content, nil
}

type failingPool struct{}

func (failingPool) Dispatch(ctx context.Context, items []workerpool.Item, progress workerpool.ProgressFunc) ([]worker.ParseWorkerResult, error) {
	return nil, errors.New("pool exploded")
}

func TestRunSequentialWhenNoPool(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	src := memSource{files: map[string][]byte{
		"a.go": []byte("package m\nfunc Hello(){}\n"),
		"b.go": []byte("package m\nfunc World(){}\n"),
	}}

	facts, errs, err := Run(context.Background(), g, symbols, astCache, catalog, src, []string{"a.go", "b.go"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, facts)
	require.NotNil(t, errs)
	assert.False(t, errs.HasErrors())
	assert.Equal(t, 2, g.NodeCount())
}

func TestRunFiltersUnknownLanguages(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	src := memSource{files: map[string][]byte{
		"a.go":      []byte("package m\nfunc Hello(){}\n"),
		"README.md": []byte("# hi"),
	}}

	facts, _, err := Run(context.Background(), g, symbols, astCache, catalog, src, []string{"a.go", "README.md"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.Equal(t, 1, g.NodeCount())
}

func TestRunFallsBackToSequentialOnPoolError(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	src := memSource{files: map[string][]byte{
		"a.go": []byte("package m\nfunc Hello(){}\n"),
	}}

	var warnings []string
	facts, _, err := Run(context.Background(), g, symbols, astCache, catalog, src, []string{"a.go"}, Options{
		Pool: failingPool{},
		Warn: func(path, msg string) { warnings = append(warnings, msg) },
	})
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.Equal(t, 1, g.NodeCount())
	assert.NotEmpty(t, warnings)
}

func TestRunAlwaysReturnsDeferredFactsNeverNil(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	src := memSource{files: map[string][]byte{
		"a.go": []byte("package m\nimport \"fmt\"\nfunc Hello(){ fmt.Println(\"hi\") }\n"),
	}}

	facts, _, err := Run(context.Background(), g, symbols, astCache, catalog, src, []string{"a.go"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.NotEmpty(t, facts.Imports)
	assert.NotEmpty(t, facts.Calls)
}

func TestRunSequentialHonorsMaxFileSizeOption(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	src := memSource{files: map[string][]byte{
		"a.go": []byte("package m\nfunc Hello(){}\n"),
	}}

	facts, _, err := Run(context.Background(), g, symbols, astCache, catalog, src, []string{"a.go"}, Options{MaxFileSize: 10})
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.Equal(t, 0, g.NodeCount())
}

func TestRunRecordsUnreadableFileInProcessingErrors(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	src := memSource{files: map[string][]byte{
		"a.go": []byte("package m\nfunc Hello(){}\n"),
	}}

	facts, errs, err := Run(context.Background(), g, symbols, astCache, catalog, src, []string{"a.go", "missing.go"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, facts)
	require.NotNil(t, errs)
	assert.True(t, errs.HasErrors())
	assert.Len(t, errs.Errors, 1)
	assert.Equal(t, "missing.go", errs.Errors[0].Path)
}

func TestRunEmptyInputYieldsEmptyResult(t *testing.T) {
	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	facts, errs, err := Run(context.Background(), g, symbols, astCache, catalog, memSource{files: map[string][]byte{}}, nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, facts)
	assert.NotNil(t, errs)
	assert.Empty(t, facts.Imports)
	assert.Equal(t, 0, g.NodeCount())
}
