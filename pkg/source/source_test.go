package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	src := NewFilesystem()

	content, err := src.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(content))

	_, err = src.Read(filepath.Join(dir, "missing.go"))
	assert.Error(t, err)
}
