package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.EqualValues(t, 512*1024, cfg.Parsing.MaxFileSize)
	assert.Equal(t, 2, cfg.Parsing.WorkerMultiplier)
	assert.Equal(t, 20, cfg.Parsing.SequentialYieldEvery)

	assert.Equal(t, 10, cfg.Process.MaxTraceDepth)
	assert.Equal(t, 4, cfg.Process.MaxBranching)
	assert.Equal(t, 75, cfg.Process.MaxProcesses)
	assert.Equal(t, 3, cfg.Process.MinSteps)
	assert.Equal(t, 0.5, cfg.Process.MinCallConfidence)

	assert.False(t, cfg.DevMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphgen.toml")
	doc := `
dev_mode = true

[parsing]
max_file_size = 1048576

[process]
max_trace_depth = 6
max_branching = 2
max_processes = 50
min_steps = 2
min_call_confidence = 0.75
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
	assert.EqualValues(t, 1048576, cfg.Parsing.MaxFileSize)
	assert.Equal(t, 6, cfg.Process.MaxTraceDepth)
	assert.Equal(t, 0.75, cfg.Process.MinCallConfidence)
	// Keys absent from the document keep their defaults.
	assert.Equal(t, 2, cfg.Parsing.WorkerMultiplier)
}

func TestLoadRejectsOutOfRangeSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphgen.toml")
	doc := `
[process]
min_call_confidence = 5.0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCatchesBadRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Process.MaxBranching = 0
	cfg.Parsing.WorkerMultiplier = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process.max_branching")
	assert.Contains(t, err.Error(), "parsing.worker_multiplier")
}

func TestIsFileTooLarge(t *testing.T) {
	assert.False(t, IsFileTooLarge(100, 0))
	assert.False(t, IsFileTooLarge(100, 200))
	assert.True(t, IsFileTooLarge(300, 200))
}

func TestFindConfigFileNoneAndDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(wd) }()
	require.NoError(t, os.Chdir(dir))

	assert.Equal(t, "", FindConfigFile())

	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
