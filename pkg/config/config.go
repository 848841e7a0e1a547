// Package config loads the tunables for the parsing pipeline and the
// process-flow detector. It never reads the files a run will analyze —
// only its own configuration document.
package config

import (
	stdjson "encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsonparser "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParsingConfig controls the grammar registry and parse worker.
type ParsingConfig struct {
	// MaxFileSize is the per-file byte cap; files larger than this are
	// skipped (without a warning) rather than parsed. 0 leaves the parse
	// worker's own 512 KiB default cap in place.
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"`

	// WorkerMultiplier scales runtime.NumCPU() to pick the worker pool size.
	WorkerMultiplier int `koanf:"worker_multiplier" toml:"worker_multiplier"`

	// SequentialYieldEvery is how many files the sequential fallback path
	// processes between yields to the Go scheduler.
	SequentialYieldEvery int `koanf:"sequential_yield_every" toml:"sequential_yield_every"`
}

// ProcessDetectorConfig controls process-flow tracing.
type ProcessDetectorConfig struct {
	MaxTraceDepth int `koanf:"max_trace_depth" toml:"max_trace_depth"`
	MaxBranching  int `koanf:"max_branching" toml:"max_branching"`
	MaxProcesses  int `koanf:"max_processes" toml:"max_processes"`
	MinSteps      int `koanf:"min_steps" toml:"min_steps"`

	// MinCallConfidence is the minimum CALLS edge confidence considered
	// when building the call graph to trace.
	MinCallConfidence float64 `koanf:"min_call_confidence" toml:"min_call_confidence"`
}

// Config holds every tunable this module reads at construction time.
type Config struct {
	Parsing ParsingConfig         `koanf:"parsing" toml:"parsing"`
	Process ProcessDetectorConfig `koanf:"process" toml:"process"`

	// DevMode mirrors a NODE_ENV=development style flag. It is carried as a
	// plain field on this record rather than read from the environment
	// anywhere inside the core; callers that want environment-driven
	// behavior set it explicitly after reading os.Getenv themselves.
	DevMode bool `koanf:"dev_mode" toml:"dev_mode"`
}

// DefaultConfig returns a config with the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Parsing: ParsingConfig{
			MaxFileSize:          512 * 1024,
			WorkerMultiplier:     2,
			SequentialYieldEvery: 20,
		},
		Process: ProcessDetectorConfig{
			MaxTraceDepth:     10,
			MaxBranching:      4,
			MaxProcesses:      75,
			MinSteps:          3,
			MinCallConfidence: 0.5,
		},
		DevMode: false,
	}
}

// configSchema is the JSON Schema used to validate a config document's
// shape before it is unmarshaled, catching malformed documents (wrong
// types, unexpected nesting) independently of the range checks in Validate.
const configSchema = `{
  "type": "object",
  "properties": {
    "parsing": {
      "type": "object",
      "properties": {
        "max_file_size": {"type": "integer", "minimum": 0},
        "worker_multiplier": {"type": "integer", "minimum": 1},
        "sequential_yield_every": {"type": "integer", "minimum": 1}
      }
    },
    "process": {
      "type": "object",
      "properties": {
        "max_trace_depth": {"type": "integer", "minimum": 1},
        "max_branching": {"type": "integer", "minimum": 1},
        "max_processes": {"type": "integer", "minimum": 1},
        "min_steps": {"type": "integer", "minimum": 1},
        "min_call_confidence": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "dev_mode": {"type": "boolean"}
  }
}`

func validateSchema(raw map[string]any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchema)); err != nil {
		return fmt.Errorf("failed to load config schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("config document failed schema validation: %w", err)
	}
	return nil
}

// Load reads a configuration document from path, validates its shape
// against the schema, and unmarshals it over DefaultConfig(). Unknown keys
// in the document are ignored.
func Load(path string) (*Config, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = jsonparser.Parser()
	default:
		parser = toml.Parser()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if schemaErr := validateAsJSON(raw, filepath.Ext(path)); schemaErr != nil {
		return nil, schemaErr
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// validateAsJSON re-decodes the already-parsed document as a generic
// map so the JSON Schema validator can check its shape regardless of
// source format (toml/yaml/json all collapse to the same tree shape).
func validateAsJSON(raw []byte, ext string) error {
	var doc map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		if err := stdjson.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("invalid json config: %w", err)
		}
	default:
		// TOML/YAML documents are decoded with the same parser Load picks
		// for the extension; a generic map round-trip through JSON keeps a
		// single schema-validation code path.
		var p koanf.Parser = toml.Parser()
		if e := strings.ToLower(ext); e == ".yaml" || e == ".yml" {
			p = yaml.Parser()
		}
		generic, err := p.Unmarshal(raw)
		if err != nil {
			return nil // let the koanf parser surface the real error
		}
		encoded, err := stdjson.Marshal(generic)
		if err != nil {
			return nil
		}
		if err := stdjson.Unmarshal(encoded, &doc); err != nil {
			return nil
		}
	}
	if doc == nil {
		return nil
	}
	return validateSchema(doc)
}

// FindConfigFile searches the standard locations for a config document.
func FindConfigFile() string {
	names := []string{"graphgen.toml", "graphgen.yaml", "graphgen.yml", "graphgen.json"}
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadOrDefault loads configuration from a standard location, or returns
// DefaultConfig() if none is present.
func LoadOrDefault() (*Config, error) {
	path := FindConfigFile()
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Validate checks that all config values are within acceptable ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Parsing.MaxFileSize < 0 {
		errs = append(errs, errors.New("parsing.max_file_size must be non-negative"))
	}
	if c.Parsing.WorkerMultiplier < 1 {
		errs = append(errs, errors.New("parsing.worker_multiplier must be at least 1"))
	}
	if c.Parsing.SequentialYieldEvery < 1 {
		errs = append(errs, errors.New("parsing.sequential_yield_every must be at least 1"))
	}

	if c.Process.MaxTraceDepth < 1 {
		errs = append(errs, errors.New("process.max_trace_depth must be at least 1"))
	}
	if c.Process.MaxBranching < 1 {
		errs = append(errs, errors.New("process.max_branching must be at least 1"))
	}
	if c.Process.MaxProcesses < 1 {
		errs = append(errs, errors.New("process.max_processes must be at least 1"))
	}
	if c.Process.MinSteps < 1 {
		errs = append(errs, errors.New("process.min_steps must be at least 1"))
	}
	if c.Process.MinCallConfidence < 0 || c.Process.MinCallConfidence > 1 {
		errs = append(errs, errors.New("process.min_call_confidence must be between 0 and 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsFileTooLarge reports whether size exceeds maxSize. maxSize <= 0 means
// no limit is enforced.
func IsFileTooLarge(size int64, maxSize int64) bool {
	if maxSize <= 0 {
		return false
	}
	return size > maxSize
}
