// Command graphgen is a thin demo line around the parsing and process-flow
// core: it discovers source files under the given paths, builds a code
// knowledge graph, traces process flows, and prints a summary. File
// discovery, output storage, and community detection are intentionally kept
// here rather than in the core packages — they are product-surface
// concerns, not part of the graph/process contract.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	toon "github.com/toon-format/toon-go"
	"github.com/urfave/cli/v2"

	"github.com/srcgraph/srcgraph/pkg/analyzer"
	"github.com/srcgraph/srcgraph/pkg/config"
	"github.com/srcgraph/srcgraph/pkg/coordinator"
	"github.com/srcgraph/srcgraph/pkg/entryscore"
	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/parser"
	"github.com/srcgraph/srcgraph/pkg/process"
	"github.com/srcgraph/srcgraph/pkg/querycatalog"
	"github.com/srcgraph/srcgraph/pkg/source"
	"github.com/srcgraph/srcgraph/pkg/workerpool"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused
	date    = "unknown" //nolint:unused
)

func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func main() {
	app := &cli.App{
		Name:    "graphgen",
		Usage:   "Build a code knowledge graph and trace process flows",
		Version: version,
		Description: `graphgen parses a codebase into a typed knowledge graph (definitions,
imports, calls, heritage) and detects plausible end-to-end process flows by
tracing forward-call paths from scored entry points.

Supports: Go, Python, JavaScript, TypeScript, Java, C, C++, C#, Rust, PHP, Swift`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"GRAPHGEN_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "text",
				Usage: "Output format: text, toon",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable the progress bar",
			},
		},
		Action: runGenerate,
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}
	// Mirrors a NODE_ENV=development flag: read once here, at the CLI
	// boundary, and carried from then on as a plain struct field — the core
	// never reads the environment itself.
	cfg.DevMode = strings.EqualFold(os.Getenv("NODE_ENV"), "development")
	return cfg, nil
}

func runGenerate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, err := discoverFiles(getPaths(c))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	g := graph.New()
	symbols := graph.NewSymbolTable()
	astCache := graph.NewASTCache()
	catalog := querycatalog.New()
	defer catalog.Close()

	showProgress := !c.Bool("no-progress")
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("parsing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	warnCount := 0
	warn := func(path, message string) {
		warnCount++
		if path == "" {
			color.Yellow("warning: %s", message)
			return
		}
		color.Yellow("warning: %s: %s", path, message)
	}

	pool := workerpool.New(catalog, astCache,
		workerpool.WithWarnFunc(warn),
		workerpool.WithWorkerCount(runtime.NumCPU()*cfg.Parsing.WorkerMultiplier),
		workerpool.WithMaxFileSize(cfg.Parsing.MaxFileSize),
	)

	progressFn := func(current, total int, path string) {
		if bar != nil {
			bar.Set(current)
		}
	}

	opts := coordinator.Options{
		Pool:                 pool,
		Progress:             progressFn,
		Warn:                 warn,
		SequentialYieldEvery: cfg.Parsing.SequentialYieldEvery,
		MaxFileSize:          cfg.Parsing.MaxFileSize,
	}

	ctx := context.Background()
	facts, procErrs, err := coordinator.Run(ctx, g, symbols, astCache, catalog, source.NewFilesystem(), files, opts)
	if bar != nil {
		bar.Finish()
		bar.Clear()
	}
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	if procErrs.HasErrors() {
		color.Yellow("%d files failed during parsing; see warnings above", len(procErrs.Errors))
	}

	memberships := demoMemberships(g)

	var tracker *analyzer.MessageTracker
	if showProgress {
		tracker = analyzer.NewMessageTracker(func(message string, progress int) {
			fmt.Fprintf(os.Stderr, "\r[%3d%%] %-30s", progress, message)
			if progress >= 100 {
				fmt.Fprintln(os.Stderr)
			}
		})
	} else {
		tracker = analyzer.NewMessageTracker(nil)
	}

	procCfg := process.Config{
		MaxTraceDepth:     cfg.Process.MaxTraceDepth,
		MaxBranching:      cfg.Process.MaxBranching,
		MaxProcesses:      cfg.Process.MaxProcesses,
		MinSteps:          cfg.Process.MinSteps,
		MinCallConfidence: cfg.Process.MinCallConfidence,
	}
	result := process.Detect(g, memberships, entryscore.Default, tracker.Report, procCfg)

	printSummary(c, g, facts, result, warnCount)
	return nil
}

// discoverFiles expands each path (file or directory) into the set of
// source files graphgen knows how to parse, skipping hidden directories and
// the usual dependency/build-output directories. This is a demo-level
// convenience, not a general-purpose scanner: no .gitignore support, no
// exclude patterns — the core treats file discovery as the caller's job.
func discoverFiles(paths []string) ([]string, error) {
	skipDirs := map[string]bool{
		".git": true, "node_modules": true, "vendor": true,
		"dist": true, "build": true, "target": true, ".venv": true,
	}

	seen := map[string]bool{}
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", root, err)
		}
		if !info.IsDir() {
			if parser.DetectLanguage(root) != parser.LangUnknown && !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			name := d.Name()
			if d.IsDir() {
				if name != "." && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				if skipDirs[name] {
					return filepath.SkipDir
				}
				return nil
			}
			if parser.DetectLanguage(path) == parser.LangUnknown {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, walkErr)
		}
	}
	sort.Strings(files)
	return files, nil
}

// demoMemberships assigns each node to a "community" named after its
// containing directory. Real community detection (module clustering by
// import/call density) is explicitly out of this core's scope — this is a
// cheap, deterministic stand-in so the demo CLI can exercise cross-community
// labeling on process nodes.
func demoMemberships(g *graph.Graph) process.Memberships {
	memberships := make(process.Memberships)
	for _, n := range g.Nodes() {
		dir := filepath.Dir(n.Properties.FilePath)
		if dir == "." || dir == "" {
			dir = "root"
		}
		memberships[n.ID] = dir
	}
	return memberships
}

func printSummary(c *cli.Context, g *graph.Graph, facts *coordinator.DeferredFacts, result process.Result, warnCount int) {
	format := c.String("format")

	if format == "toon" {
		payload := map[string]any{
			"nodes":         g.NodeCount(),
			"relationships": g.RelationshipCount(),
			"imports":       len(facts.Imports),
			"calls":         len(facts.Calls),
			"heritage":      len(facts.Heritage),
			"processes":     result.Processes,
			"stats":         result.Stats,
			"warnings":      warnCount,
		}
		out, err := toon.Marshal(payload, toon.WithIndent(2))
		if err != nil {
			color.Red("failed to render toon output: %v", err)
			return
		}
		fmt.Println(string(out))
		return
	}

	color.Green("Parsed into %d nodes, %d relationships, %d imports, %d calls (%d warnings)",
		g.NodeCount(), g.RelationshipCount(), len(facts.Imports), len(facts.Calls), warnCount)
	color.Cyan("Detected %d process flows (%d cross-community), steps avg %.1f / p50 %.0f / p90 %.0f, %d entry points scanned",
		result.Stats.TotalProcesses, result.Stats.CrossCommunityCount,
		result.Stats.AvgStepCount, result.Stats.P50StepCount, result.Stats.P90StepCount, result.Stats.EntryPointsFound)

	if len(result.Processes) == 0 {
		return
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header([]string{"Process", "Type", "Steps", "Flow"})
	limit := len(result.Processes)
	if limit > 20 {
		limit = 20
	}
	for _, p := range result.Processes[:limit] {
		table.Append([]string{p.ID, string(p.ProcessType), fmt.Sprintf("%d", p.StepCount), p.HeuristicLabel})
	}
	table.Render()
	if len(result.Processes) > limit {
		fmt.Printf("... and %d more\n", len(result.Processes)-limit)
	}
}
