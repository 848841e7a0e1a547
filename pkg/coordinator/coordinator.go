// Package coordinator orchestrates the parse worker pool (or a sequential
// fallback), merging every worker's contribution into a single graph and
// symbol table on one writer context.
package coordinator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/srcgraph/srcgraph/internal/fileproc"
	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/parser"
	"github.com/srcgraph/srcgraph/pkg/querycatalog"
	"github.com/srcgraph/srcgraph/pkg/source"
	"github.com/srcgraph/srcgraph/pkg/worker"
	"github.com/srcgraph/srcgraph/pkg/workerpool"
)

// defaultSequentialYieldEvery is how often the sequential fallback yields to
// the scheduler, letting other goroutines run between file batches.
const defaultSequentialYieldEvery = 20

// DeferredFacts aggregates the imports, calls, and heritage records parsing
// produced, for a downstream resolver to consume. Unlike the asymmetric
// contract some reimplementations of this pipeline carry, this coordinator
// always returns accumulated facts, whether the pool or the sequential path
// ran — see the note on runSequential below.
type DeferredFacts struct {
	Imports  []graph.ExtractedImport
	Calls    []graph.ExtractedCall
	Heritage []graph.ExtractedHeritage
}

func (f *DeferredFacts) absorb(r worker.ParseWorkerResult) {
	f.Imports = append(f.Imports, r.Imports...)
	f.Calls = append(f.Calls, r.Calls...)
	f.Heritage = append(f.Heritage, r.Heritage...)
}

// Pool is the subset of *workerpool.Pool the coordinator depends on, kept as
// an interface so tests can substitute a pool that fails on demand to
// exercise the sequential-fallback path.
type Pool interface {
	Dispatch(ctx context.Context, items []workerpool.Item, progress workerpool.ProgressFunc) ([]worker.ParseWorkerResult, error)
}

// WarnFunc reports a non-fatal failure: a file that could not be read, a
// per-file parse warning, or a pool dispatch failure that triggered the
// sequential fallback.
type WarnFunc func(path, message string)

// Options configures a single coordination Run.
type Options struct {
	// Pool is optional. When nil, the sequential fallback always runs.
	Pool Pool
	// Progress reports cumulative items-processed counts, never bytes.
	Progress workerpool.ProgressFunc
	// Warn receives non-fatal diagnostics. May be nil to discard them.
	Warn WarnFunc
	// SequentialYieldEvery overrides how many files the sequential
	// fallback processes between scheduler yields. Defaults to 20.
	SequentialYieldEvery int
	// MaxFileSize overrides the per-file byte cap the sequential fallback's
	// worker enforces. <= 0 leaves the worker's own default in place.
	MaxFileSize int64
}

// Run parses files, merging contributions into g, symbols, and astCache on
// this single writer context, and returns the aggregated deferred facts
// plus a ProcessingErrors record of every path that failed to read, and,
// on the sequential path, of every path whose parse produced a warning (on
// the pooled path, parse warnings reach only the pool's own WarnFunc and
// are not recorded here) — mirroring the teacher's fan-out error-collection idiom
// (internal/fileproc.ProcessingErrors) alongside the WarnFunc diagnostic
// hook, rather than in place of it: WarnFunc is for a live sink (the CLI's
// colored warnings), ProcessingErrors is for a caller that wants the full
// list back. catalog supplies the per-language query patterns the
// sequential fallback needs to build its own Worker; when a pool is used,
// the pool owns its workers' catalogs instead.
//
// Scheduling: when opts.Pool is set, files with an unrecognized language are
// filtered out first, then the remainder is dispatched to the pool. Any
// error from the pool (including context cancellation) falls back to the
// sequential path below rather than failing the run.
func Run(ctx context.Context, g *graph.Graph, symbols *graph.SymbolTable, astCache *graph.ASTCache, catalog *querycatalog.Registry, src source.ContentSource, files []string, opts Options) (*DeferredFacts, *fileproc.ProcessingErrors, error) {
	errs := &fileproc.ProcessingErrors{}

	known := filterKnownLanguage(files)
	if len(known) == 0 {
		return &DeferredFacts{}, errs, nil
	}

	if opts.Pool != nil {
		if facts, ok := runPooled(ctx, g, symbols, src, known, opts, errs); ok {
			return facts, errs, nil
		}
	}

	facts, err := runSequential(ctx, g, symbols, astCache, catalog, src, known, opts, errs)
	return facts, errs, err
}

func runPooled(ctx context.Context, g *graph.Graph, symbols *graph.SymbolTable, src source.ContentSource, files []string, opts Options, errs *fileproc.ProcessingErrors) (*DeferredFacts, bool) {
	items := make([]workerpool.Item, 0, len(files))
	for _, path := range files {
		content, err := src.Read(path)
		if err != nil {
			opts.warn(path, fmt.Sprintf("reading file: %v", err))
			errs.Add(path, err)
			continue
		}
		items = append(items, workerpool.Item{Path: path, Content: content})
	}

	results, err := opts.Pool.Dispatch(ctx, items, opts.Progress)
	if err != nil {
		opts.warn("", fmt.Sprintf("worker pool dispatch failed, falling back to sequential: %v", err))
		return nil, false
	}

	facts := &DeferredFacts{}
	for _, r := range results {
		applyResult(g, symbols, r)
		facts.absorb(r)
	}
	return facts, true
}

// runSequential is single-threaded: it writes directly to g and symbols
// (there is no merge step) and yields to the scheduler every
// SequentialYieldEvery files. It performs the same per-file logic as a pool
// worker, including accumulating deferred facts — this coordinator always
// returns facts regardless of which path ran, resolving the asymmetry
// between the two paths rather than signaling it with a null return.
func runSequential(ctx context.Context, g *graph.Graph, symbols *graph.SymbolTable, astCache *graph.ASTCache, catalog *querycatalog.Registry, src source.ContentSource, files []string, opts Options, errs *fileproc.ProcessingErrors) (*DeferredFacts, error) {
	yieldEvery := opts.SequentialYieldEvery
	if yieldEvery <= 0 {
		yieldEvery = defaultSequentialYieldEvery
	}

	w := worker.New(catalog, astCache, opts.MaxFileSize)
	defer w.Close()

	facts := &DeferredFacts{}
	total := len(files)

	for i, path := range files {
		select {
		case <-ctx.Done():
			return facts, ctx.Err()
		default:
		}

		content, err := src.Read(path)
		if err != nil {
			opts.warn(path, fmt.Sprintf("reading file: %v", err))
			errs.Add(path, err)
		} else {
			r := w.Parse(worker.ParseWorkerInput{Path: path, Content: content})
			if r.Warning != "" {
				opts.warn(path, r.Warning)
				errs.Add(path, fmt.Errorf("%s", r.Warning))
			}
			applyResult(g, symbols, r)
			facts.absorb(r)
		}

		if opts.Progress != nil {
			opts.Progress(i+1, total, path)
		}
		if (i+1)%yieldEvery == 0 {
			runtime.Gosched()
		}
	}

	return facts, nil
}

func applyResult(g *graph.Graph, symbols *graph.SymbolTable, r worker.ParseWorkerResult) {
	for _, n := range r.Nodes {
		g.AddNode(n)
	}
	for _, rel := range r.Relationships {
		g.AddRelationship(rel)
	}
	for _, s := range r.Symbols {
		symbols.Add(s.FilePath, s.Name, s.NodeID, s.Label)
	}
}

func filterKnownLanguage(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if parser.DetectLanguage(f) != parser.LangUnknown {
			out = append(out, f)
		}
	}
	return out
}

func (o Options) warn(path, message string) {
	if o.Warn != nil {
		o.Warn(path, message)
	}
}
