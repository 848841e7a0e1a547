// Package workerpool distributes parse work across parallel worker contexts,
// each owning its own grammar instances and parser state, and merges each
// worker's chunk into a single ParseWorkerResult per chunk.
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/querycatalog"
	"github.com/srcgraph/srcgraph/pkg/worker"
)

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker
// count, matching the coordinator's CPU-bound parse workload.
const DefaultWorkerMultiplier = 2

// ProgressFunc reports cumulative progress by file count: current items
// processed across all chunks, the total item count, and the path just
// completed.
type ProgressFunc func(current, total int, path string)

// WarnFunc reports a non-fatal per-file failure. Never called with a nil
// path; may be nil to discard warnings.
type WarnFunc func(path, message string)

// Item is one unit of dispatch: a file's path and already-read content.
type Item struct {
	Path    string
	Content []byte
}

// Pool distributes items across a fixed number of worker goroutines, each
// backed by its own Worker instance so grammars and parser state are never
// shared across goroutines.
type Pool struct {
	catalog     *querycatalog.Registry
	astCache    *graph.ASTCache
	numWorkers  int
	maxFileSize int64
	warn        WarnFunc
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkerCount overrides the default NumCPU-derived worker count.
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.numWorkers = n
		}
	}
}

// WithMaxFileSize overrides the per-file byte cap each worker enforces.
// n <= 0 leaves the worker's own default in place.
func WithMaxFileSize(n int64) Option {
	return func(p *Pool) { p.maxFileSize = n }
}

// WithWarnFunc sets the callback invoked for each file that yields a
// non-fatal parse warning.
func WithWarnFunc(fn WarnFunc) Option {
	return func(p *Pool) { p.warn = fn }
}

// New creates a pool sized at runtime.NumCPU() * DefaultWorkerMultiplier
// unless overridden by WithWorkerCount.
func New(catalog *querycatalog.Registry, astCache *graph.ASTCache, opts ...Option) *Pool {
	p := &Pool{
		catalog:    catalog,
		astCache:   astCache,
		numWorkers: runtime.NumCPU() * DefaultWorkerMultiplier,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispatch splits items into per-worker chunks, parses each chunk
// sequentially within its worker, and returns one merged ParseWorkerResult
// per chunk. Progress callbacks report cumulative items-processed counts
// across all chunks, never by bytes. A context cancellation or a worker
// panic surfaces as a returned error; the caller (the coordinator) is
// responsible for falling back to sequential execution on any error.
func (p *Pool) Dispatch(ctx context.Context, items []Item, progress ProgressFunc) ([]worker.ParseWorkerResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	numWorkers := p.numWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(items) {
		numWorkers = len(items)
	}
	chunks := splitChunks(items, numWorkers)

	total := len(items)
	var processed atomic.Int32
	var mu sync.Mutex
	results := make([]worker.ParseWorkerResult, 0, len(chunks))

	runner := pool.New().WithMaxGoroutines(numWorkers).WithContext(ctx)
	for _, chunk := range chunks {
		chunk := chunk
		runner.Go(func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker panic: %v", r)
				}
			}()
			w := worker.New(p.catalog, p.astCache, p.maxFileSize)
			defer w.Close()

			var merged worker.ParseWorkerResult
			for _, item := range chunk {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				r := w.Parse(worker.ParseWorkerInput{Path: item.Path, Content: item.Content})
				if r.Warning != "" && p.warn != nil {
					p.warn(item.Path, r.Warning)
				}
				mergeResult(&merged, r)

				n := int(processed.Add(1))
				if progress != nil {
					progress(n, total, item.Path)
				}
			}

			mu.Lock()
			results = append(results, merged)
			mu.Unlock()
			return nil
		})
	}

	if err := runner.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func mergeResult(dst *worker.ParseWorkerResult, src worker.ParseWorkerResult) {
	dst.Nodes = append(dst.Nodes, src.Nodes...)
	dst.Relationships = append(dst.Relationships, src.Relationships...)
	dst.Symbols = append(dst.Symbols, src.Symbols...)
	dst.Imports = append(dst.Imports, src.Imports...)
	dst.Calls = append(dst.Calls, src.Calls...)
	dst.Heritage = append(dst.Heritage, src.Heritage...)
}

func splitChunks(items []Item, numWorkers int) [][]Item {
	chunks := make([][]Item, 0, numWorkers)
	chunkSize := (len(items) + numWorkers - 1) / numWorkers
	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
