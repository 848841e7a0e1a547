// Package process implements the process-flow detector: it consumes a
// completed graph (after CALLS resolution and community detection),
// selects entry-point symbols, traces forward-call paths by bounded
// breadth-first search, deduplicates, and emits process nodes with ordered
// step memberships.
package process

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/srcgraph/srcgraph/pkg/entryscore"
	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/stats"
)

// ProcessType distinguishes a trace that stays within one community from
// one that crosses module boundaries.
type ProcessType string

const (
	ProcessIntraCommunity ProcessType = "intra_community"
	ProcessCrossCommunity ProcessType = "cross_community"
)

// Node is a named trace exposed as a first-class graph node.
type Node struct {
	ID             string
	Label          string
	HeuristicLabel string
	ProcessType    ProcessType
	StepCount      int
	Communities    []string
	EntryPointID   string
	TerminalID     string
	Trace          []string
}

// Step is one node's 1-indexed position within a process's trace.
type Step struct {
	NodeID    string
	ProcessID string
	Step      int
}

// Stats summarizes one detection run.
type Stats struct {
	TotalProcesses      int
	CrossCommunityCount int
	AvgStepCount        float64
	// P50StepCount and P90StepCount are the median and 90th-percentile step
	// counts across the emitted processes, letting a caller see the tail of
	// the distribution the average alone hides.
	P50StepCount     float64
	P90StepCount     float64
	EntryPointsFound int
}

// Result is the full output of one detection run.
type Result struct {
	Processes []Node
	Steps     []Step
	Stats     Stats
}

// Memberships maps a node id to its externally-supplied community id.
type Memberships map[string]string

// Config controls the bounds on tracing and selection. Defaults match
// spec.md §4.6.
type Config struct {
	MaxTraceDepth     int
	MaxBranching      int
	MaxProcesses      int
	MinSteps          int
	MinCallConfidence float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxTraceDepth:     10,
		MaxBranching:      4,
		MaxProcesses:      75,
		MinSteps:          3,
		MinCallConfidence: 0.5,
	}
}

// ProgressFunc reports coarse (message, percentage) progress, distinct from
// the per-file progress callback parsing uses.
type ProgressFunc func(message string, progress int)

func report(progress ProgressFunc, message string, pct int) {
	if progress != nil {
		progress(message, pct)
	}
}

// Detect runs the full process-flow detection pipeline against g. scorer
// selects and ranks entry-point candidates; passing entryscore.Default gives
// the shipped weight table, but any function matching entryscore.Scorer is
// accepted — this core treats scoring as opaque.
func Detect(g *graph.Graph, memberships Memberships, scorer entryscore.Scorer, progress ProgressFunc, cfg Config) Result {
	report(progress, "building call graph", 5)
	adj, rev := buildAdjacency(g, cfg.MinCallConfidence)

	report(progress, "selecting entry points", 20)
	candidates, found := selectEntryPoints(g, adj, rev, scorer)

	report(progress, "tracing call paths", 40)
	traces := traceAll(candidates, adj, cfg)

	report(progress, "deduplicating traces", 75)
	deduped := dedupeTraces(traces)

	sort.SliceStable(deduped, func(i, j int) bool { return len(deduped[i]) > len(deduped[j]) })
	if len(deduped) > cfg.MaxProcesses {
		deduped = deduped[:cfg.MaxProcesses]
	}

	report(progress, "emitting processes", 90)
	result := emit(g, memberships, deduped)
	result.Stats.EntryPointsFound = found

	report(progress, "done", 100)
	return result
}

type callEdge struct {
	target     string
	confidence float64
}

// buildAdjacency builds forward and reverse adjacency lists from CALLS
// edges whose confidence meets minConfidence, sorted by target id so
// iteration order — and therefore every downstream decision that depends on
// "first N callees in adjacency order" — is independent of the graph's
// internal (unordered) relationship storage.
func buildAdjacency(g *graph.Graph, minConfidence float64) (forward, reverse map[string][]callEdge) {
	forward = make(map[string][]callEdge)
	reverse = make(map[string][]callEdge)

	for _, rel := range g.RelationshipsByType(graph.RelCalls) {
		if rel.Confidence < minConfidence {
			continue
		}
		forward[rel.SourceID] = append(forward[rel.SourceID], callEdge{target: rel.TargetID, confidence: rel.Confidence})
		reverse[rel.TargetID] = append(reverse[rel.TargetID], callEdge{target: rel.SourceID, confidence: rel.Confidence})
	}

	for _, edges := range forward {
		sortEdges(edges)
	}
	for _, edges := range reverse {
		sortEdges(edges)
	}
	return forward, reverse
}

func sortEdges(edges []callEdge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].target < edges[j].target })
}

type candidate struct {
	nodeID string
	score  int
}

// selectEntryPoints iterates Function/Method nodes in deterministic (sorted
// by id) order, skips test files, rejects zero-callee symbols, scores the
// remainder, keeps positive scores, and returns at most the top 200 sorted
// descending by score (ties broken by the deterministic input order), plus
// the number of positive-score candidates found before that cap.
func selectEntryPoints(g *graph.Graph, adj, rev map[string][]callEdge, scorer entryscore.Scorer) ([]candidate, int) {
	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var scored []candidate
	for _, n := range nodes {
		if n.Label != graph.LabelFunction && n.Label != graph.LabelMethod {
			continue
		}
		if entryscore.IsTestFile(n.Properties.FilePath) {
			continue
		}
		calleeCount := len(adj[n.ID])
		if calleeCount == 0 {
			continue
		}
		callerCount := len(rev[n.ID])

		result := scorer(entryscore.Input{
			Name:        n.Properties.Name,
			Language:    n.Properties.Language,
			IsExported:  n.Properties.IsExported,
			CallerCount: callerCount,
			CalleeCount: calleeCount,
			FilePath:    n.Properties.FilePath,
		})
		if result.Score <= 0 {
			continue
		}
		scored = append(scored, candidate{nodeID: n.ID, score: result.Score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	found := len(scored)
	if len(scored) > 200 {
		scored = scored[:200]
	}
	return scored, found
}

// traceAll runs the bounded BFS from every candidate entry point, honoring
// both the per-entry trace-count stop (maxBranching*3) and the global
// all-traces stop (maxProcesses*2).
func traceAll(candidates []candidate, adj map[string][]callEdge, cfg Config) [][]string {
	var all [][]string
	globalLimit := cfg.MaxProcesses * 2

	for _, c := range candidates {
		if len(all) >= globalLimit {
			break
		}
		perEntryLimit := cfg.MaxBranching * 3
		entryTraces := traceFrom(c.nodeID, adj, cfg, perEntryLimit)
		all = append(all, entryTraces...)
	}
	return all
}

type queueItem struct {
	node     string
	path     []string
	pathBits *roaring.Bitmap
}

// pathInterner assigns small integer ids to node ids encountered while
// tracing a single entry point, so membership in the path-so-far can be
// tested with a roaring bitmap instead of a linear scan.
type pathInterner struct {
	ids map[string]uint32
}

func newPathInterner() *pathInterner {
	return &pathInterner{ids: make(map[string]uint32)}
}

func (p *pathInterner) idFor(nodeID string) uint32 {
	if id, ok := p.ids[nodeID]; ok {
		return id
	}
	id := uint32(len(p.ids))
	p.ids[nodeID] = id
	return id
}

func traceFrom(entry string, adj map[string][]callEdge, cfg Config, limit int) [][]string {
	interner := newPathInterner()
	var traces [][]string

	startBits := roaring.New()
	startBits.Add(interner.idFor(entry))

	queue := []queueItem{{node: entry, path: []string{entry}, pathBits: startBits}}

	for len(queue) > 0 && len(traces) < limit {
		item := queue[0]
		queue = queue[1:]

		callees := adj[item.node]
		if len(callees) == 0 {
			if len(item.path) >= cfg.MinSteps {
				traces = append(traces, item.path)
			}
			continue
		}
		if len(item.path) >= cfg.MaxTraceDepth {
			if len(item.path) >= cfg.MinSteps {
				traces = append(traces, item.path)
			}
			continue
		}

		branched := false
		count := 0
		for _, callee := range callees {
			if count >= cfg.MaxBranching {
				break
			}
			count++
			if item.pathBits.Contains(interner.idFor(callee.target)) {
				continue // cycle avoidance
			}
			branched = true

			nextBits := item.pathBits.Clone()
			nextBits.Add(interner.idFor(callee.target))
			nextPath := make([]string, len(item.path)+1)
			copy(nextPath, item.path)
			nextPath[len(item.path)] = callee.target

			queue = append(queue, queueItem{node: callee.target, path: nextPath, pathBits: nextBits})
		}

		if !branched && len(item.path) >= cfg.MinSteps {
			traces = append(traces, item.path)
		}
	}

	return traces
}

// dedupeTraces applies subset removal then endpoint collapse, in that
// order, per spec.md §4.6.
func dedupeTraces(traces [][]string) [][]string {
	sort.SliceStable(traces, func(i, j int) bool { return len(traces[i]) > len(traces[j]) })

	keys := make([]string, len(traces))
	for i, t := range traces {
		keys[i] = traceKey(t)
	}

	var survivors [][]string
	var survivorKeys []string
	for i, t := range traces {
		isSubset := false
		for _, sk := range survivorKeys {
			if strings.Contains(sk, keys[i]) {
				isSubset = true
				break
			}
		}
		if isSubset {
			continue
		}
		survivors = append(survivors, t)
		survivorKeys = append(survivorKeys, keys[i])
	}

	type endpointKey struct{ entry, terminal string }
	best := make(map[endpointKey][]string)
	var order []endpointKey
	for _, t := range survivors {
		ek := endpointKey{entry: t[0], terminal: t[len(t)-1]}
		if existing, ok := best[ek]; !ok || len(t) > len(existing) {
			if !ok {
				order = append(order, ek)
			}
			best[ek] = t
		}
	}

	out := make([][]string, 0, len(order))
	for _, ek := range order {
		out = append(out, best[ek])
	}
	return out
}

func traceKey(trace []string) string {
	return strings.Join(trace, "->")
}

func emit(g *graph.Graph, memberships Memberships, traces [][]string) Result {
	sort.SliceStable(traces, func(i, j int) bool { return len(traces[i]) > len(traces[j]) })

	var result Result
	var stepCounts []float64

	for idx, trace := range traces {
		communitySet := map[string]struct{}{}
		for _, nodeID := range trace {
			if c, ok := memberships[nodeID]; ok {
				communitySet[c] = struct{}{}
			}
		}
		communities := make([]string, 0, len(communitySet))
		for c := range communitySet {
			communities = append(communities, c)
		}
		sort.Strings(communities)

		processType := ProcessIntraCommunity
		if len(communities) > 1 {
			processType = ProcessCrossCommunity
		}

		entryNode, _ := g.Node(trace[0])
		terminalNode, _ := g.Node(trace[len(trace)-1])

		id := fmt.Sprintf("proc_%d_%s", idx, sanitize(entryNode.Properties.Name))

		node := Node{
			ID:             id,
			Label:          "Process",
			HeuristicLabel: capitalize(entryNode.Properties.Name) + " → " + capitalize(terminalNode.Properties.Name),
			ProcessType:    processType,
			StepCount:      len(trace),
			Communities:    communities,
			EntryPointID:   trace[0],
			TerminalID:     trace[len(trace)-1],
			Trace:          trace,
		}
		result.Processes = append(result.Processes, node)

		for i, nodeID := range trace {
			result.Steps = append(result.Steps, Step{NodeID: nodeID, ProcessID: id, Step: i + 1})
		}

		stepCounts = append(stepCounts, float64(len(trace)))
		if processType == ProcessCrossCommunity {
			result.Stats.CrossCommunityCount++
		}
	}

	sort.Float64s(stepCounts)
	result.Stats.TotalProcesses = len(result.Processes)
	result.Stats.AvgStepCount = stats.MeanRoundedTo(stepCounts, 1)
	result.Stats.P50StepCount = stats.Percentile(stepCounts, 50)
	result.Stats.P90StepCount = stats.Percentile(stepCounts, 90)
	return result
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "symbol"
	}
	return b.String()
}
