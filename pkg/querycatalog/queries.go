// Package querycatalog holds, per supported language, the tree-sitter query
// pattern used to extract definitions, imports, calls and heritage from a
// parsed syntax tree. The catalog is data, not code: each pattern is an
// embedded .scm file captured verbatim, the same shape a reimplementation in
// another language would embed.
package querycatalog

import (
	"embed"
	"fmt"
	"path"
	"regexp"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcgraph/srcgraph/pkg/parser"
)

//go:embed queries/*/patterns.scm
var queryFiles embed.FS

// QuerySet is one language's compiled query plus the raw pattern it was
// compiled from, kept for diagnostics.
type QuerySet struct {
	Language parser.Language
	Pattern  string
	Query    *sitter.Query

	// cachedRegexes holds pre-compiled regexes for #match?/#not-match?
	// predicates, keyed by pattern index then predicate step index, so a
	// hot query loop never recompiles a regex per match.
	cachedRegexes map[uint32]map[int]*regexp.Regexp
}

// FilterPredicates re-checks a match's #eq?/#not-eq?/#match?/#not-match?
// predicates against input and returns m unchanged if they all pass, or nil
// if any predicate fails (the caller should skip the match).
func (qs *QuerySet) FilterPredicates(m *sitter.QueryMatch, input []byte) *sitter.QueryMatch {
	q := qs.Query
	predicates := q.PredicatesForPattern(uint32(m.PatternIndex))
	if len(predicates) == 0 {
		return m
	}
	patternRegexes := qs.cachedRegexes[uint32(m.PatternIndex)]

	for stepIdx, steps := range predicates {
		if len(steps) < 3 {
			continue
		}
		operator := q.StringValueForId(steps[0].ValueId)

		switch operator {
		case "eq?", "not-eq?":
			isPositive := operator == "eq?"
			leftName := q.CaptureNameForId(steps[1].ValueId)
			if steps[2].Type == sitter.QueryPredicateStepTypeCapture {
				rightName := q.CaptureNameForId(steps[2].ValueId)
				var left, right *sitter.Node
				for _, c := range m.Captures {
					switch q.CaptureNameForId(c.Index) {
					case leftName:
						left = c.Node
					case rightName:
						right = c.Node
					}
				}
				if left != nil && right != nil && (left.Content(input) == right.Content(input)) != isPositive {
					return nil
				}
			} else {
				expected := q.StringValueForId(steps[2].ValueId)
				for _, c := range m.Captures {
					if q.CaptureNameForId(c.Index) != leftName {
						continue
					}
					if (c.Node.Content(input) == expected) != isPositive {
						return nil
					}
				}
			}

		case "match?", "not-match?":
			isPositive := operator == "match?"
			captureName := q.CaptureNameForId(steps[1].ValueId)
			var re *regexp.Regexp
			if patternRegexes != nil {
				re = patternRegexes[stepIdx]
			}
			if re == nil {
				compiled, err := regexp.Compile(q.StringValueForId(steps[2].ValueId))
				if err != nil {
					return nil
				}
				re = compiled
			}
			for _, c := range m.Captures {
				if q.CaptureNameForId(c.Index) != captureName {
					continue
				}
				if re.MatchString(c.Node.Content(input)) != isPositive {
					return nil
				}
			}
		}
	}
	return m
}

func precompilePredicateRegexes(query *sitter.Query) map[uint32]map[int]*regexp.Regexp {
	result := make(map[uint32]map[int]*regexp.Regexp)
	for patternIdx := uint32(0); patternIdx < query.PatternCount(); patternIdx++ {
		predicates := query.PredicatesForPattern(patternIdx)
		if len(predicates) == 0 {
			continue
		}
		patternRegexes := make(map[int]*regexp.Regexp)
		for stepIdx, steps := range predicates {
			if len(steps) < 3 {
				continue
			}
			operator := query.StringValueForId(steps[0].ValueId)
			if operator != "match?" && operator != "not-match?" {
				continue
			}
			if re, err := regexp.Compile(query.StringValueForId(steps[2].ValueId)); err == nil {
				patternRegexes[stepIdx] = re
			}
		}
		if len(patternRegexes) > 0 {
			result[patternIdx] = patternRegexes
		}
	}
	return result
}

type entry struct {
	once    sync.Once
	set     *QuerySet
	err     error
	present bool
}

// Registry is a language-indexed lookup of compiled query sets. Compilation
// is lazy and happens at most once per language per registry, mirroring the
// grammar registry's per-process compile-once contract.
type Registry struct {
	mu      sync.Mutex
	entries map[parser.Language]*entry
}

// New creates an empty registry. Patterns are embedded at build time; New
// does no I/O itself, just allocates the per-language cache.
func New() *Registry {
	return &Registry{entries: make(map[parser.Language]*entry)}
}

func (r *Registry) entryFor(lang parser.Language) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[lang]
	if !ok {
		e = &entry{}
		r.entries[lang] = e
	}
	return e
}

// Get returns the compiled query set for lang. The second return value is
// false if the language has no catalog entry (the "missing query" case in
// the parse worker's contract: callers must silently skip extraction, not
// treat it as an error).
func (r *Registry) Get(lang parser.Language) (*QuerySet, bool, error) {
	e := r.entryFor(lang)
	e.once.Do(func() {
		raw, readErr := queryFiles.ReadFile(path.Join("queries", string(lang), "patterns.scm"))
		if readErr != nil {
			return
		}
		e.present = true

		tsLang, langErr := parser.GetTreeSitterLanguage(lang)
		if langErr != nil {
			e.err = fmt.Errorf("resolving grammar for %s: %w", lang, langErr)
			return
		}

		query, compileErr := sitter.NewQuery(raw, tsLang)
		if compileErr != nil {
			e.err = fmt.Errorf("compiling query for %s: %w", lang, compileErr)
			return
		}

		e.set = &QuerySet{
			Language:      lang,
			Pattern:       string(raw),
			Query:         query,
			cachedRegexes: precompilePredicateRegexes(query),
		}
	})
	if e.err != nil {
		return nil, e.present, e.err
	}
	if !e.present {
		return nil, false, nil
	}
	return e.set, true, nil
}

// Close releases all compiled queries held by the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.set != nil && e.set.Query != nil {
			e.set.Query.Close()
		}
	}
	r.entries = make(map[parser.Language]*entry)
}
