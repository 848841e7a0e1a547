// Package entryscore is the concrete, swappable implementation of the
// process detector's entry-point scoring function. The detector treats
// scoring as opaque (depends on the Scorer function type, not this package
// directly) so a caller may supply a different weight table without
// touching the detector.
package entryscore

import (
	"regexp"
	"strings"
)

// Input is everything the scoring function is told about a candidate entry
// point symbol.
type Input struct {
	Name        string
	Language    string
	IsExported  bool
	CallerCount int
	CalleeCount int
	FilePath    string
}

// Result is the score plus the reasons that contributed to it, useful for
// dev-mode logging.
type Result struct {
	Score   int
	Reasons []string
}

// Scorer is the function type the process detector depends on.
type Scorer func(Input) Result

var handlerPrefixPattern = regexp.MustCompile(`(?i)^(handle|on|serve)`)

// testFilePattern matches common test-file naming conventions across the
// eleven supported languages: *_test.go, test_*.py, *.test.ts, *.spec.js,
// and files under a test(s)/ directory.
var testFilePattern = regexp.MustCompile(`(?i)(_test\.|(^|[/\\])test_|\.test\.|\.spec\.|(^|[/\\])tests?[/\\])`)

// Default is the shipped scorer: additive, capped, floored at zero.
//
//   - +2 if the symbol is exported.
//   - +3 if the name looks like a request handler (handle*/on*/serve*, or
//     ends in Controller/Handler).
//   - +1 per unit of calleeCount/(callerCount+1), capped at +4 — symbols
//     that fan out a lot relative to how often they're called make
//     plausible traces starts.
//   - -1 if the file path looks like a test file (belt and suspenders with
//     the detector's own pre-filter).
func Default(in Input) Result {
	var score int
	var reasons []string

	if in.IsExported {
		score += 2
		reasons = append(reasons, "exported")
	}

	if isHandlerLike(in.Name) {
		score += 3
		reasons = append(reasons, "handler-like name")
	}

	if bonus := fanOutBonus(in.CalleeCount, in.CallerCount); bonus > 0 {
		score += bonus
		reasons = append(reasons, "high callee/caller ratio")
	}

	if IsTestFile(in.FilePath) {
		score -= 1
		reasons = append(reasons, "test file")
	}

	if score < 0 {
		score = 0
	}
	return Result{Score: score, Reasons: reasons}
}

func isHandlerLike(name string) bool {
	if handlerPrefixPattern.MatchString(name) {
		return true
	}
	return strings.HasSuffix(name, "Controller") || strings.HasSuffix(name, "Handler")
}

const fanOutCap = 4

func fanOutBonus(calleeCount, callerCount int) int {
	ratio := calleeCount / (callerCount + 1)
	if ratio > fanOutCap {
		return fanOutCap
	}
	return ratio
}

// IsTestFile reports whether path matches a common test-file naming
// convention. Exported so the process detector's own entry-point pre-filter
// can share the same heuristic.
func IsTestFile(path string) bool {
	return testFilePattern.MatchString(path)
}
