// Package parser wraps tree-sitter to provide the grammar registry used by
// the rest of the knowledge graph pipeline: language detection from a file
// path, lazy per-process grammar compilation, and small AST-walking helpers
// shared by export detection and the parse worker.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is one of the stable language tags this module exposes. The tag
// set never grows without a corresponding query catalog entry.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangGo         Language = "go"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
	LangSwift      Language = "swift"
	LangUnknown    Language = "unknown"
)

// tsxInternal is used for .tsx/.jsx files: the registry still reports
// LangTypeScript/LangJavaScript externally (the spec's tag set has no
// separate TSX member) but compiles the JSX-aware grammar so the file
// actually parses.
const tsxInternal Language = "tsx-internal"

// DetectLanguage determines the language tag from a file path's extension.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts":
		return LangTypeScript
	case ".tsx":
		return LangTypeScript
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	case ".jsx":
		return LangJavaScript
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".java":
		return LangJava
	case ".c", ".h":
		return LangC
	case ".go":
		return LangGo
	case ".cpp", ".cc", ".cxx", ".hpp", ".hxx":
		return LangCPP
	case ".cs":
		return LangCSharp
	case ".rs":
		return LangRust
	case ".php":
		return LangPHP
	case ".swift":
		return LangSwift
	default:
		return LangUnknown
	}
}

// isJSXPath reports whether the path's extension should be parsed with the
// JSX-aware TSX grammar rather than the plain TypeScript/JavaScript grammar.
func isJSXPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx", ".jsx":
		return true
	default:
		return false
	}
}

// grammarEntry lazily compiles and caches a single tree-sitter language. Each
// grammar is compiled at most once per process lifetime, per the registry's
// contract.
type grammarEntry struct {
	once sync.Once
	lang *sitter.Language
}

var (
	registryMu sync.Mutex
	registry   = map[Language]*grammarEntry{}
)

func entryFor(lang Language) *grammarEntry {
	registryMu.Lock()
	defer registryMu.Unlock()
	e, ok := registry[lang]
	if !ok {
		e = &grammarEntry{}
		registry[lang] = e
	}
	return e
}

// GetTreeSitterLanguage resolves and lazily compiles the tree-sitter grammar
// for a language tag. The internal tsxInternal tag resolves to the JSX-aware
// grammar; Parse selects that tag for .tsx/.jsx paths.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	e := entryFor(lang)
	var err error
	e.once.Do(func() {
		switch lang {
		case LangGo:
			e.lang = golang.GetLanguage()
		case LangRust:
			e.lang = rust.GetLanguage()
		case LangPython:
			e.lang = python.GetLanguage()
		case LangTypeScript:
			e.lang = typescript.GetLanguage()
		case tsxInternal:
			e.lang = tsx.GetLanguage()
		case LangJavaScript:
			e.lang = javascript.GetLanguage()
		case LangJava:
			e.lang = java.GetLanguage()
		case LangC:
			e.lang = c.GetLanguage()
		case LangCPP:
			e.lang = cpp.GetLanguage()
		case LangCSharp:
			e.lang = csharp.GetLanguage()
		case LangPHP:
			e.lang = php.GetLanguage()
		case LangSwift:
			e.lang = swift.GetLanguage()
		default:
			err = fmt.Errorf("unsupported language: %s", lang)
		}
	})
	if e.lang == nil && err == nil {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return e.lang, err
}

// Parser wraps a tree-sitter parser for a single goroutine's use. Parser
// instances are not shared across goroutines; the worker pool creates one
// per worker.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and the metadata needed to interpret
// it (which grammar was used, the original bytes, and the originating path).
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// ParseFile reads path from disk and parses it.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(source, path)
}

// Parse parses source code for the given path, selecting the grammar from
// the path's extension (steering .tsx/.jsx at the JSX-aware grammar while
// still reporting the external typescript/javascript tag).
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	lang := DetectLanguage(path)
	if lang == LangUnknown {
		return nil, fmt.Errorf("unsupported language for file: %s", path)
	}

	compileTag := lang
	if isJSXPath(path) {
		compileTag = tsxInternal
	}

	tsLang, err := GetTreeSitterLanguage(compileTag)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// NodeVisitor is a function that visits AST nodes. Return false to stop
// descending into a node's children.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// Walk traverses the AST, calling visitor for each node in pre-order.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}
	if !visitor(node, source) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// Ancestors returns node's ancestor chain, nearest first, up to the root.
func Ancestors(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for p := node.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// GetNodeText extracts the source text for a node. Returns an empty string
// if node is nil or its byte offsets fall outside source.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
