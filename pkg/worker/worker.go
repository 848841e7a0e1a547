// Package worker implements the parse worker: it turns one file's content
// into graph nodes, a DEFINES relationship per symbol, and the deferred
// facts (imports, calls, heritage) a downstream resolver consumes.
package worker

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcgraph/srcgraph/pkg/graph"
	"github.com/srcgraph/srcgraph/pkg/parser"
	"github.com/srcgraph/srcgraph/pkg/querycatalog"
)

// defaultMaxFileSize is the hard cap on content length the grammar registry
// will attempt to parse, bounding parser memory, used when a Worker is
// constructed with maxFileSize <= 0.
const defaultMaxFileSize = 512 * 1024

// definitionPriority lists the definition capture suffixes in the same
// order as the closed label set, so a match carrying more than one
// @definition.* capture resolves deterministically to the first-listed kind.
var definitionPriority = []struct {
	capture string
	label   graph.NodeLabel
}{
	{"function", graph.LabelFunction},
	{"method", graph.LabelMethod},
	{"class", graph.LabelClass},
	{"interface", graph.LabelInterface},
	{"struct", graph.LabelStruct},
	{"enum", graph.LabelEnum},
	{"namespace", graph.LabelNamespace},
	{"module", graph.LabelModule},
	{"trait", graph.LabelTrait},
	{"impl", graph.LabelImpl},
	{"typealias", graph.LabelTypeAlias},
	{"const", graph.LabelConst},
	{"static", graph.LabelStatic},
	{"typedef", graph.LabelTypedef},
	{"macro", graph.LabelMacro},
	{"union", graph.LabelUnion},
	{"property", graph.LabelProperty},
	{"record", graph.LabelRecord},
	{"delegate", graph.LabelDelegate},
	{"annotation", graph.LabelAnnotation},
	{"constructor", graph.LabelConstructor},
	{"template", graph.LabelTemplate},
}

// ParseWorkerInput is the wire-format input contract: a file path and its
// content, plain structured data so the worker could run out of process.
type ParseWorkerInput struct {
	Path    string
	Content []byte
}

// ParseWorkerResult is the wire-format output contract.
type ParseWorkerResult struct {
	Nodes         []graph.GraphNode
	Relationships []graph.GraphRelationship
	Symbols       []SymbolAssignment
	Imports       []graph.ExtractedImport
	Calls         []graph.ExtractedCall
	Heritage      []graph.ExtractedHeritage
	// Warning is set when the file produced no output because of a
	// non-fatal per-file failure (unparseable content, a query
	// compilation error). Empty on a clean empty result (e.g. unsupported
	// language, oversized file).
	Warning string
}

// SymbolAssignment is one row to be added to the symbol table once the
// coordinator has a single-writer view of it.
type SymbolAssignment struct {
	FilePath string
	Name     string
	NodeID   string
	Label    graph.NodeLabel
}

// Worker parses files and extracts graph contributions. A Worker owns its
// own tree-sitter parser state and must not be shared across goroutines; the
// worker pool creates one per concurrent slot.
type Worker struct {
	parser      *parser.Parser
	catalog     *querycatalog.Registry
	astCache    *graph.ASTCache
	maxFileSize int64
}

// New creates a parse worker. catalog may be shared across workers (it is
// read-only after first compile); astCache may be nil to skip tree caching.
// maxFileSize <= 0 falls back to defaultMaxFileSize.
func New(catalog *querycatalog.Registry, astCache *graph.ASTCache, maxFileSize int64) *Worker {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &Worker{
		parser:      parser.New(),
		catalog:     catalog,
		astCache:    astCache,
		maxFileSize: maxFileSize,
	}
}

// Close releases the worker's parser resources.
func (w *Worker) Close() {
	w.parser.Close()
}

// Parse runs the full parse-worker contract against one file. It never
// returns an error for file-level problems (unsupported language, oversized
// content, parse failure, missing/broken query) — those degrade to an empty
// result, optionally carrying a Warning the caller should log.
func (w *Worker) Parse(input ParseWorkerInput) ParseWorkerResult {
	lang := parser.DetectLanguage(input.Path)
	if lang == parser.LangUnknown {
		return ParseWorkerResult{}
	}
	if int64(len(input.Content)) > w.maxFileSize {
		return ParseWorkerResult{}
	}

	result, err := w.parser.Parse(input.Content, input.Path)
	if err != nil {
		return ParseWorkerResult{Warning: fmt.Sprintf("skipping %s: %v", input.Path, err)}
	}

	if w.astCache != nil {
		w.astCache.Set(input.Path, result.Tree)
	}

	qs, present, err := w.catalog.Get(lang)
	if err != nil {
		return ParseWorkerResult{Warning: fmt.Sprintf("skipping %s: query compilation: %v", input.Path, err)}
	}
	if !present {
		// No catalog entry for this language: parsing succeeded, but
		// extraction stays off per the missing-query policy.
		return ParseWorkerResult{}
	}

	return w.extract(input.Path, lang, input.Content, result.Tree, qs)
}

func (w *Worker) extract(filePath string, lang parser.Language, source []byte, tree *sitter.Tree, qs *querycatalog.QuerySet) ParseWorkerResult {
	var out ParseWorkerResult

	fileID := graph.FileNodeID(filePath)

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(qs.Query, tree.RootNode())

	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = qs.FilterPredicates(match, source)
		if match == nil {
			continue
		}

		captures := captureMap(qs.Query, match)
		w.dispatchMatch(filePath, lang, source, fileID, captures, &out)
	}

	return out
}

func captureMap(query *sitter.Query, match *sitter.QueryMatch) map[string]*sitter.Node {
	m := make(map[string]*sitter.Node, len(match.Captures))
	for _, c := range match.Captures {
		name := query.CaptureNameForId(c.Index)
		m[name] = c.Node
	}
	return m
}

func (w *Worker) dispatchMatch(filePath string, lang parser.Language, source []byte, fileID string, captures map[string]*sitter.Node, out *ParseWorkerResult) {
	if n, ok := captures["import.source"]; ok {
		out.Imports = append(out.Imports, graph.ExtractedImport{
			FilePath: filePath,
			Source:   trimQuotes(parser.GetNodeText(n, source)),
		})
		return
	}

	if n, ok := captures["call.name"]; ok {
		out.Calls = append(out.Calls, graph.ExtractedCall{
			FilePath:   filePath,
			CalleeName: parser.GetNodeText(n, source),
			Line:       int(n.StartPoint().Row) + 1,
		})
		return
	}

	if childName, ok := captures["heritage.class"]; ok {
		childText := parser.GetNodeText(childName, source)
		for capture, kind := range map[string]graph.HeritageKind{
			"heritage.extends":    graph.HeritageExtends,
			"heritage.implements": graph.HeritageImplements,
			"heritage.trait":      graph.HeritageTrait,
		} {
			if parentNode, ok := captures[capture]; ok {
				out.Heritage = append(out.Heritage, graph.ExtractedHeritage{
					FilePath:   filePath,
					ChildName:  childText,
					ParentName: parser.GetNodeText(parentNode, source),
					Kind:       kind,
				})
			}
		}
		return
	}

	nameNode, ok := captures["name"]
	if !ok {
		// Malformed capture: a definition pattern fired without @name.
		return
	}

	label, ok := resolveLabel(captures)
	if !ok {
		label = graph.LabelCodeElement
	}

	name := parser.GetNodeText(nameNode, source)
	nodeID := graph.NodeID(label, filePath, name)
	isExported := IsExported(nameNode, name, source, lang)

	defNode := definitionNode(captures, label)

	out.Nodes = append(out.Nodes, graph.GraphNode{
		ID:    nodeID,
		Label: label,
		Properties: graph.NodeProperties{
			Name:       name,
			FilePath:   filePath,
			StartLine:  int(nameNode.StartPoint().Row) + 1,
			EndLine:    int(nameNode.EndPoint().Row) + 1,
			Language:   string(lang),
			IsExported: isExported,
			Signature:  callableSignature(label, defNode, source),
			ClassName:  enclosingClassName(label, defNode, nameNode, source),
		},
	})

	out.Symbols = append(out.Symbols, SymbolAssignment{
		FilePath: filePath,
		Name:     name,
		NodeID:   nodeID,
		Label:    label,
	})

	out.Relationships = append(out.Relationships, graph.GraphRelationship{
		ID:         graph.DefinesRelationshipID(fileID, nodeID),
		SourceID:   fileID,
		TargetID:   nodeID,
		Type:       graph.RelDefines,
		Confidence: 1.0,
		Reason:     "file defines symbol",
	})
}

// resolveLabel picks the label for a definition match by the first present
// @definition.<kind> capture, in the closed set's priority order.
func resolveLabel(captures map[string]*sitter.Node) (graph.NodeLabel, bool) {
	for _, candidate := range definitionPriority {
		if _, ok := captures["definition."+candidate.capture]; ok {
			return candidate.label, true
		}
	}
	return "", false
}

// definitionNode returns the outer @definition.<kind> node for label, if the
// match carried one.
func definitionNode(captures map[string]*sitter.Node, label graph.NodeLabel) *sitter.Node {
	for _, candidate := range definitionPriority {
		if candidate.label != label {
			continue
		}
		if n, ok := captures["definition."+candidate.capture]; ok {
			return n
		}
	}
	return nil
}

// callableLabels is the subset of the closed label set that can carry a
// parameter list.
var callableLabels = map[graph.NodeLabel]bool{
	graph.LabelFunction:    true,
	graph.LabelMethod:      true,
	graph.LabelConstructor: true,
}

// callableSignature extracts a best-effort textual signature (parameters
// plus a return type where the grammar exposes one under a "result" or
// "return_type" field) from defNode. Returns "" when label isn't callable,
// defNode is nil, or the grammar exposes no "parameters" field under this
// node.
func callableSignature(label graph.NodeLabel, defNode *sitter.Node, source []byte) string {
	if !callableLabels[label] || defNode == nil {
		return ""
	}
	params := defNode.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	sig := parser.GetNodeText(params, source)
	if ret := defNode.ChildByFieldName("result"); ret != nil {
		sig += " " + parser.GetNodeText(ret, source)
	} else if ret := defNode.ChildByFieldName("return_type"); ret != nil {
		sig += " " + parser.GetNodeText(ret, source)
	}
	return sig
}

// classContainerTypes lists the grammar node types across languages that
// introduce a class-like container a Method/Constructor can be nested in.
var classContainerTypes = []string{
	"class_declaration", "class_definition", "class_specifier",
	"struct_specifier", "struct_declaration", "interface_declaration",
	"trait_item", "impl_item",
}

// enclosingClassName resolves the enclosing type name for a Method or
// Constructor node, for Method/Constructor nodes only. Go methods carry
// their receiver type directly on defNode rather than through syntactic
// nesting, so that case is checked first; everything else walks nameNode's
// ancestors for a class-like container. Returns "" when label isn't a
// member kind or no container/receiver was found.
func enclosingClassName(label graph.NodeLabel, defNode, nameNode *sitter.Node, source []byte) string {
	if label != graph.LabelMethod && label != graph.LabelConstructor {
		return ""
	}
	if defNode != nil {
		if recv := defNode.ChildByFieldName("receiver"); recv != nil {
			if t := receiverTypeName(recv, source); t != "" {
				return t
			}
		}
	}
	for _, a := range boundedAncestors(nameNode) {
		if !containsString(classContainerTypes, a.Type()) {
			continue
		}
		if n := a.ChildByFieldName("name"); n != nil {
			return parser.GetNodeText(n, source)
		}
		if n := a.ChildByFieldName("type"); n != nil {
			return parser.GetNodeText(n, source)
		}
	}
	return ""
}

// receiverTypeName extracts the receiver type name from a Go method's
// parameter_list receiver node, stripping a leading pointer indirection.
func receiverTypeName(recv *sitter.Node, source []byte) string {
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		decl := recv.NamedChild(i)
		typeNode := decl.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if typeNode.Type() == "pointer_type" {
			if inner := typeNode.ChildByFieldName("type"); inner != nil {
				return parser.GetNodeText(inner, source)
			}
		}
		return parser.GetNodeText(typeNode, source)
	}
	return ""
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
