// Package graph defines the knowledge-graph data model: typed nodes for code
// definitions, typed relationships between them, deterministic id hashing,
// the symbol table, and the bounded AST cache that post-parse consumers read
// from.
package graph

// NodeLabel is one of the closed set of definition kinds a symbol node may
// carry. CodeElement is the fallback for constructs a language's query
// catalog recognizes but cannot classify more precisely.
type NodeLabel string

const (
	LabelFile        NodeLabel = "File"
	LabelFunction    NodeLabel = "Function"
	LabelMethod      NodeLabel = "Method"
	LabelClass       NodeLabel = "Class"
	LabelInterface   NodeLabel = "Interface"
	LabelStruct      NodeLabel = "Struct"
	LabelEnum        NodeLabel = "Enum"
	LabelNamespace   NodeLabel = "Namespace"
	LabelModule      NodeLabel = "Module"
	LabelTrait       NodeLabel = "Trait"
	LabelImpl        NodeLabel = "Impl"
	LabelTypeAlias   NodeLabel = "TypeAlias"
	LabelConst       NodeLabel = "Const"
	LabelStatic      NodeLabel = "Static"
	LabelTypedef     NodeLabel = "Typedef"
	LabelMacro       NodeLabel = "Macro"
	LabelUnion       NodeLabel = "Union"
	LabelProperty    NodeLabel = "Property"
	LabelRecord      NodeLabel = "Record"
	LabelDelegate    NodeLabel = "Delegate"
	LabelAnnotation  NodeLabel = "Annotation"
	LabelConstructor NodeLabel = "Constructor"
	LabelTemplate    NodeLabel = "Template"
	LabelCodeElement NodeLabel = "CodeElement"
)

// RelationshipType is one of the relationship kinds this core emits or
// consumes. CALLS is produced by an external resolver and only ever read by
// this core.
type RelationshipType string

const (
	RelDefines RelationshipType = "DEFINES"
	RelCalls   RelationshipType = "CALLS"
)

// NodeProperties carries the fields every GraphNode's properties bag always
// has, regardless of label.
type NodeProperties struct {
	Name       string `json:"name"`
	FilePath   string `json:"filePath"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Language   string `json:"language"`
	IsExported bool   `json:"isExported"`

	// Signature is the textual parameter/return signature, populated on a
	// best-effort basis where the grammar exposes a "parameters" field.
	// Empty when the worker could not extract one.
	Signature string `json:"signature,omitempty"`
	// ClassName is the enclosing Class/Struct/Trait/Impl name for a Method
	// or Constructor node, populated on a best-effort basis. Empty for
	// every other label, or when no container was found.
	ClassName string `json:"className,omitempty"`
}

// GraphNode is a single definition or file node. Id is a deterministic hash
// of (label, "filePath:name") so re-ingesting the same file yields the same
// id.
type GraphNode struct {
	ID         string         `json:"id"`
	Label      NodeLabel      `json:"label"`
	Properties NodeProperties `json:"properties"`
}

// GraphRelationship is a directed, confidence-weighted edge between two
// nodes. Reason is a short human-readable note on why the edge was emitted
// (e.g. "file defines symbol", or a resolver's matching strategy).
type GraphRelationship struct {
	ID         string           `json:"id"`
	SourceID   string           `json:"sourceId"`
	TargetID   string           `json:"targetId"`
	Type       RelationshipType `json:"type"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
}

// ExtractedImport is a deferred fact: an import statement found during
// parsing, resolved by a downstream, out-of-core component.
type ExtractedImport struct {
	FilePath string `json:"filePath"`
	Source   string `json:"source"`
}

// ExtractedCall is a deferred fact: a call site found during parsing.
// CallerContextNodeID is empty when the call occurs outside any tracked
// symbol (e.g. at module scope).
type ExtractedCall struct {
	FilePath            string `json:"filePath"`
	CallerContextNodeID string `json:"callerContextNodeId,omitempty"`
	CalleeName          string `json:"calleeName"`
	Line                int    `json:"line"`
}

// HeritageKind distinguishes the three inheritance relationships the query
// catalog can surface.
type HeritageKind string

const (
	HeritageExtends    HeritageKind = "extends"
	HeritageImplements HeritageKind = "implements"
	HeritageTrait      HeritageKind = "trait"
)

// ExtractedHeritage is a deferred fact: a class/struct/trait relationship
// found during parsing, resolved by a downstream component into a graph
// relationship once both ends are known.
type ExtractedHeritage struct {
	FilePath   string       `json:"filePath"`
	ChildName  string       `json:"childName"`
	ParentName string       `json:"parentName"`
	Kind       HeritageKind `json:"kind"`
}
