package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeIDDeterministic(t *testing.T) {
	id1 := NodeID(LabelFunction, "a.go", "Hello")
	id2 := NodeID(LabelFunction, "a.go", "Hello")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, NodeID(LabelFunction, "a.go", "World"))
	assert.NotEqual(t, id1, NodeID(LabelMethod, "a.go", "Hello"))
}

func TestFileNodeID(t *testing.T) {
	id1 := FileNodeID("pkg/foo.go")
	id2 := FileNodeID("pkg/foo.go")
	assert.Equal(t, id1, id2)
	assert.Equal(t, NodeID(LabelFile, "pkg/foo.go", "pkg/foo.go"), id1)
}

func TestDefinesRelationshipIDDeterministic(t *testing.T) {
	fileID := FileNodeID("a.go")
	symID := NodeID(LabelFunction, "a.go", "Hello")
	id1 := DefinesRelationshipID(fileID, symID)
	id2 := DefinesRelationshipID(fileID, symID)
	assert.Equal(t, id1, id2)
}

func TestGraphAddNodeIdempotent(t *testing.T) {
	g := New()
	n := GraphNode{ID: "n1", Label: LabelFunction, Properties: NodeProperties{Name: "foo"}}
	g.AddNode(n)
	g.AddNode(n)
	assert.Equal(t, 1, g.NodeCount())

	got, ok := g.Node("n1")
	assert.True(t, ok)
	assert.Equal(t, "foo", got.Properties.Name)
}

func TestGraphAddNodeLastWriterWins(t *testing.T) {
	g := New()
	g.AddNode(GraphNode{ID: "n1", Label: LabelFunction, Properties: NodeProperties{Name: "v1"}})
	g.AddNode(GraphNode{ID: "n1", Label: LabelFunction, Properties: NodeProperties{Name: "v2"}})
	got, ok := g.Node("n1")
	assert.True(t, ok)
	assert.Equal(t, "v2", got.Properties.Name)
	assert.Equal(t, 1, g.NodeCount())
}

func TestGraphAddRelationshipIdempotent(t *testing.T) {
	g := New()
	rel := GraphRelationship{ID: "r1", SourceID: "a", TargetID: "b", Type: RelDefines, Confidence: 1.0}
	g.AddRelationship(rel)
	g.AddRelationship(rel)
	assert.Equal(t, 1, g.RelationshipCount())
}

func TestGraphRelationshipsByType(t *testing.T) {
	g := New()
	g.AddRelationship(GraphRelationship{ID: "r1", Type: RelDefines})
	g.AddRelationship(GraphRelationship{ID: "r2", Type: RelCalls})
	g.AddRelationship(GraphRelationship{ID: "r3", Type: RelCalls})
	assert.Len(t, g.RelationshipsByType(RelCalls), 2)
	assert.Len(t, g.RelationshipsByType(RelDefines), 1)
}
