package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srcgraph/srcgraph/pkg/parser"
)

func TestGoExportedNames(t *testing.T) {
	assert.True(t, isGoExportedName("Hello"))
	assert.False(t, isGoExportedName("hello"))
	assert.False(t, isGoExportedName("_Hello"))
	assert.False(t, isGoExportedName("世"))
}

func TestPythonExportRule(t *testing.T) {
	assert.True(t, IsExported(nil, "foo", nil, parser.LangPython))
	assert.False(t, IsExported(nil, "_bar", nil, parser.LangPython))
}

func TestCAndCppNeverExported(t *testing.T) {
	assert.False(t, IsExported(nil, "anything", nil, parser.LangC))
	assert.False(t, IsExported(nil, "anything", nil, parser.LangCPP))
}
