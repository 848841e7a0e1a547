package parser

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"main.go":        LangGo,
		"app.py":         LangPython,
		"app.pyi":        LangPython,
		"widget.ts":      LangTypeScript,
		"widget.tsx":     LangTypeScript,
		"widget.js":      LangJavaScript,
		"widget.jsx":     LangJavaScript,
		"Main.java":      LangJava,
		"lib.c":          LangC,
		"lib.h":          LangC,
		"lib.cpp":        LangCPP,
		"lib.hpp":        LangCPP,
		"Program.cs":     LangCSharp,
		"lib.rs":         LangRust,
		"index.php":      LangPHP,
		"App.swift":      LangSwift,
		"README.md":      LangUnknown,
		"no_extension":   LangUnknown,
		"archive.tar.gz": LangUnknown,
	}
	for path, want := range cases {
		assert.Equalf(t, want, DetectLanguage(path), "path=%s", path)
	}
}

func TestGrammarCompiledOncePerProcess(t *testing.T) {
	lang1, err := GetTreeSitterLanguage(LangGo)
	require.NoError(t, err)
	lang2, err := GetTreeSitterLanguage(LangGo)
	require.NoError(t, err)
	assert.Same(t, lang1, lang2)
}

func TestGetTreeSitterLanguageUnsupported(t *testing.T) {
	_, err := GetTreeSitterLanguage(LangUnknown)
	assert.Error(t, err)
}

func TestParseGo(t *testing.T) {
	p := New()
	defer p.Close()

	src := []byte("package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")
	result, err := p.Parse(src, "greeter.go")
	require.NoError(t, err)
	assert.Equal(t, LangGo, result.Language)
	assert.False(t, result.Tree.RootNode().HasError())
}

func TestParseJSXReportsJavaScriptTagExternally(t *testing.T) {
	p := New()
	defer p.Close()

	src := []byte("export function Widget() {\n\treturn <div>hi</div>\n}\n")
	result, err := p.Parse(src, "widget.jsx")
	require.NoError(t, err)
	assert.Equal(t, LangJavaScript, result.Language)
}

func TestParseUnsupportedExtension(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse([]byte("hello"), "notes.txt")
	assert.Error(t, err)
}

func TestWalkVisitsAllNodes(t *testing.T) {
	p := New()
	defer p.Close()

	src := []byte("package main\n\nfunc A() {}\nfunc B() {}\n")
	result, err := p.Parse(src, "two.go")
	require.NoError(t, err)

	count := 0
	Walk(result.Tree.RootNode(), result.Source, func(n *sitter.Node, source []byte) bool {
		count++
		return true
	})
	assert.Greater(t, count, 1)
}
