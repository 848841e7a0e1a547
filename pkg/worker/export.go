package worker

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/srcgraph/srcgraph/pkg/parser"
)

// maxAncestorWalk bounds the ancestor-chain walk export detection performs.
// Syntax trees have no cycles, but a defensive cap keeps a pathological
// grammar from making this loop unbounded.
const maxAncestorWalk = 64

// IsExported decides whether a symbol is exported, given its name node, the
// extracted name text, and the language it was parsed in. The rule is
// deterministic per (language, surrounding syntax): it never depends on file
// order or on any other file.
func IsExported(nameNode *sitter.Node, name string, source []byte, lang parser.Language) bool {
	switch lang {
	case parser.LangPython:
		return !strings.HasPrefix(name, "_")
	case parser.LangGo:
		return isGoExportedName(name)
	case parser.LangJavaScript, parser.LangTypeScript:
		return jsExported(nameNode, source)
	case parser.LangJava:
		return javaExported(nameNode, source)
	case parser.LangCSharp:
		return ancestorTypeContainsToken(nameNode, source, []string{"modifier", "modifiers"}, "public")
	case parser.LangRust:
		return ancestorTypeContainsToken(nameNode, source, []string{"visibility_modifier"}, "pub")
	case parser.LangSwift:
		return ancestorTypeContainsAnyToken(nameNode, source, []string{"modifiers", "visibility_modifier"}, []string{"public", "open"})
	case parser.LangC, parser.LangCPP:
		return false
	default:
		return false
	}
}

func isGoExportedName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r) && unicode.ToUpper(r) != unicode.ToLower(r)
}

func jsExported(nameNode *sitter.Node, source []byte) bool {
	ancestors := boundedAncestors(nameNode)
	for _, a := range ancestors {
		switch a.Type() {
		case "export_statement", "export_specifier":
			return true
		case "lexical_declaration":
			if p := a.Parent(); p != nil && p.Type() == "export_statement" {
				return true
			}
			if strings.HasPrefix(strings.TrimSpace(parser.GetNodeText(a, source)), "export ") {
				return true
			}
		}
	}
	return false
}

func javaExported(nameNode *sitter.Node, source []byte) bool {
	ancestors := boundedAncestors(nameNode)
	for _, a := range ancestors {
		for i := 0; i < int(a.ChildCount()); i++ {
			child := a.Child(i)
			if child.Type() == "modifiers" && strings.Contains(parser.GetNodeText(child, source), "public") {
				return true
			}
		}
		if a.Type() == "method_declaration" || a.Type() == "constructor_declaration" {
			if strings.HasPrefix(strings.TrimSpace(parser.GetNodeText(a, source)), "public") {
				return true
			}
		}
	}
	return false
}

func ancestorTypeContainsToken(nameNode *sitter.Node, source []byte, types []string, token string) bool {
	return ancestorTypeContainsAnyToken(nameNode, source, types, []string{token})
}

func ancestorTypeContainsAnyToken(nameNode *sitter.Node, source []byte, types []string, tokens []string) bool {
	for _, a := range boundedAncestors(nameNode) {
		if !containsString(types, a.Type()) {
			continue
		}
		text := parser.GetNodeText(a, source)
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				return true
			}
		}
	}
	return false
}

func boundedAncestors(node *sitter.Node) []*sitter.Node {
	all := parser.Ancestors(node)
	if len(all) > maxAncestorWalk {
		return all[:maxAncestorWalk]
	}
	return all
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
