// Package codeintel provides AST-level code navigation: symbol outlines,
// symbol lookup by name, reference finding, and regex pattern search.
// Parsing uses tree-sitter for Go, JavaScript, TypeScript and Python;
// everything else falls back to line-based regex matching.
package codeintel

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// language describes how one grammar maps onto symbol kinds.
type language struct {
	Name string
	TS   *sitter.Language

	// declKinds maps a top-level declaration node type to the symbol
	// kind it produces.
	declKinds map[string]string
	// classKinds are container declarations whose bodies hold methods.
	classKinds map[string]bool
	// identifierKinds are node types counted as references to a name.
	identifierKinds map[string]bool
}

var languages = map[string]*language{
	"go": {
		Name: "go",
		TS:   golang.GetLanguage(),
		declKinds: map[string]string{
			"function_declaration": "function",
			"method_declaration":   "method",
			"type_declaration":     "type",
			"const_declaration":    "constant",
			"var_declaration":      "variable",
		},
		classKinds: map[string]bool{},
		identifierKinds: map[string]bool{
			"identifier": true, "type_identifier": true, "field_identifier": true,
			"package_identifier": true,
		},
	},
	"python": {
		Name: "python",
		TS:   python.GetLanguage(),
		declKinds: map[string]string{
			"function_definition": "function",
			"class_definition":    "class",
		},
		classKinds: map[string]bool{"class_definition": true},
		identifierKinds: map[string]bool{
			"identifier": true,
		},
	},
	"javascript": {
		Name: "javascript",
		TS:   javascript.GetLanguage(),
		declKinds: map[string]string{
			"function_declaration": "function",
			"class_declaration":    "class",
			"lexical_declaration":  "variable",
			"variable_declaration": "variable",
		},
		classKinds: map[string]bool{"class_declaration": true},
		identifierKinds: map[string]bool{
			"identifier": true, "property_identifier": true,
			"shorthand_property_identifier": true,
		},
	},
	"typescript": {
		Name: "typescript",
		TS:   typescript.GetLanguage(),
		declKinds: map[string]string{
			"function_declaration":   "function",
			"class_declaration":      "class",
			"interface_declaration":  "interface",
			"type_alias_declaration": "type",
			"lexical_declaration":    "variable",
			"variable_declaration":   "variable",
		},
		classKinds: map[string]bool{"class_declaration": true},
		identifierKinds: map[string]bool{
			"identifier": true, "type_identifier": true, "property_identifier": true,
			"shorthand_property_identifier": true,
		},
	},
	"tsx": {
		Name: "tsx",
		TS:   tsx.GetLanguage(),
		declKinds: map[string]string{
			"function_declaration":   "function",
			"class_declaration":      "class",
			"interface_declaration":  "interface",
			"type_alias_declaration": "type",
			"lexical_declaration":    "variable",
			"variable_declaration":   "variable",
		},
		classKinds: map[string]bool{"class_declaration": true},
		identifierKinds: map[string]bool{
			"identifier": true, "type_identifier": true, "property_identifier": true,
		},
	},
}

var extToLang = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".mjs": "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
}

// detectLanguage returns the grammar for a file path, or nil for
// unsupported extensions.
func detectLanguage(path string) *language {
	name, ok := extToLang[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil
	}
	return languages[name]
}

// SupportedExtensions lists the extensions tree-sitter parsing covers.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extToLang))
	for ext := range extToLang {
		exts = append(exts, ext)
	}
	return exts
}
