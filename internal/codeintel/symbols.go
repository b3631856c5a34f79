package codeintel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/scanner"
)

// Symbol is one declaration found in a source file. NamePath is
// "Parent/Name" for members, otherwise just Name.
type Symbol struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Line     int      `json:"line"`
	EndLine  int      `json:"end_line"`
	NamePath string   `json:"name_path"`
	File     string   `json:"file,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Body     string   `json:"body,omitempty"`
	Children []Symbol `json:"children,omitempty"`
}

// ExtractSymbols parses a source file and returns its top-level
// declarations. depth 1 stays at the top level; depth 2 descends into
// class bodies for methods. includeBody attaches the source text of
// each symbol.
func ExtractSymbols(ctx context.Context, path string, depth int, includeBody bool) ([]Symbol, error) {
	lang := detectLanguage(path)
	if lang == nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)))
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NotFound(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	return extract(ctx, lang, source, depth, includeBody)
}

func extract(ctx context.Context, lang *language, source []byte, depth int, includeBody bool) ([]Symbol, error) {
	tree, err := parseSource(ctx, lang, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	var symbols []Symbol
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := unwrapDecorated(root.NamedChild(i))
		symbols = append(symbols, symbolsFromDecl(node, lang, source, depth, includeBody, "")...)
	}
	return symbols, nil
}

// symbolsFromDecl turns one declaration node into symbols. Grouped
// declarations (Go const/var/type blocks, JS let lists) yield one
// symbol per declared name.
func symbolsFromDecl(node *sitter.Node, lang *language, source []byte, depth int, includeBody bool, parent string) []Symbol {
	kind, ok := lang.declKinds[node.Type()]
	if !ok {
		return nil
	}

	names := declaredNames(node, source)
	if len(names) == 0 {
		return nil
	}

	var out []Symbol
	for _, name := range names {
		sym := Symbol{
			Name:     name,
			Kind:     kind,
			Line:     int(node.StartPoint().Row) + 1,
			EndLine:  int(node.EndPoint().Row) + 1,
			NamePath: name,
			Parent:   parent,
		}
		if parent != "" {
			sym.NamePath = parent + "/" + name
			if kind == "function" {
				sym.Kind = "method"
			}
		}
		if includeBody {
			sym.Body = nodeContent(node, source)
		}
		if depth >= 2 && lang.classKinds[node.Type()] {
			sym.Children = memberSymbols(node, lang, source, includeBody, name)
		}
		out = append(out, sym)
	}
	return out
}

// memberSymbols extracts the methods declared inside a class body.
func memberSymbols(class *sitter.Node, lang *language, source []byte, includeBody bool, className string) []Symbol {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []Symbol
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := unwrapDecorated(body.NamedChild(i))
		switch member.Type() {
		case "function_definition", "method_definition", "function_declaration":
			name := fieldContent(member, "name", source)
			if name == "" {
				continue
			}
			sym := Symbol{
				Name:     name,
				Kind:     "method",
				Line:     int(member.StartPoint().Row) + 1,
				EndLine:  int(member.EndPoint().Row) + 1,
				NamePath: className + "/" + name,
				Parent:   className,
			}
			if includeBody {
				sym.Body = nodeContent(member, source)
			}
			out = append(out, sym)
		}
	}
	return out
}

// declaredNames returns the names a declaration node introduces.
func declaredNames(node *sitter.Node, source []byte) []string {
	if name := fieldContent(node, "name", source); name != "" {
		return []string{name}
	}

	// Grouped forms: walk the spec or declarator children.
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "type_spec", "const_spec", "var_spec", "variable_declarator":
			if name := fieldContent(child, "name", source); name != "" {
				names = append(names, name)
				continue
			}
			// const_spec and var_spec may declare several identifiers.
			for j := 0; j < int(child.NamedChildCount()); j++ {
				g := child.NamedChild(j)
				if g.Type() == "identifier" {
					names = append(names, nodeContent(g, source))
				} else {
					break
				}
			}
		}
	}
	return names
}

// FindSymbolOptions scopes a symbol name search.
type FindSymbolOptions struct {
	// File restricts the search to one file; empty searches Root.
	File string
	// Root is the project directory to scan when File is empty.
	Root string
	// IncludeBody attaches source text to matches.
	IncludeBody bool
	// MaxResults caps the result count (default 10).
	MaxResults int
}

// FindSymbol returns declarations whose name contains pattern,
// case-insensitively. Matches carry the file they were found in.
func FindSymbol(ctx context.Context, pattern string, opts FindSymbolOptions) ([]Symbol, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, apperrors.InvalidInput("symbol pattern must not be empty")
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	files, err := searchFiles(ctx, opts.File, opts.Root, nil)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(pattern)
	var results []Symbol
	for _, file := range files {
		if detectLanguage(file.Path) == nil {
			continue
		}
		symbols, err := ExtractSymbols(ctx, file.AbsPath, 2, opts.IncludeBody)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			if strings.Contains(strings.ToLower(sym.Name), needle) {
				hit := sym
				hit.File = file.Path
				hit.Children = nil
				results = append(results, hit)
				if len(results) >= maxResults {
					return results, nil
				}
			}
			for _, child := range sym.Children {
				if strings.Contains(strings.ToLower(child.Name), needle) {
					hit := child
					hit.File = file.Path
					results = append(results, hit)
					if len(results) >= maxResults {
						return results, nil
					}
				}
			}
		}
	}
	return results, nil
}

// searchFiles resolves the file set for a search: a single file, or a
// scanner walk of root honoring the shared skip rules. The filter, when
// non-nil, drops files before they are returned.
func searchFiles(ctx context.Context, file, root string, filter func(scanner.FileInfo) bool) ([]scanner.FileInfo, error) {
	if file != "" {
		info, err := os.Stat(file)
		if err != nil {
			return nil, apperrors.NotFound(fmt.Sprintf("file not found: %s", file))
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		return []scanner.FileInfo{{
			Path:    filepath.ToSlash(filepath.Base(file)),
			AbsPath: abs,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}}, nil
	}
	if root == "" {
		return nil, apperrors.InvalidInput("either a file or a project root is required")
	}
	files, err := scanner.New(scanner.Options{}).Scan(ctx, root)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return files, nil
	}
	kept := files[:0]
	for _, f := range files {
		if filter(f) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func parseSource(ctx context.Context, lang *language, source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.TS)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, apperrors.Internal("parse failed", err)
	}
	if tree == nil {
		return nil, apperrors.Internal("parse failed", fmt.Errorf("nil tree"))
	}
	return tree, nil
}

func unwrapDecorated(node *sitter.Node) *sitter.Node {
	if node.Type() == "decorated_definition" {
		if def := node.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	// JS/TS export statements wrap the real declaration.
	if node.Type() == "export_statement" {
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return decl
		}
	}
	return node
}

func nodeContent(n *sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if start >= end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}

func fieldContent(n *sitter.Node, field string, source []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return nodeContent(child, source)
}
