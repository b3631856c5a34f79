package codeintel

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// Reference is one occurrence of a symbol name.
type Reference struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Text     string `json:"text"`
	Context  string `json:"context,omitempty"`
	NodeType string `json:"node_type,omitempty"`
	Language string `json:"language,omitempty"`
	// Method is "ast" for tree-sitter matches and "regex" for the
	// plain-text fallback.
	Method string `json:"method"`
}

// ReferenceOptions scopes a reference search.
type ReferenceOptions struct {
	// Glob optionally restricts files by pattern, e.g. "**/*.go".
	Glob string
	// ContextLines is the number of surrounding lines to attach
	// (default 2).
	ContextLines int
	// MaxResults caps the result count (default 50).
	MaxResults int
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FindReferences locates occurrences of symbol under root. Files with a
// supported grammar are matched at the identifier level; other indexed
// file types fall back to a word-boundary regex.
func FindReferences(ctx context.Context, symbol, root string, opts ReferenceOptions) ([]Reference, error) {
	if !identRe.MatchString(symbol) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid symbol name: %q", symbol))
	}
	contextLines := opts.ContextLines
	if contextLines < 0 {
		contextLines = 0
	} else if opts.ContextLines == 0 {
		contextLines = 2
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	filter, err := globFilter(opts.Glob)
	if err != nil {
		return nil, err
	}
	files, err := searchFiles(ctx, "", root, filter)
	if err != nil {
		return nil, err
	}

	wordRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b`)
	var results []Reference
	for _, file := range files {
		if len(results) >= maxResults {
			break
		}
		source, err := os.ReadFile(file.AbsPath)
		if err != nil {
			continue
		}
		lines := strings.Split(string(source), "\n")

		if lang := detectLanguage(file.Path); lang != nil {
			refs, err := astReferences(ctx, lang, source, symbol)
			if err == nil {
				for _, ref := range refs {
					ref.File = file.Path
					ref.Context = contextAround(lines, ref.Line, contextLines)
					if ref.Line-1 < len(lines) {
						ref.Text = strings.TrimSpace(lines[ref.Line-1])
					}
					results = append(results, ref)
					if len(results) >= maxResults {
						break
					}
				}
				continue
			}
		}

		for i, line := range lines {
			loc := wordRe.FindStringIndex(line)
			if loc == nil {
				continue
			}
			results = append(results, Reference{
				File:    file.Path,
				Line:    i + 1,
				Column:  loc[0] + 1,
				Text:    strings.TrimSpace(line),
				Context: contextAround(lines, i+1, contextLines),
				Method:  "regex",
			})
			if len(results) >= maxResults {
				break
			}
		}
	}
	return results, nil
}

// astReferences collects identifier nodes whose text equals symbol.
func astReferences(ctx context.Context, lang *language, source []byte, symbol string) ([]Reference, error) {
	tree, err := parseSource(ctx, lang, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var refs []Reference
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if lang.identifierKinds[n.Type()] && nodeContent(n, source) == symbol {
			refs = append(refs, Reference{
				Line:     int(n.StartPoint().Row) + 1,
				Column:   int(n.StartPoint().Column) + 1,
				NodeType: n.Type(),
				Language: lang.Name,
				Method:   "ast",
			})
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return refs, nil
}

func contextAround(lines []string, line, contextLines int) string {
	if contextLines == 0 {
		return ""
	}
	start := line - 1 - contextLines
	if start < 0 {
		start = 0
	}
	end := line + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
