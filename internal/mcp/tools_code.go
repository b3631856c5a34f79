package mcp

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zoonderkins/augment-lite-mcp/internal/codeintel"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/file"
)

// resolveInRoot joins a tool path argument with the project root,
// rejecting escapes.
func resolveInRoot(root, path string) (string, error) {
	if path == "" {
		return "", apperrors.InvalidInput("path must not be empty")
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, path)
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.InvalidInput("path escapes the project root")
	}
	return abs, nil
}

// CodeSymbolsInput is the input schema for code.symbols.
type CodeSymbolsInput struct {
	Path        string `json:"path" jsonschema:"source file, relative to the project root"`
	Project     string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	Depth       *int   `json:"depth,omitempty" jsonschema:"1 for top-level symbols only, 2 to include members; default 2"`
	IncludeBody bool   `json:"include_body,omitempty" jsonschema:"include each symbol's source text"`
}

// CodeSymbolsOutput is the output schema for code.symbols.
type CodeSymbolsOutput struct {
	Payload
	Path    string            `json:"path,omitempty"`
	Symbols []codeintel.Symbol `json:"symbols"`
}

func (s *Server) handleCodeSymbols(ctx context.Context, req *mcp.CallToolRequest, in CodeSymbolsInput) (
	*mcp.CallToolResult, CodeSymbolsOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, CodeSymbolsOutput{Payload: failure(err)}, nil
	}
	abs, err := resolveInRoot(p.Root, in.Path)
	if err != nil {
		return nil, CodeSymbolsOutput{Payload: failure(err)}, nil
	}
	symbols, err := codeintel.ExtractSymbols(ctx, abs, orInt(in.Depth, 2), in.IncludeBody)
	if err != nil {
		return nil, CodeSymbolsOutput{Payload: failure(err)}, nil
	}
	if symbols == nil {
		symbols = []codeintel.Symbol{}
	}
	return nil, CodeSymbolsOutput{Payload: ok(), Path: in.Path, Symbols: symbols}, nil
}

// CodeFindSymbolInput is the input schema for code.find_symbol.
type CodeFindSymbolInput struct {
	Pattern     string `json:"pattern" jsonschema:"case-insensitive name substring to match"`
	Project     string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	File        string `json:"file,omitempty" jsonschema:"restrict the search to one file"`
	IncludeBody bool   `json:"include_body,omitempty" jsonschema:"include each symbol's source text"`
	MaxResults  *int   `json:"max_results,omitempty" jsonschema:"result cap, default 10"`
}

func (s *Server) handleCodeFindSymbol(ctx context.Context, req *mcp.CallToolRequest, in CodeFindSymbolInput) (
	*mcp.CallToolResult, CodeSymbolsOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, CodeSymbolsOutput{Payload: failure(err)}, nil
	}

	opts := codeintel.FindSymbolOptions{
		Root:        p.Root,
		IncludeBody: in.IncludeBody,
		MaxResults:  orInt(in.MaxResults, 10),
	}
	if in.File != "" {
		abs, err := resolveInRoot(p.Root, in.File)
		if err != nil {
			return nil, CodeSymbolsOutput{Payload: failure(err)}, nil
		}
		opts.File = abs
	}

	symbols, err := codeintel.FindSymbol(ctx, in.Pattern, opts)
	if err != nil {
		return nil, CodeSymbolsOutput{Payload: failure(err)}, nil
	}
	if symbols == nil {
		symbols = []codeintel.Symbol{}
	}
	return nil, CodeSymbolsOutput{Payload: ok(), Symbols: symbols}, nil
}

// CodeReferencesInput is the input schema for code.references.
type CodeReferencesInput struct {
	Symbol       string `json:"symbol" jsonschema:"identifier to find references to"`
	Project      string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	Glob         string `json:"glob,omitempty" jsonschema:"restrict to files matching this glob, e.g. **.go"`
	ContextLines *int   `json:"context_lines,omitempty" jsonschema:"lines of context around each reference, default 2"`
	MaxResults   *int   `json:"max_results,omitempty" jsonschema:"result cap, default 50"`
}

// CodeReferencesOutput is the output schema for code.references.
type CodeReferencesOutput struct {
	Payload
	Symbol     string                `json:"symbol,omitempty"`
	References []codeintel.Reference `json:"references"`
}

func (s *Server) handleCodeReferences(ctx context.Context, req *mcp.CallToolRequest, in CodeReferencesInput) (
	*mcp.CallToolResult, CodeReferencesOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, CodeReferencesOutput{Payload: failure(err)}, nil
	}
	refs, err := codeintel.FindReferences(ctx, in.Symbol, p.Root, codeintel.ReferenceOptions{
		Glob:         in.Glob,
		ContextLines: orInt(in.ContextLines, 2),
		MaxResults:   orInt(in.MaxResults, 50),
	})
	if err != nil {
		return nil, CodeReferencesOutput{Payload: failure(err)}, nil
	}
	if refs == nil {
		refs = []codeintel.Reference{}
	}
	return nil, CodeReferencesOutput{Payload: ok(), Symbol: in.Symbol, References: refs}, nil
}

// SearchPatternInput is the input schema for search.pattern.
type SearchPatternInput struct {
	Pattern      string `json:"pattern" jsonschema:"regular expression to search for"`
	Project      string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	Glob         string `json:"glob,omitempty" jsonschema:"restrict to files matching this glob"`
	ContextLines *int   `json:"context_lines,omitempty" jsonschema:"lines of context around each match, default 2"`
	MaxResults   *int   `json:"max_results,omitempty" jsonschema:"result cap, default 50"`
	IgnoreCase   bool   `json:"ignore_case,omitempty" jsonschema:"case-insensitive matching"`
}

// SearchPatternOutput is the output schema for search.pattern.
type SearchPatternOutput struct {
	Payload
	Matches []codeintel.PatternMatch `json:"matches"`
}

func (s *Server) handleSearchPattern(ctx context.Context, req *mcp.CallToolRequest, in SearchPatternInput) (
	*mcp.CallToolResult, SearchPatternOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, SearchPatternOutput{Payload: failure(err)}, nil
	}
	matches, err := codeintel.SearchPattern(ctx, in.Pattern, p.Root, codeintel.PatternOptions{
		Glob:         in.Glob,
		ContextLines: orInt(in.ContextLines, 2),
		MaxResults:   orInt(in.MaxResults, 50),
		IgnoreCase:   in.IgnoreCase,
	})
	if err != nil {
		return nil, SearchPatternOutput{Payload: failure(err)}, nil
	}
	if matches == nil {
		matches = []codeintel.PatternMatch{}
	}
	return nil, SearchPatternOutput{Payload: ok(), Matches: matches}, nil
}

// FileReadInput is the input schema for file.read.
type FileReadInput struct {
	Path      string `json:"path" jsonschema:"file to read, relative to the project root"`
	Project   string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"first line to return, 1-indexed"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"last line to return, inclusive"`
	MaxLines  int    `json:"max_lines,omitempty" jsonschema:"line cap, default 500"`
}

// FileReadOutput is the output schema for file.read.
type FileReadOutput struct {
	Payload
	Path       string `json:"path,omitempty"`
	Content    string `json:"content,omitempty"`
	StartLine  int    `json:"start_line,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`
	TotalLines int    `json:"total_lines,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

func (s *Server) handleFileRead(ctx context.Context, req *mcp.CallToolRequest, in FileReadInput) (
	*mcp.CallToolResult, FileReadOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, FileReadOutput{Payload: failure(err)}, nil
	}
	result, err := file.Read(in.Path, p.Root, file.ReadOptions{
		StartLine: in.StartLine,
		EndLine:   in.EndLine,
		MaxLines:  in.MaxLines,
	})
	if err != nil {
		return nil, FileReadOutput{Payload: failure(err)}, nil
	}
	return nil, FileReadOutput{
		Payload:    ok(),
		Path:       result.Path,
		Content:    result.Content,
		StartLine:  result.StartLine,
		EndLine:    result.EndLine,
		TotalLines: result.TotalLines,
		Truncated:  result.Truncated,
	}, nil
}

// FileListInput is the input schema for file.list.
type FileListInput struct {
	Path      string `json:"path,omitempty" jsonschema:"directory, relative to the project root; default the root"`
	Project   string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"descend into subdirectories"`
	Pattern   string `json:"pattern,omitempty" jsonschema:"glob filter on file names"`
	MaxItems  int    `json:"max_items,omitempty" jsonschema:"entry cap, default 200"`
}

// FileListOutput is the output schema for file.list.
type FileListOutput struct {
	Payload
	Path        string   `json:"path,omitempty"`
	Files       []string `json:"files"`
	Directories []string `json:"directories"`
	Count       int      `json:"count"`
	Truncated   bool     `json:"truncated,omitempty"`
}

func (s *Server) handleFileList(ctx context.Context, req *mcp.CallToolRequest, in FileListInput) (
	*mcp.CallToolResult, FileListOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, FileListOutput{Payload: failure(err)}, nil
	}
	path := in.Path
	if path == "" {
		path = "."
	}
	listing, err := file.List(path, p.Root, file.ListOptions{
		Recursive: in.Recursive,
		Pattern:   in.Pattern,
		MaxItems:  in.MaxItems,
	})
	if err != nil {
		return nil, FileListOutput{Payload: failure(err)}, nil
	}
	return nil, FileListOutput{
		Payload:     ok(),
		Path:        listing.Path,
		Files:       listing.Files,
		Directories: listing.Directories,
		Count:       listing.Count,
		Truncated:   listing.Truncated,
	}, nil
}

// FileFindInput is the input schema for file.find.
type FileFindInput struct {
	Pattern    string `json:"pattern,omitempty" jsonschema:"glob pattern matched against root-relative paths, e.g. **.go"`
	Name       string `json:"name,omitempty" jsonschema:"case-insensitive file name fragment, used when pattern is empty"`
	Project    string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	MaxResults *int   `json:"max_results,omitempty" jsonschema:"result cap, default 100"`
}

// FileFindOutput is the output schema for file.find.
type FileFindOutput struct {
	Payload
	Files []file.FoundFile `json:"files"`
}

func (s *Server) handleFileFind(ctx context.Context, req *mcp.CallToolRequest, in FileFindInput) (
	*mcp.CallToolResult, FileFindOutput, error,
) {
	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, FileFindOutput{Payload: failure(err)}, nil
	}

	var found []file.FoundFile
	switch {
	case in.Pattern != "":
		found, err = file.Find(in.Pattern, p.Root, orInt(in.MaxResults, 100))
	case in.Name != "":
		found, err = file.FindByName(in.Name, p.Root, orInt(in.MaxResults, 10))
	default:
		err = apperrors.InvalidInput("pattern or name is required")
	}
	if err != nil {
		return nil, FileFindOutput{Payload: failure(err)}, nil
	}
	if found == nil {
		found = []file.FoundFile{}
	}
	return nil, FileFindOutput{Payload: ok(), Files: found}, nil
}
