package codeintel

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/scanner"
)

// PatternMatch is one regex hit in a file.
type PatternMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Match   string `json:"match"`
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// PatternOptions scopes a regex search.
type PatternOptions struct {
	// Glob optionally restricts files, e.g. "**/*.py".
	Glob string
	// ContextLines is the number of surrounding lines (default 2).
	ContextLines int
	// MaxResults caps the result count (default 50).
	MaxResults int
	// IgnoreCase makes the pattern case-insensitive.
	IgnoreCase bool
}

// SearchPattern runs a line-oriented regex search over the indexable
// files under root, honoring the scanner's skip rules. At most one
// match per line is reported.
func SearchPattern(ctx context.Context, pattern, root string, opts PatternOptions) ([]PatternMatch, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, apperrors.InvalidInput("search pattern must not be empty")
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid regex: %v", err))
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

	var results []PatternMatch
	for _, file := range files {
		if len(results) >= maxResults {
			break
		}
		source, err := os.ReadFile(file.AbsPath)
		if err != nil {
			continue
		}
		lines := strings.Split(string(source), "\n")
		for i, line := range lines {
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			results = append(results, PatternMatch{
				File:    file.Path,
				Line:    i + 1,
				Column:  loc[0] + 1,
				Match:   line[loc[0]:loc[1]],
				Text:    strings.TrimSpace(line),
				Context: contextAround(lines, i+1, contextLines),
			})
			if len(results) >= maxResults {
				break
			}
		}
	}
	return results, nil
}

// globFilter compiles a slash-separated glob (with ** support) into a
// scanner file filter. An empty pattern matches everything.
func globFilter(pattern string) (func(scanner.FileInfo) bool, error) {
	if pattern == "" {
		return nil, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid glob %q: %v", pattern, err))
	}
	return func(f scanner.FileInfo) bool {
		return g.Match(f.Path)
	}, nil
}
