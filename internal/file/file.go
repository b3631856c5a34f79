// Package file implements direct filesystem tools: line-ranged reads,
// directory listings, and glob-based file finding. Paths are resolved
// against a project root and validated before any read.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// DefaultMaxLines caps an unbounded read.
const DefaultMaxLines = 500

// MaxReadSize caps readable file size: 5 MiB.
const MaxReadSize = 5 << 20

// skipDirs are directory names never listed or searched.
var skipDirs = map[string]bool{
	"node_modules": true, "__pycache__": true, ".venv": true,
	"venv": true, "dist": true, "build": true,
}

// ReadResult is the payload of a line-ranged read.
type ReadResult struct {
	Path string `json:"path"`
	// Content is the selected lines with 1-indexed line-number prefixes.
	Content string `json:"content"`
	// RawContent is the same lines without prefixes.
	RawContent string `json:"raw_content"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TotalLines int    `json:"total_lines"`
	Truncated  bool   `json:"truncated"`
}

// ReadOptions selects a slice of the file. Zero values mean defaults:
// start at line 1, read up to MaxLines lines.
type ReadOptions struct {
	StartLine int
	EndLine   int
	MaxLines  int
}

// Read returns file content with optional 1-indexed inclusive line
// range. Relative paths resolve against root; the resolved path must
// stay inside root.
func Read(path, root string, opts ReadOptions) (*ReadResult, error) {
	full, err := resolve(path, root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, apperrors.NotFound(fmt.Sprintf("file not found: %s", path))
	}
	if info.IsDir() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("not a file: %s", path))
	}
	if info.Size() > MaxReadSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file too large: %d bytes", info.Size()))
	}

	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, apperrors.Internal("read file", err)
	}
	if !utf8.Valid(raw) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot read binary file: %s", path))
	}

	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	total := len(lines)

	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	start := 0
	if opts.StartLine > 0 {
		start = opts.StartLine - 1
	}
	if start > total {
		start = total
	}
	end := start + maxLines
	if opts.EndLine > 0 {
		end = opts.EndLine
	}
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}

	selected := lines[start:end]
	numbered := make([]string, len(selected))
	for i, line := range selected {
		numbered[i] = fmt.Sprintf("%4d| %s", start+i+1, line)
	}

	return &ReadResult{
		Path:       full,
		Content:    strings.Join(numbered, "\n"),
		RawContent: strings.Join(selected, "\n"),
		StartLine:  start + 1,
		EndLine:    end,
		TotalLines: total,
		Truncated:  end < total,
	}, nil
}

// Listing is the payload of a directory listing.
type Listing struct {
	Path        string   `json:"path"`
	Files       []string `json:"files"`
	Directories []string `json:"directories"`
	Count       int      `json:"count"`
	Truncated   bool     `json:"truncated"`
}

// ListOptions configures a listing.
type ListOptions struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// Pattern filters file basenames, e.g. "*.go".
	Pattern string
	// MaxItems caps the total entry count (default 200).
	MaxItems int
}

// List returns the files and directories under a path. Hidden entries
// and vendor directories are skipped.
func List(path, root string, opts ListOptions) (*Listing, error) {
	full, err := resolve(path, root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, apperrors.NotFound(fmt.Sprintf("path not found: %s", path))
	}
	if !info.IsDir() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("not a directory: %s", path))
	}

	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = 200
	}
	var namePattern glob.Glob
	if opts.Pattern != "" {
		namePattern, err = glob.Compile(opts.Pattern)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid pattern %q: %v", opts.Pattern, err))
		}
	}

	listing := &Listing{Path: full}
	count := 0
	var walk func(dir, prefix string) error
	walk = func(dir, prefix string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return apperrors.Internal("list directory", err)
		}
		for _, entry := range entries {
			if count >= maxItems {
				listing.Truncated = true
				return nil
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			rel := name
			if prefix != "" {
				rel = prefix + "/" + name
			}
			if entry.IsDir() {
				if skipDirs[name] {
					continue
				}
				listing.Directories = append(listing.Directories, rel)
				count++
				if opts.Recursive {
					if err := walk(filepath.Join(dir, name), rel); err != nil {
						return err
					}
				}
				continue
			}
			if namePattern != nil && !namePattern.Match(name) {
				continue
			}
			listing.Files = append(listing.Files, rel)
			count++
		}
		return nil
	}
	if err := walk(full, ""); err != nil {
		return nil, err
	}

	sort.Strings(listing.Files)
	sort.Strings(listing.Directories)
	listing.Count = len(listing.Files) + len(listing.Directories)
	return listing, nil
}

// FoundFile is one glob match.
type FoundFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Find returns files under root matching a slash-separated glob
// (** crosses directories). Hidden and vendor paths are skipped.
func Find(pattern, root string, maxResults int) ([]FoundFile, error) {
	if pattern == "" {
		return nil, apperrors.InvalidInput("glob pattern must not be empty")
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid glob %q: %v", pattern, err))
	}
	if maxResults <= 0 {
		maxResults = 100
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, apperrors.NotFound(fmt.Sprintf("root not found: %s", root))
	}

	var found []FoundFile
	err = filepath.WalkDir(absRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == absRoot {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if skipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !g.Match(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, FoundFile{Path: rel, Size: info.Size()})
		if len(found) >= maxResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindByName returns files whose basename contains name,
// case-insensitively.
func FindByName(name, root string, maxResults int) ([]FoundFile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.InvalidInput("file name must not be empty")
	}
	needle := strings.ToLower(name)
	if maxResults <= 0 {
		maxResults = 10
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, apperrors.NotFound(fmt.Sprintf("root not found: %s", root))
	}

	var found []FoundFile
	err = filepath.WalkDir(absRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == absRoot {
			return nil
		}
		base := d.Name()
		if d.IsDir() {
			if skipDirs[base] || strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") {
			return nil
		}
		if !strings.Contains(strings.ToLower(base), needle) {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, FoundFile{Path: filepath.ToSlash(rel), Size: info.Size()})
		if len(found) >= maxResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// resolve joins a possibly-relative path with root and rejects escapes.
func resolve(path, root string) (string, error) {
	if path == "" {
		return "", apperrors.InvalidInput("path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", apperrors.InvalidInput("invalid characters in path")
	}
	full := path
	if !filepath.IsAbs(path) {
		if root == "" {
			return "", apperrors.InvalidInput("relative path requires a project root")
		}
		full = filepath.Join(root, path)
	}
	full = filepath.Clean(full)
	if root != "" {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(absRoot, full)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", apperrors.InvalidInput(fmt.Sprintf("path escapes project root: %s", path))
		}
	}
	return full, nil
}
