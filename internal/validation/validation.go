// Package validation sanitizes user-supplied tool arguments.
// It rejects path traversal, shell metacharacters, and oversize fields
// before any argument reaches a store or a subprocess.
package validation

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// MaxQueryLength bounds search query size.
const MaxQueryLength = 10000

// MaxMemoryKeyLength bounds memory key size.
const MaxMemoryKeyLength = 256

// MaxProjectNameLength bounds project name size.
const MaxProjectNameLength = 64

var (
	projectNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	memoryKeyRe   = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	// Shell metacharacters that must never appear in paths handed to
	// external index builders.
	shellMetachars = ";&|$`(){}<>\n\r\x00"
)

// ProjectPath validates a user-provided directory path and returns its
// absolute form. The path must exist, be a directory, and carry no
// traversal segments or shell metacharacters.
func ProjectPath(path string) (string, error) {
	if path == "" {
		return "", errors.InvalidInput("path cannot be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.InvalidInput("invalid path format: " + err.Error())
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.InvalidInput("path does not exist: " + path)
	}
	if !info.IsDir() {
		return "", errors.InvalidInput("not a directory: " + path)
	}

	for _, part := range strings.Split(abs, string(filepath.Separator)) {
		if part == ".." {
			return "", errors.InvalidInput("path traversal (..) not allowed")
		}
	}
	if strings.ContainsAny(abs, shellMetachars) {
		return "", errors.InvalidInput("invalid characters in path")
	}
	return abs, nil
}

// ProjectName validates a project name. When allowAuto is true the
// special value "auto" passes through unchanged.
func ProjectName(name string, allowAuto bool) (string, error) {
	if name == "" {
		return "", errors.InvalidInput("project name cannot be empty")
	}
	if allowAuto && name == "auto" {
		return name, nil
	}
	if len(name) > MaxProjectNameLength {
		return "", errors.InvalidInput("project name must be at most 64 characters")
	}
	if !projectNameRe.MatchString(name) {
		return "", errors.InvalidInput("invalid project name: use only alphanumeric, underscore, hyphen")
	}
	return name, nil
}

// Query validates a search query and strips NUL bytes.
func Query(query string) (string, error) {
	if query == "" {
		return "", errors.InvalidInput("query cannot be empty")
	}
	if len(query) > MaxQueryLength {
		return "", errors.Newf(errors.CodeInvalidInput, "query too long: %d > %d", len(query), MaxQueryLength)
	}
	return strings.ReplaceAll(query, "\x00", ""), nil
}

// MemoryKey validates a memory key.
func MemoryKey(key string) (string, error) {
	if key == "" {
		return "", errors.InvalidInput("memory key cannot be empty")
	}
	if len(key) > MaxMemoryKeyLength {
		return "", errors.InvalidInput("memory key must be at most 256 characters")
	}
	if !memoryKeyRe.MatchString(key) {
		return "", errors.InvalidInput("invalid memory key: use only alphanumeric, underscore, dot, hyphen")
	}
	return key, nil
}

// SanitizeForDisplay strips control characters (except newline and tab)
// and truncates the text for safe inclusion in logs and responses.
func SanitizeForDisplay(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	s := b.String()
	if len(s) > maxLength {
		runes := []rune(s)
		if len(runes) > maxLength {
			runes = runes[:maxLength]
		}
		s = string(runes) + "... (truncated)"
	}
	return s
}
