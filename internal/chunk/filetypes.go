package chunk

import (
	"path/filepath"
	"strings"
)

// codeExtensions are files chunked by line windows.
var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".mjs": true, ".cjs": true, ".go": true, ".rs": true, ".java": true,
	".kt": true, ".kts": true, ".scala": true, ".c": true, ".h": true,
	".cc": true, ".cpp": true, ".cxx": true, ".hpp": true, ".hxx": true,
	".cs": true, ".rb": true, ".php": true, ".sh": true, ".bash": true,
	".zsh": true, ".fish": true, ".swift": true, ".m": true, ".mm": true,
	".lua": true, ".pl": true, ".pm": true, ".r": true, ".jl": true,
	".ex": true, ".exs": true, ".erl": true, ".hs": true, ".clj": true,
	".cljs": true, ".cljc": true, ".sql": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".json": true, ".jsonc": true, ".css": true,
	".scss": true, ".sass": true, ".less": true, ".vue": true, ".svelte": true,
	".astro": true, ".graphql": true, ".gql": true, ".proto": true,
	".tf": true, ".hcl": true, ".dockerfile": true,
}

// docExtensions are files chunked by token windows.
var docExtensions = map[string]bool{
	".md": true, ".markdown": true, ".mkd": true, ".txt": true,
	".rst": true, ".rest": true, ".html": true, ".htm": true,
	".adoc": true, ".asciidoc": true, ".org": true, ".tex": true,
}

// Ext returns the lowercased extension of a path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsCode reports whether the path has a code extension.
func IsCode(path string) bool {
	return codeExtensions[Ext(path)]
}

// IsDoc reports whether the path has a documentation extension.
func IsDoc(path string) bool {
	return docExtensions[Ext(path)]
}

// IsIndexable reports whether the path belongs to either set.
func IsIndexable(path string) bool {
	ext := Ext(path)
	return codeExtensions[ext] || docExtensions[ext]
}
