package store

import (
	"regexp"
	"strings"
	"unicode"
)

var identRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// DefaultCodeStopWords are tokens too common in source code to carry signal.
var DefaultCodeStopWords = []string{
	"the", "a", "an", "and", "or", "not", "is", "are", "was", "be",
	"to", "of", "in", "on", "for", "with", "as", "at", "by", "from",
	"if", "else", "return", "func", "var", "const", "new", "nil",
	"true", "false", "this", "self", "it", "that",
}

// TokenizeCode splits text with code-aware rules: camelCase, PascalCase and
// snake_case identifiers are broken into their parts, tokens are lowercased,
// and tokens shorter than 2 characters are dropped.
func TokenizeCode(text string) []string {
	var tokens []string
	for _, word := range identRegex.FindAllString(text, -1) {
		for _, t := range SplitCodeToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// SplitCodeToken splits snake_case first, then camelCase within each part.
func SplitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, SplitCamelCase(part)...)
			}
		}
		return result
	}
	return SplitCamelCase(token)
}

// SplitCamelCase splits camelCase and PascalCase identifiers, keeping
// acronym runs together ("parseHTTPRequest" -> "parse", "HTTP", "Request").
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// BuildStopWordMap converts a stop word list to a lookup map.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
