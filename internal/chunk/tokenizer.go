package chunk

import "regexp"

// docTokenRe splits prose into tokens for windowed chunking. Each CJK
// ideograph, kana, or hangul syllable is its own token; Latin words and
// numbers stay whole; any other non-space rune is a single token.
var docTokenRe = regexp.MustCompile(
	`[\p{Han}]|[\p{Hiragana}\p{Katakana}]|[\p{Hangul}]|[A-Za-z0-9_]+|[^\s\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}]`)

// Tokenize splits prose text into tokens for document chunking.
func Tokenize(text string) []string {
	return docTokenRe.FindAllString(text, -1)
}
