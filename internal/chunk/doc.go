package chunk

import (
	"fmt"
	"strings"
)

// DocChunker splits prose files into overlapping token windows.
type DocChunker struct {
	// Tokens is the window size in tokens.
	Tokens int
	// Overlap is how many tokens consecutive windows share.
	Overlap int
}

// NewDocChunker returns a chunker with the default 256-token window and
// 32-token overlap.
func NewDocChunker() *DocChunker {
	return &DocChunker{Tokens: 256, Overlap: 32}
}

// Chunk splits content into token-window chunks. Tokens within a window
// are joined with single spaces. Source is "<relpath>:chunk<1-indexed-N>".
func (c *DocChunker) Chunk(relpath, content string) []Chunk {
	tokens := Tokenize(content)
	if len(tokens) == 0 {
		return nil
	}

	step := c.Tokens - c.Overlap
	if step < 1 {
		step = 1
	}

	ext := Ext(relpath)
	var chunks []Chunk
	n := 1
	for start := 0; start < len(tokens); start += step {
		end := start + c.Tokens
		if end > len(tokens) {
			end = len(tokens)
		}
		text := strings.Join(tokens[start:end], " ")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:           text,
			Source:         fmt.Sprintf("%s:chunk%d", relpath, n),
			ChunkingMethod: MethodTokens,
			Filetype:       ext,
		})
		n++
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
