package chunk

import (
	"fmt"
	"strings"
)

// CodeChunker splits code files into overlapping line windows.
type CodeChunker struct {
	// Lines is the window size in lines.
	Lines int
	// Overlap is how many lines consecutive windows share.
	Overlap int
}

// NewCodeChunker returns a chunker with the default 50-line window and
// 10-line overlap.
func NewCodeChunker() *CodeChunker {
	return &CodeChunker{Lines: 50, Overlap: 10}
}

// Chunk splits content into line-window chunks in file order.
// Whitespace-only windows are dropped. Source is
// "<relpath>:<1-indexed-starting-line>".
func (c *CodeChunker) Chunk(relpath, content string) []Chunk {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	step := c.Lines - c.Overlap
	if step < 1 {
		step = 1
	}

	ext := Ext(relpath)
	var chunks []Chunk
	for start := 0; start < len(lines); start += step {
		end := start + c.Lines
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:           text,
			Source:         fmt.Sprintf("%s:%d", relpath, start+1),
			ChunkingMethod: MethodLines,
			Filetype:       ext,
		})
		if end == len(lines) {
			break
		}
	}
	return chunks
}
