// Package chunk splits source files into retrieval units.
//
// Code files are cut into fixed line windows with overlap; prose files
// are cut into token windows using a CJK-aware tokenizer. Every chunk
// carries a stable source identifier that encodes file and position.
package chunk

// Chunking methods.
const (
	MethodLines  = "lines"
	MethodTokens = "tokens"
)

// Chunk is the minimal unit of retrieval: a contiguous slice of one file.
type Chunk struct {
	// Text is the chunk content, UTF-8.
	Text string `json:"text"`

	// Source is the stable identifier: "<relpath>:<line>" for code,
	// "<relpath>:chunk<N>" for prose. Re-chunking an unchanged file
	// reproduces identical sources.
	Source string `json:"source"`

	// ChunkingMethod is "lines" or "tokens".
	ChunkingMethod string `json:"chunking_method,omitempty"`

	// Filetype is the file extension including the dot, e.g. ".go".
	Filetype string `json:"filetype,omitempty"`
}
