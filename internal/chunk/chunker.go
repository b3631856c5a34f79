package chunk

// Chunker dispatches a file to the code or doc chunker by extension.
type Chunker struct {
	Code *CodeChunker
	Doc  *DocChunker
}

// NewChunker returns a Chunker with default window sizes.
func NewChunker() *Chunker {
	return &Chunker{
		Code: NewCodeChunker(),
		Doc:  NewDocChunker(),
	}
}

// ChunkFile splits one file into chunks. Files outside both extension
// sets produce an empty list.
func (c *Chunker) ChunkFile(relpath, content string) []Chunk {
	switch {
	case IsCode(relpath):
		return c.Code.Chunk(relpath, content)
	case IsDoc(relpath):
		return c.Doc.Chunk(relpath, content)
	default:
		return nil
	}
}
