package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

// LoadChunks reads a chunk list from a JSONL file. A missing file yields
// an empty list; a malformed line is an error.
func LoadChunks(path string) ([]chunk.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open chunk list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var chunks []chunk.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var c chunk.Chunk
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse chunk list %s line %d: %w", path, line, err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chunk list: %w", err)
	}
	return chunks, nil
}

// SaveChunks writes a chunk list as JSONL atomically (temp file + rename).
func SaveChunks(path string, chunks []chunk.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create chunk list: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("encode chunk: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush chunk list: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close chunk list: %w", err)
	}
	return os.Rename(tmp, path)
}

// CountChunks returns the number of chunks in a JSONL file without
// materializing them. A missing file counts as zero.
func CountChunks(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer func() { _ = f.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}
