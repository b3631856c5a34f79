package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileState records what the indexer knew about a file at last index time.
// A file whose size and mtime both match is assumed unchanged; when the
// mtime moved, equal content digests still count as unchanged.
type FileState struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	// Hash is the hex MD5 of the file content, recorded for files under
	// 1 MiB. Empty for states written before hashing existed.
	Hash string `json:"hash,omitempty"`
}

// IndexState maps slash-separated relative paths to their last-indexed state.
type IndexState map[string]FileState

// LoadIndexState reads indexer state from disk. A missing or corrupted file
// yields an empty state so the next index run starts from scratch.
func LoadIndexState(path string) (IndexState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return IndexState{}, nil
		}
		return nil, fmt.Errorf("read index state: %w", err)
	}
	var state IndexState
	if err := json.Unmarshal(data, &state); err != nil {
		return IndexState{}, nil
	}
	if state == nil {
		state = IndexState{}
	}
	return state, nil
}

// SaveIndexState writes indexer state atomically.
func SaveIndexState(path string, state IndexState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index state: %w", err)
	}
	return os.Rename(tmp, path)
}
