// Package scanner discovers indexable files in a project directory.
// It applies the skip rules shared by the chunker and the incremental
// indexer: size cap, dotfiles, vendor directories, .gitignore patterns,
// and the code/doc extension allow-list.
package scanner

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
	"github.com/zoonderkins/augment-lite-mcp/internal/gitignore"
)

// DefaultMaxFileSize is the largest indexable file: exactly 1 MiB.
const DefaultMaxFileSize = 1 << 20

// vendorDirs are directory names always skipped regardless of gitignore.
var vendorDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	".venv": true, "venv": true, "dist": true, "build": true,
	".next": true, ".nuxt": true, "coverage": true,
	".pytest_cache": true, ".mypy_cache": true, ".tox": true,
	".eggs": true, ".cache": true, ".sass-cache": true,
	"bower_components": true,
}

// FileInfo describes a discovered indexable file.
type FileInfo struct {
	// Path is the path relative to the scanned root, slash-separated.
	Path string
	// AbsPath is the absolute path.
	AbsPath string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the last modification time.
	ModTime time.Time
}

// MD5 returns the hex MD5 digest of the file's current content. The
// indexer compares it against the recorded digest to spot files whose
// mtime moved without the bytes changing. Files passing the scanner are
// capped at 1 MiB, so reading the whole file is fine.
func (f FileInfo) MD5() (string, error) {
	data, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return "", err
	}
	return ContentMD5(data), nil
}

// ContentMD5 returns the hex MD5 digest of data, the format stored in
// the indexer's change-detection state.
func ContentMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Options configures a scan.
type Options struct {
	// MaxFileSize caps indexable file size in bytes (0 = 1 MiB).
	MaxFileSize int64
}

// Scanner walks a project tree and returns files passing the skip rules.
type Scanner struct {
	maxFileSize int64
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Scanner{maxFileSize: maxSize}
}

// Scan walks root and returns indexable files sorted in walk order.
// A .gitignore at the project root is honored with gitwildmatch
// semantics; per-file stat errors are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: absRoot, Err: fs.ErrInvalid}
	}

	matcher := gitignore.New()
	if gi := filepath.Join(absRoot, ".gitignore"); fileExists(gi) {
		if err := matcher.AddFromFile(gi, ""); err != nil {
			slog.Warn("failed to read .gitignore", slog.String("error", err.Error()))
		}
	}

	var files []FileInfo
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Debug("scan error, skipping entry", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if vendorDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !chunk.IsIndexable(name) {
			return nil
		}
		if matcher.Match(rel, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			slog.Debug("stat failed, skipping file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if fi.Size() > s.maxFileSize {
			return nil
		}

		files = append(files, FileInfo{
			Path:    rel,
			AbsPath: path,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
