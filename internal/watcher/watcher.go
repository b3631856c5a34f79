// Package watcher drives the auto-index loop in watch mode. It wraps
// fsnotify with a debouncer so bursts of file events collapse into one
// re-index, and applies the same skip rules the scanner uses.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zoonderkins/augment-lite-mcp/internal/gitignore"
)

// Op is the kind of change observed on a path.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpDelete
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	}
	return "UNKNOWN"
}

// Event is one debounced file change, with Path relative to the watch
// root.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// vendorDirs mirrors the scanner's always-skipped directories.
var vendorDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	".venv": true, "venv": true, "dist": true, "build": true,
	".next": true, ".nuxt": true, "coverage": true,
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet window before a batch is emitted
	// (default 500ms).
	Debounce time.Duration
	// IgnorePatterns are extra gitignore-syntax patterns.
	IgnorePatterns []string
}

// Watcher observes a project tree and emits debounced event batches.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	ignore    *gitignore.Matcher
	root      string
}

// New creates a watcher rooted at root. A .gitignore at the root is
// honored; changing it mid-run re-reads the patterns.
func New(root string, opts Options) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fs:        fsw,
		debouncer: NewDebouncer(debounce),
		ignore:    gitignore.New(),
		root:      absRoot,
	}
	for _, pattern := range opts.IgnorePatterns {
		w.ignore.AddPattern(pattern)
	}
	w.loadGitignore()

	if err := w.addRecursive(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches events until ctx is cancelled, calling onBatch with
// each debounced batch. onBatch runs on the watcher goroutine, so slow
// handlers delay later batches but never drop them here.
func (w *Watcher) Run(ctx context.Context, onBatch func([]Event)) error {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return nil
			}
			if len(batch) > 0 && onBatch != nil {
				onBatch(batch)
			}
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the underlying watcher and the debouncer.
func (w *Watcher) Close() {
	_ = w.fs.Close()
	w.debouncer.Stop()
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if filepath.Base(event.Name) == ".gitignore" {
		w.loadGitignore()
	}
	if w.skip(rel) {
		return
	}

	// New directories must be added to the watch set before their
	// contents produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return
		}
	}

	op, ok := mapOp(event.Op)
	if !ok {
		return
	}
	w.debouncer.Add(Event{Path: rel, Op: op, Time: time.Now()})
}

// skip reports whether a relative path is outside indexing scope.
func (w *Watcher) skip(rel string) bool {
	if rel == "." {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if vendorDirs[part] || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return w.ignore.Match(rel, false)
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != w.root && (vendorDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Debug("cannot watch directory",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) loadGitignore() {
	gi := filepath.Join(w.root, ".gitignore")
	if _, err := os.Stat(gi); err != nil {
		return
	}
	if err := w.ignore.AddFromFile(gi, ""); err != nil {
		slog.Warn("failed to read .gitignore", slog.String("error", err.Error()))
	}
}

func mapOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return OpCreate, true
	case op&fsnotify.Write != 0:
		return OpModify, true
	case op&fsnotify.Remove != 0:
		return OpDelete, true
	case op&fsnotify.Rename != 0:
		return OpRename, true
	}
	return 0, false
}
