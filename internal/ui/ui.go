// Package ui renders index progress on the terminal: a bubbletea TUI
// when stdout is a TTY, plain line output otherwise.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Reporter receives index progress events. Phase and File satisfy the
// indexer's progress observer; Done and Close finish the rendering.
type Reporter interface {
	Phase(name string)
	File(path string, done, total int)
	Done(summary Summary)
	Close()
}

// Summary is the completion line data.
type Summary struct {
	Files    int
	Chunks   int
	Duration time.Duration
	Err      error
}

// New picks a renderer for out: the TUI when out is a real terminal,
// plain text otherwise (pipes, CI).
func New(out io.Writer, project string) Reporter {
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == "" {
		return newTUIReporter(f, project)
	}
	return NewPlainReporter(out)
}
