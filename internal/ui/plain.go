package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainReporter writes one line per phase and a completion summary.
// File events are sampled so large projects do not flood the output.
type PlainReporter struct {
	mu       sync.Mutex
	out      io.Writer
	lastFile time.Time
}

// NewPlainReporter creates a plain text reporter.
func NewPlainReporter(out io.Writer) *PlainReporter {
	return &PlainReporter{out: out}
}

func (r *PlainReporter) Phase(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "[%s]\n", name)
}

func (r *PlainReporter) File(path string, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// At most ~5 file lines per second, but always the last one.
	if done < total && time.Since(r.lastFile) < 200*time.Millisecond {
		return
	}
	r.lastFile = time.Now()
	_, _ = fmt.Fprintf(r.out, "  %d/%d %s\n", done, total, path)
}

func (r *PlainReporter) Done(summary Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if summary.Err != nil {
		_, _ = fmt.Fprintf(r.out, "Index failed: %v\n", summary.Err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "Indexed %d files, %d chunks in %s\n",
		summary.Files, summary.Chunks, summary.Duration.Round(100*time.Millisecond))
}

func (r *PlainReporter) Close() {}
