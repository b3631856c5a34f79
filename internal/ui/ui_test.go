package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlainReporterPhasesAndSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf)

	r.Phase("scanning")
	r.File("main.go", 1, 2)
	r.File("server.go", 2, 2)
	r.Done(Summary{Files: 2, Chunks: 9, Duration: 1200 * time.Millisecond})
	r.Close()

	out := buf.String()
	assert.Contains(t, out, "[scanning]")
	assert.Contains(t, out, "1/2 main.go")
	assert.Contains(t, out, "2/2 server.go")
	assert.Contains(t, out, "Indexed 2 files, 9 chunks in 1.2s")
}

func TestPlainReporterSamplesFileLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf)

	r.File("a.go", 1, 100)
	r.File("b.go", 2, 100)
	r.File("c.go", 100, 100)

	out := buf.String()
	assert.Contains(t, out, "a.go")
	assert.NotContains(t, out, "b.go")
	// The final file is always printed.
	assert.Contains(t, out, "100/100 c.go")
}

func TestPlainReporterError(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf)

	r.Done(Summary{Err: errors.New("scan failed")})
	assert.Contains(t, buf.String(), "Index failed: scan failed")
}

func TestNewFallsBackToPlainForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, "demo")
	_, ok := r.(*PlainReporter)
	assert.True(t, ok)
}

func TestIndexModelUpdates(t *testing.T) {
	m := newIndexModel("demo")

	next, _ := m.Update(phaseMsg("chunking"))
	model := next.(indexModel)
	assert.Equal(t, "chunking", model.phase)

	next, _ = model.Update(fileMsg{path: "main.go", done: 3, total: 10})
	model = next.(indexModel)
	assert.Equal(t, 3, model.done)
	assert.Contains(t, model.View(), "main.go")

	next, cmd := model.Update(doneMsg{Files: 4, Chunks: 12, Duration: time.Second})
	model = next.(indexModel)
	assert.True(t, model.complete)
	assert.NotNil(t, cmd)
	assert.Contains(t, model.View(), "Indexed 4 files, 12 chunks")
}
