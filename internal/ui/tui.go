package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const accentColor = "154" // lime green

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor))
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("106"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type phaseMsg string

type fileMsg struct {
	path        string
	done, total int
}

type doneMsg Summary

// tuiReporter drives a bubbletea program from progress callbacks.
type tuiReporter struct {
	program  *tea.Program
	finished chan struct{}
}

func newTUIReporter(out *os.File, project string) *tuiReporter {
	model := newIndexModel(project)
	r := &tuiReporter{
		program:  tea.NewProgram(model, tea.WithOutput(out)),
		finished: make(chan struct{}),
	}
	go func() {
		defer close(r.finished)
		_, _ = r.program.Run()
	}()
	return r
}

func (r *tuiReporter) Phase(name string) {
	r.program.Send(phaseMsg(name))
}

func (r *tuiReporter) File(path string, done, total int) {
	r.program.Send(fileMsg{path: path, done: done, total: total})
}

func (r *tuiReporter) Done(summary Summary) {
	r.program.Send(doneMsg(summary))
}

func (r *tuiReporter) Close() {
	r.program.Quit()
	select {
	case <-r.finished:
	case <-time.After(2 * time.Second):
	}
}

// indexModel renders one phase line, a progress bar, and the current
// file.
type indexModel struct {
	project  string
	phase    string
	file     string
	done     int
	total    int
	complete bool
	summary  Summary
	spin     spinner.Model
	bar      progress.Model
}

func newIndexModel(project string) indexModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(accentColor))
	return indexModel{
		project: project,
		phase:   "starting",
		spin:    s,
		bar:     progress.New(progress.WithSolidFill(accentColor), progress.WithWidth(40)),
	}
}

func (m indexModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseMsg:
		m.phase = string(msg)
		m.file = ""
		m.done, m.total = 0, 0
		return m, nil
	case fileMsg:
		m.file = msg.path
		m.done, m.total = msg.done, msg.total
		return m, nil
	case doneMsg:
		m.complete = true
		m.summary = Summary(msg)
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexModel) View() string {
	if m.complete {
		if m.summary.Err != nil {
			return errStyle.Render(fmt.Sprintf("Index failed: %v", m.summary.Err)) + "\n"
		}
		return headerStyle.Render(fmt.Sprintf("Indexed %d files, %d chunks in %s",
			m.summary.Files, m.summary.Chunks, m.summary.Duration.Round(100*time.Millisecond))) + "\n"
	}

	view := headerStyle.Render("Indexing "+m.project) + "\n"
	view += m.spin.View() + " " + phaseStyle.Render(m.phase) + "\n"
	if m.total > 0 {
		view += m.bar.ViewAs(float64(m.done)/float64(m.total)) + "\n"
		view += dimStyle.Render(fmt.Sprintf("%d/%d %s", m.done, m.total, m.file)) + "\n"
	}
	return view
}
