// internal/tui/progress.go
// Package tui renders a live progress view for benchmark runs using
// Bubble Tea. Non-interactive runs bypass it entirely.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/crossbench/internal/benchmark"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// progressMsg carries one runner event into the Bubble Tea loop.
type progressMsg benchmark.ProgressEvent

// runDoneMsg signals that the benchmark goroutine finished.
type runDoneMsg struct{ err error }

// Model is the Bubble Tea model for one workload run.
type Model struct {
	workload  string
	languages []string
	spinner   spinner.Model
	bar       progress.Model
	cancel    context.CancelFunc

	current   benchmark.ProgressEvent
	completed map[string]string
	err       error
	quitting  bool
}

// NewModel builds the progress view for a workload and its language targets.
// cancel is invoked when the user interrupts the run; the runner then winds
// down and keeps whatever completed.
func NewModel(workload string, languages []string, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		workload:  workload,
		languages: languages,
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient()),
		cancel:    cancel,
		completed: map[string]string{},
	}
}

// Init starts the spinner ticker.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update advances the view state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			return m, nil
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progressMsg:
		event := benchmark.ProgressEvent(msg)
		m.current = event
		if event.Phase == "done" || event.Phase == "failed" {
			m.completed[event.Language] = event.Phase
		}
		return m, nil
	case runDoneMsg:
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the header, per-language status lines, and the iteration bar.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Benchmarking %s", m.workload)))
	b.WriteString("\n\n")

	for _, language := range m.languages {
		switch m.completed[language] {
		case "done":
			fmt.Fprintf(&b, "  %s %s\n", doneStyle.Render("✓"), language)
		case "failed":
			fmt.Fprintf(&b, "  %s %s\n", failedStyle.Render("✗"), language)
		default:
			if language == m.current.Language {
				fmt.Fprintf(&b, "  %s %s %s\n", m.spinner.View(), language, phaseStyle.Render(phaseLabel(m.current)))
			} else {
				fmt.Fprintf(&b, "    %s\n", phaseStyle.Render(language))
			}
		}
	}

	if m.current.Total > 0 && m.completed[m.current.Language] == "" {
		b.WriteString("\n")
		b.WriteString("  " + m.bar.ViewAs(float64(m.current.Iteration)/float64(m.current.Total)))
		b.WriteString("\n")
	}

	if m.quitting {
		b.WriteString("\n")
	}
	return b.String()
}

// phaseLabel describes the active phase for the status line.
func phaseLabel(event benchmark.ProgressEvent) string {
	switch event.Phase {
	case "build":
		return "building"
	case "warmup":
		return fmt.Sprintf("warming up %d/%d", event.Iteration, event.Total)
	case "measure":
		return fmt.Sprintf("measuring %d/%d", event.Iteration, event.Total)
	case "memory":
		return "profiling memory"
	case "binary":
		return "analyzing binary"
	default:
		return event.Phase
	}
}

// Run executes fn under a live progress display. fn receives a progress
// callback that feeds the view; its error is returned after the display
// shuts down. Interrupting the view cancels the context handed to fn.
func Run(ctx context.Context, workload string, languages []string, fn func(ctx context.Context, progress benchmark.ProgressFunc) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(workload, languages, cancel)
	program := tea.NewProgram(model)

	go func() {
		err := fn(runCtx, func(event benchmark.ProgressEvent) {
			program.Send(progressMsg(event))
		})
		program.Send(runDoneMsg{err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(*Model); ok {
		return m.err
	}
	return nil
}
