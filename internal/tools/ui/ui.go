package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle  = lipgloss.NewStyle().Faint(true)
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

type doneMsg struct {
	details []string
	err     error
}

type tickMsg time.Time

type model struct {
	title   string
	frame   int
	done    bool
	details []string
	err     error
	cancel  context.CancelFunc
}

// Run executes fn while rendering a spinner, then prints the collected detail
// lines. Ctrl+C cancels the context handed to fn.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(model{title: title, cancel: cancel})
	go func() {
		details, err := fn(ctx)
		p.Send(doneMsg{details: details, err: err})
	}()

	res, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := res.(model)
	if !ok {
		return nil, fmt.Errorf("unexpected final model %T", res)
	}
	return final.details, final.err
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	if !m.done {
		b.WriteString(spinnerStyle.Render(spinnerFrames[m.frame]))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(m.title))
		b.WriteString("\n")
		return b.String()
	}
	if m.err != nil {
		b.WriteString(failStyle.Render("✗ " + m.title))
		b.WriteString("\n")
	} else {
		b.WriteString(okStyle.Render("✓ " + m.title))
		b.WriteString("\n")
	}
	for _, line := range m.details {
		b.WriteString(detailStyle.Render("  " + line))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(failStyle.Render("  error: " + m.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}
