package tui

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// CompileProgressMsg advances the build progress display by one finished
// translation unit.
type CompileProgressMsg struct {
	Done   int
	Total  int
	Source string
}

// BuildDoneMsg ends the progress display. Err is nil on success.
type BuildDoneMsg struct {
	Err error
}

// BuildProgressModel renders compilation progress as a bar plus the name of
// the most recently finished source file.
type BuildProgressModel struct {
	bar      progress.Model
	done     int
	total    int
	lastFile string
	err      error
	finished bool
}

func NewBuildProgressModel(total, width int) BuildProgressModel {
	bar := progress.New(progress.WithDefaultGradient())
	if width > 8 {
		bar.Width = width - 8
	}
	return BuildProgressModel{
		bar:   bar,
		total: total,
	}
}

func (m BuildProgressModel) Init() tea.Cmd {
	return nil
}

func (m BuildProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case CompileProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		m.lastFile = filepath.Base(msg.Source)
		cmd := m.bar.SetPercent(float64(m.done) / float64(m.total))
		return m, cmd

	case BuildDoneMsg:
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 8
		return m, nil

	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		m.bar = updated.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m BuildProgressModel) View() string {
	if m.finished {
		if m.err != nil {
			return ErrorStyle.Render("build failed") + "\n"
		}
		return SuccessStyle.Render("build complete") + "\n"
	}

	line := fmt.Sprintf("%s %d/%d", m.bar.View(), m.done, m.total)
	if m.lastFile != "" {
		line += " " + DimStyle.Render(m.lastFile)
	}
	return line + "\n"
}

// Err returns the terminal error the display ended with, if any.
func (m BuildProgressModel) Err() error {
	return m.err
}
