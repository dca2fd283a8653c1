package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/postbuild/internal/model"
)

// Update handles Bubble Tea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ActionStartedMsg:
		m.setRow(msg.Outcome)
		return m, nil
	case ActionFinishedMsg:
		previous := m.setRow(msg.Outcome)
		if previous.Status == model.StatusPending || previous.Status == model.StatusRunning {
			m.completed++
		}
		return m, nil
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}

	return m, nil
}
