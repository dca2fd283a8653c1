package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
	"github.com/alexisbeaulieu97/postbuild/internal/model"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards registry notifications to a running program.
type Observer struct {
	Program Sender
}

var _ action.Observer = Observer{}

// ActionStarted implements action.Observer.
func (o Observer) ActionStarted(outcome model.Outcome) {
	o.Program.Send(ActionStartedMsg{Outcome: outcome})
}

// ActionFinished implements action.Observer.
func (o Observer) ActionFinished(outcome model.Outcome) {
	o.Program.Send(ActionFinishedMsg{Outcome: outcome})
}
