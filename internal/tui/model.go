// Package tui renders post-build action progress with Bubble Tea.
package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/postbuild/internal/action"
	"github.com/alexisbeaulieu97/postbuild/internal/buildctx"
	"github.com/alexisbeaulieu97/postbuild/internal/model"
)

// ActionStartedMsg indicates an action's process is about to run.
type ActionStartedMsg struct {
	Outcome model.Outcome
}

// ActionFinishedMsg reports the outcome of an action.
type ActionFinishedMsg struct {
	Outcome model.Outcome
}

// DoneMsg ends the program once the whole chain has returned.
type DoneMsg struct {
	Err error
}

// Model contains the Bubble Tea state for one target's action chain.
type Model struct {
	target    string
	rows      []model.Outcome
	spinner   spinner.Model
	bar       progress.Model
	completed int
	finished  bool
	cancelled bool
	cancel    func()
	err       error
}

// NewModel constructs a model listing actions as pending, with descriptions expanded
// against bctx.
func NewModel(target string, actions []action.Action, bctx buildctx.Context) Model {
	rows := make([]model.Outcome, len(actions))
	for i, a := range actions {
		rows[i] = model.Outcome{
			Target:      target,
			Action:      a.Name,
			Index:       i,
			Description: pendingDescription(a, bctx),
			Status:      model.StatusPending,
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runningStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	return Model{target: target, rows: rows, spinner: s, bar: bar}
}

// WithCancel returns a copy of the model that calls cancel when the user presses Ctrl-C.
func (m Model) WithCancel(cancel func()) Model {
	m.cancel = cancel
	return m
}

// pendingDescription mirrors the description the registry will log. Templates that
// cannot be expanded yet are shown as written.
func pendingDescription(a action.Action, bctx buildctx.Context) string {
	if a.Description != "" {
		if expanded, err := bctx.Expand(a.Description); err == nil {
			return expanded
		}
		return a.Description
	}
	if args, err := bctx.ExpandAll(a.Command); err == nil {
		return model.Outcome{Command: args}.CommandLine()
	}
	return ""
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Completed returns the number of actions that have finished.
func (m Model) Completed() int {
	return m.completed
}

// IsFinished reports whether the chain has returned or the user cancelled.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the display.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Outcomes returns the rows in registration order.
func (m Model) Outcomes() []model.Outcome {
	out := make([]model.Outcome, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *Model) setRow(o model.Outcome) (previous model.Outcome) {
	for len(m.rows) <= o.Index {
		m.rows = append(m.rows, model.Outcome{Index: len(m.rows), Status: model.StatusPending})
	}
	previous = m.rows[o.Index]
	m.rows[o.Index] = o
	return previous
}
