package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/postbuild/internal/model"
)

// View renders the current state of the model.
func (m Model) View() string {
	total := len(m.rows)
	ratio := 0.0
	if total > 0 {
		ratio = math.Min(1.0, float64(m.completed)/float64(total))
	}

	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", m.completed, total))
	sections := []string{
		titleStyle.Render(fmt.Sprintf("Post-build actions • %s", m.target)),
		lipgloss.JoinHorizontal(lipgloss.Left, label, " ", m.bar.ViewAs(ratio)),
		renderRows(m.rows, m.spinner.View()),
	}

	if m.cancelled {
		sections = append(sections, summaryStyle.Render("Cancelled; stopping post-build actions"))
	} else if m.finished {
		sections = append(sections, summaryStyle.Render(summaryLine(m.rows, m.err)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// RenderSummary renders outcomes for non-interactive output.
func RenderSummary(target string, outcomes []model.Outcome, err error) string {
	sections := []string{
		titleStyle.Render(fmt.Sprintf("Post-build actions • %s", target)),
		renderRows(outcomes, StatusIcon(model.StatusRunning)),
		summaryStyle.Render(summaryLine(outcomes, err)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderRows(rows []model.Outcome, runningGlyph string) string {
	lines := make([]string, 0, len(rows)*2)
	for _, row := range rows {
		icon := StatusIcon(row.Status)
		if row.Status == model.StatusRunning {
			icon = runningGlyph
		}

		name := row.Description
		if strings.TrimSpace(name) == "" {
			name = row.Action
		}
		line := fmt.Sprintf(" %s %s", icon, name)
		if row.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, row.Duration.Truncate(10*time.Millisecond))
		}
		if row.ExitCode > 0 {
			line = fmt.Sprintf("%s exit %d", line, row.ExitCode)
		}
		lines = append(lines, line)

		if row.Status == model.StatusSkipped && len(row.Command) > 0 {
			lines = append(lines, commandStyle.Render(row.CommandLine()))
		}
	}
	return strings.Join(lines, "\n")
}

func summaryLine(rows []model.Outcome, err error) string {
	s := model.Summarize(rows)
	line := fmt.Sprintf("%d succeeded, %d failed, %d ignored, %d skipped in %s",
		s.Success, s.Failed, s.Ignored, s.Skipped, s.Duration.Truncate(time.Millisecond))
	if err != nil {
		line = fmt.Sprintf("%s\n%s", line, failureStyle.Render(err.Error()))
	}
	return line
}

// StatusIcon returns the glyph representing an outcome status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusIgnored:
		return ignoredStyle.Render("!")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
