package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/snonux/flashpix/internal/workflow"
)

type recoverModel struct {
	step    workflow.Step
	outcome workflow.Outcome
	allowed map[workflow.RecoveryAction]bool
	input   textinput.Model
	editing bool
	hint    string
	done    bool
	result  workflow.Recovery
}

func newRecoverModel(step workflow.Step, outcome workflow.Outcome) recoverModel {
	allowed := make(map[workflow.RecoveryAction]bool)
	for _, a := range outcome.Options() {
		allowed[a] = true
	}

	ti := textinput.New()
	ti.Placeholder = "search term"
	ti.CharLimit = 100
	ti.Width = 40

	return recoverModel{
		step:    step,
		outcome: outcome,
		allowed: allowed,
		input:   ti,
		result:  workflow.Recovery{Action: workflow.RecoverAbort},
	}
}

func (m recoverModel) Init() tea.Cmd {
	return nil
}

func (m recoverModel) quit(r workflow.Recovery) (tea.Model, tea.Cmd) {
	m.result = r
	m.done = true
	return m, tea.Quit
}

func (m recoverModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		return m.quit(workflow.Recovery{Action: workflow.RecoverAbort})
	}

	if m.editing {
		switch key.String() {
		case "esc":
			m.editing = false
			m.input.Blur()
			return m, nil
		case "enter":
			term := strings.TrimSpace(m.input.Value())
			if term == "" {
				m.hint = "search term is required"
				return m, nil
			}
			return m.quit(workflow.Recovery{Action: workflow.RecoverCustomTerm, Term: term})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}

	m.hint = ""
	switch key.String() {
	case "r", "enter":
		return m.quit(workflow.Recovery{Action: workflow.RecoverRetry})
	case "s":
		return m.quit(workflow.Recovery{Action: workflow.RecoverSkip})
	case "a", "q", "esc":
		return m.quit(workflow.Recovery{Action: workflow.RecoverAbort})
	case "c":
		if !m.allowed[workflow.RecoverCustomTerm] {
			m.hint = "a custom term is only offered when nothing was found"
			return m, nil
		}
		m.editing = true
		value := m.outcome.Suggestion
		if value == "" {
			value = m.step.Term
		}
		m.input.SetValue(value)
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m recoverModel) View() string {
	var sb strings.Builder

	header := fmt.Sprintf("[%d/%d] %s", m.step.Index+1, m.step.Total, m.step.Item.Text)
	sb.WriteString(labelStyle.Render(header) + "\n\n")

	if m.outcome.Kind == workflow.OutcomeFailed {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Search for %q failed: %v", m.step.Term, m.outcome.Err)) + "\n")
	} else {
		sb.WriteString(fmt.Sprintf("No images found for %q\n", m.step.Term))
		if m.outcome.Suggestion != "" {
			sb.WriteString(hintStyle.Render("Suggestion: "+m.outcome.Suggestion) + "\n")
		}
	}

	if m.editing {
		sb.WriteString("\nSearch: " + m.input.View() + "\n")
	}
	if m.hint != "" {
		sb.WriteString("\n" + errorStyle.Render(m.hint) + "\n")
	}

	var help []string
	for _, a := range m.outcome.Options() {
		switch a {
		case workflow.RecoverRetry:
			help = append(help, "r: retry")
		case workflow.RecoverCustomTerm:
			help = append(help, "c: other term")
		case workflow.RecoverSkip:
			help = append(help, "s: skip")
		case workflow.RecoverAbort:
			help = append(help, "a: cancel")
		}
	}
	if m.editing {
		help = []string{"enter: search", "esc: back"}
	}
	sb.WriteString("\n" + hintStyle.Render(strings.Join(help, " • ")))
	return sb.String()
}
