package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/snonux/flashpix/internal/workflow"
)

type reviewModel struct {
	review workflow.Review
	hint   string
	done   bool
	result workflow.ReviewDecision
}

func newReviewModel(review workflow.Review) reviewModel {
	return reviewModel{review: review, result: workflow.ReviewCancel}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.result = workflow.ReviewCancel
		m.done = true
		return m, tea.Quit

	case "b":
		m.result = workflow.ReviewBack
		m.done = true
		return m, tea.Quit

	case "c", "enter":
		if !m.review.CanCreate() {
			m.hint = "no item has a picture, go back or cancel"
			return m, nil
		}
		m.result = workflow.ReviewCreate
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m reviewModel) View() string {
	var sb strings.Builder

	sb.WriteString(labelStyle.Render("Review") + "\n\n")
	for i, sel := range m.review.Selections {
		if sel.Found() {
			line := fmt.Sprintf("✓ %d. %s", i+1, sel.Item.Text)
			sb.WriteString(okStyle.Render(line) + "\n")
			sb.WriteString(hintStyle.Render(fmt.Sprintf("     %s %s", sel.Image.Provider, sel.Image.URL)) + "\n")
		} else {
			sb.WriteString(itemStyle.Render(fmt.Sprintf("✗ %d. %s", i+1, sel.Item.Text)) + "\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\n%d of %d items will become cards\n", m.review.Found, len(m.review.Selections)))
	if m.hint != "" {
		sb.WriteString("\n" + errorStyle.Render(m.hint) + "\n")
	}
	sb.WriteString("\n" + hintStyle.Render("c/enter: create cards • b: back to the first item • esc: cancel"))
	return sb.String()
}
