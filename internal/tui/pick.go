package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/workflow"
)

type inputMode int

const (
	modeBrowse inputMode = iota
	modeFilter
	modeSearch
)

type pickModel struct {
	step       workflow.Step
	candidates []image.Candidate
	visible    []int // indices into candidates matching the filter
	cursor     int   // position in visible
	marked     int   // candidate index, -1 when nothing is marked
	mode       inputMode
	input      textinput.Model
	hint       string
	done       bool
	result     workflow.Pick
}

func newPickModel(step workflow.Step, candidates []image.Candidate) pickModel {
	ti := textinput.New()
	ti.CharLimit = 100
	ti.Width = 40

	m := pickModel{
		step:       step,
		candidates: candidates,
		marked:     -1,
		input:      ti,
		result:     workflow.Pick{Action: workflow.PickAbort, Index: -1},
	}
	m.applyFilter("")
	return m
}

func (m pickModel) Init() tea.Cmd {
	return nil
}

// applyFilter keeps the candidates whose tags fuzzy match query
func (m *pickModel) applyFilter(query string) {
	visible := make([]int, 0, len(m.candidates))
	query = strings.TrimSpace(query)
	if query == "" {
		for i := range m.candidates {
			visible = append(visible, i)
		}
	} else {
		data := make([]string, len(m.candidates))
		for i, c := range m.candidates {
			data[i] = c.Tags
		}
		for _, match := range fuzzy.Find(query, data) {
			visible = append(visible, match.Index)
		}
	}
	m.visible = visible
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
}

func (m pickModel) quit(pick workflow.Pick) (tea.Model, tea.Cmd) {
	m.result = pick
	m.done = true
	return m, tea.Quit
}

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		return m.quit(workflow.Pick{Action: workflow.PickAbort, Index: -1})
	}

	switch m.mode {
	case modeFilter:
		return m.updateFilter(key)
	case modeSearch:
		return m.updateSearch(key)
	}

	m.hint = ""
	switch key.String() {
	case "esc", "q":
		return m.quit(workflow.Pick{Action: workflow.PickAbort, Index: -1})

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case " ":
		if len(m.visible) > 0 {
			idx := m.visible[m.cursor]
			if m.marked == idx {
				m.marked = -1
			} else {
				m.marked = idx
			}
		}

	case "enter":
		if m.marked >= 0 {
			return m.quit(workflow.Pick{Action: workflow.PickConfirm, Index: m.marked})
		}
		if m.step.Single {
			return m.quit(workflow.Pick{Action: workflow.PickConfirm, Index: -1})
		}
		m.hint = "mark a picture with space first"

	case "/":
		m.mode = modeFilter
		m.input.Placeholder = "filter by tags"
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd

	case "s":
		m.mode = modeSearch
		m.input.Placeholder = "new search term"
		m.input.SetValue(m.step.Term)
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m pickModel) updateFilter(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.applyFilter("")
		m.leaveInput()
		return m, nil
	case "enter":
		m.leaveInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	m.applyFilter(m.input.Value())
	return m, cmd
}

func (m pickModel) updateSearch(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.leaveInput()
		return m, nil
	case "enter":
		term := strings.TrimSpace(m.input.Value())
		if term == "" {
			m.hint = "search term is required"
			return m, nil
		}
		return m.quit(workflow.Pick{Action: workflow.PickSearch, Index: -1, Term: term})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *pickModel) leaveInput() {
	m.mode = modeBrowse
	m.input.Blur()
}

func (m pickModel) View() string {
	var sb strings.Builder

	header := fmt.Sprintf("[%d/%d] %s", m.step.Index+1, m.step.Total, m.step.Item.Text)
	sb.WriteString(labelStyle.Render(header) + "\n")
	sb.WriteString(hintStyle.Render("Search term: "+m.step.Term) + "\n\n")

	if len(m.visible) == 0 {
		sb.WriteString(itemStyle.Render("no picture matches the filter") + "\n")
	}
	for pos, idx := range m.visible {
		c := m.candidates[idx]
		mark := "○"
		if idx == m.marked {
			mark = "●"
		}
		line := fmt.Sprintf("%s %d. %-8s %-9s %s", mark, idx+1, c.Provider, c.Size(), truncate(c.Tags, 40))
		if pos == m.cursor {
			sb.WriteString(selectedStyle.Render("> "+line) + "\n")
			sb.WriteString(hintStyle.Render("     "+c.URL) + "\n")
		} else {
			sb.WriteString(itemStyle.Render(line) + "\n")
		}
	}

	switch m.mode {
	case modeFilter:
		sb.WriteString("\nFilter: " + m.input.View() + "\n")
	case modeSearch:
		sb.WriteString("\nSearch: " + m.input.View() + "\n")
	}

	if m.hint != "" {
		sb.WriteString("\n" + errorStyle.Render(m.hint) + "\n")
	}

	help := "↑/↓: move • space: mark • enter: confirm • /: filter • s: search again • esc: cancel"
	if m.mode != modeBrowse {
		help = "enter: apply • esc: back"
	}
	sb.WriteString("\n" + hintStyle.Render(help))
	return sb.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
