package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action Action
	Lab    *api.Lab
}

// labItem implements list.Item for catalog display
type labItem struct {
	lab       *api.Lab
	completed bool
}

func (i labItem) Title() string {
	if i.completed {
		return i.lab.Title + " ✓"
	}
	return i.lab.Title
}

func (i labItem) Description() string {
	parts := []string{}
	for _, p := range []string{i.lab.Difficulty, i.lab.Duration, i.lab.ID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	hints := i.lab.Hints()
	if hints.RequiresExternalUI {
		parts = append(parts, "external UI")
	}
	return strings.Join(parts, " | ")
}

func (i labItem) FilterValue() string {
	return i.lab.Title + " " + i.lab.ID
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Model is the bubbletea model for the lab catalog picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a catalog picker. completed marks labs already done.
func NewPicker(labs []api.Lab, completed []string) Model {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	l := list.New(buildGroupedItems(labs, done), newGroupedDelegate(), 80, 20)
	l.Title = "Labs - Select a lab to start"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	skipHeaders(&l, 1)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(labItem); ok {
				m.result = PickerResult{Action: ActionStart, Lab: item.lab}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit

		case "up", "down", "j", "k":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			skipHeaders(&m.list, navigationDirection(msg))
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Start  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive catalog picker
func RunPicker(labs []api.Lab, completed []string) (PickerResult, error) {
	if len(labs) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	p := tea.NewProgram(NewPicker(labs, completed), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker renders the catalog as plain text for non-interactive output
func SimplePicker(labs []api.Lab, completed []string) string {
	var sb strings.Builder

	sb.WriteString("Labs\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(labs) == 0 {
		sb.WriteString("No labs found.\n")
		return sb.String()
	}

	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	for i := range labs {
		l := &labs[i]
		mark := "○"
		if done[l.ID] {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n", i+1, mark, l.Title, l.ID))
		sb.WriteString(fmt.Sprintf("   %s | %s | %d steps\n",
			orDash(l.Difficulty), orDash(l.Duration), len(l.Steps)))
		if l.Description != "" {
			sb.WriteString("   " + truncate(l.Description, 70) + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
