package prompt

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmModel is a yes/no question.
type ConfirmModel struct {
	Question string
	answered bool
	yes      bool
	keys     confirmKeyMap
}

func NewConfirm(question string) ConfirmModel {
	return ConfirmModel{Question: question, keys: defaultConfirmKeyMap}
}

// Confirmed reports whether the user answered yes.
func (m ConfirmModel) Confirmed() bool { return m.answered && m.yes }

func (m ConfirmModel) Init() tea.Cmd { return nil }

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.answered, m.yes = true, true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.answered = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.answered {
		return ""
	}

	dialogBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Render(m.Question)

	helpText := lipgloss.NewStyle().
		Faint(true).
		Width(lipgloss.Width(dialogBox)).
		Align(lipgloss.Center).
		Render("(y/n)")

	return lipgloss.JoinVertical(lipgloss.Left, dialogBox, helpText) + "\n"
}

type confirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

var defaultConfirmKeyMap = confirmKeyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "esc", "ctrl+c"),
		key.WithHelp("n/esc", "cancel"),
	),
}

// Confirm asks question and returns the answer. Anything but an explicit
// yes is a no.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	final, err := t.run(ctx, NewConfirm(question))
	if err != nil {
		return false, fmt.Errorf("run confirmation prompt: %w", err)
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Confirmed(), nil
}
