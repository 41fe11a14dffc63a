// Package prompt holds the small terminal dialogs the CLI needs: a password
// entry for encrypted documents and a yes/no confirmation.
package prompt

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/grovetools/treenote/pkg/service"
)

var (
	accent     = lipgloss.Color("208")
	errorColor = lipgloss.Color("196")
)

// --- Model ---

// PasswordModel asks for the password of one document.
type PasswordModel struct {
	input     textinput.Model
	path      string
	retry     bool
	submitted bool
	cancelled bool
	keys      passwordKeyMap
}

// NewPassword creates a focused password model. retry shows the
// wrong-password notice.
func NewPassword(path string, retry bool) PasswordModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Placeholder = "password"
	ti.CharLimit = 256
	ti.Width = 40
	ti.Focus()
	return PasswordModel{
		input: ti,
		path:  path,
		retry: retry,
		keys:  defaultPasswordKeyMap,
	}
}

func (m PasswordModel) Value() string   { return m.input.Value() }
func (m PasswordModel) Submitted() bool { return m.submitted }
func (m PasswordModel) Cancelled() bool { return m.cancelled }

func (m PasswordModel) Init() tea.Cmd {
	return textinput.Blink
}

// --- Update ---

func (m PasswordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Submit):
			m.submitted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// --- View ---

func (m PasswordModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(accent).
		Render(fmt.Sprintf("Password for %s", m.path))
	lines := []string{title}
	if m.retry {
		lines = append(lines, lipgloss.NewStyle().Foreground(errorColor).Render("Wrong password, try again."))
	}
	lines = append(lines, "", m.input.View())

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	help := lipgloss.NewStyle().Faint(true).Render("enter: open • esc: cancel")
	return lipgloss.JoinVertical(lipgloss.Left, box, help) + "\n"
}

// --- KeyMap ---

type passwordKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

var defaultPasswordKeyMap = passwordKeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// --- Prompter ---

// Terminal runs the dialogs as inline bubbletea programs. Nil streams fall
// back to the process terminal.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

var _ service.PasswordPrompter = (*Terminal)(nil)

func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}
	return tea.NewProgram(m, opts...).Run()
}

// Password implements service.PasswordPrompter.
func (t *Terminal) Password(ctx context.Context, path string, retry bool) (string, error) {
	final, err := t.run(ctx, NewPassword(path, retry))
	if err != nil {
		return "", fmt.Errorf("run password prompt: %w", err)
	}
	m, ok := final.(PasswordModel)
	if !ok || !m.Submitted() {
		return "", service.ErrCancelled
	}
	return m.Value(), nil
}
