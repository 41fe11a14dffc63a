package prompt

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeRunes(t *testing.T, m tea.Model, s string) tea.Model {
	t.Helper()
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestPasswordSubmit(t *testing.T) {
	var m tea.Model = NewPassword("notes.ctz", false)
	m = typeRunes(t, m, "s3cret")

	assert.NotContains(t, m.View(), "s3cret")
	assert.Contains(t, m.View(), "notes.ctz")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, quit := cmd().(tea.QuitMsg)
	assert.True(t, quit)

	pm := m.(PasswordModel)
	assert.True(t, pm.Submitted())
	assert.False(t, pm.Cancelled())
	assert.Equal(t, "s3cret", pm.Value())
}

func TestPasswordCancel(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = NewPassword("notes.ctz", false)
			m = typeRunes(t, m, "abc")
			m, _ = m.Update(tt.msg)

			pm := m.(PasswordModel)
			assert.True(t, pm.Cancelled())
			assert.False(t, pm.Submitted())
			assert.Empty(t, pm.View())
		})
	}
}

func TestPasswordRetryNotice(t *testing.T) {
	assert.NotContains(t, NewPassword("a.ctx", false).View(), "Wrong password")
	assert.Contains(t, NewPassword("a.ctx", true).View(), "Wrong password")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"y", true},
		{"Y", true},
		{"n", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, cmd := NewConfirm("Delete?").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, m.(ConfirmModel).Confirmed())
		})
	}

	m, cmd := NewConfirm("Delete?").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
	assert.False(t, m.(ConfirmModel).Confirmed())
	assert.True(t, strings.Contains(m.View(), "Delete?"))
}

func TestTerminalPasswordFromInput(t *testing.T) {
	term := &Terminal{In: strings.NewReader("pw\r"), Out: &strings.Builder{}}
	got, err := term.Password(t.Context(), "doc.ctz", false)
	require.NoError(t, err)
	assert.Equal(t, "pw", got)
}
