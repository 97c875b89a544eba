package cmd

import (
	"errors"
	"testing"

	"agriflow/internal/api"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds credentials
		want  string
	}{
		{"valid", credentials{Email: "ana@example.org", Password: "secret1"}, ""},
		{"missing email", credentials{Password: "secret1"}, "email is required"},
		{"bad email", credentials{Email: "ana", Password: "secret1"}, "enter a valid email address"},
		{"missing password", credentials{Email: "ana@example.org"}, "password is required"},
		{"short password", credentials{Email: "ana@example.org", Password: "12345"}, "password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateCredentials(tt.creds))
		})
	}
}

func typeInto(m loginModel, s string) loginModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(loginModel)
}

func press(m loginModel, k tea.KeyType) (loginModel, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(loginModel), cmd
}

func TestLoginModelSubmitsValidCredentials(t *testing.T) {
	var gotEmail, gotPassword string
	m := newLoginModel("", func(email, password string) (string, error) {
		gotEmail, gotPassword = email, password
		return "tok-123", nil
	})

	m = typeInto(m, "ana@example.org")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.focus)

	m = typeInto(m, "secret1")
	m, cmd = press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)

	next, quit := m.Update(cmd())
	m = next.(loginModel)
	assert.Equal(t, "ana@example.org", gotEmail)
	assert.Equal(t, "secret1", gotPassword)
	assert.Equal(t, "tok-123", m.token)
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
}

func TestLoginModelRejectsShortPassword(t *testing.T) {
	called := false
	m := newLoginModel("ana@example.org", func(string, string) (string, error) {
		called = true
		return "", nil
	})
	m = typeInto(m, "123")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, called)
	assert.Equal(t, "password must be at least 6 characters", m.status)
}

func TestLoginModelShowsWrongPassword(t *testing.T) {
	m := newLoginModel("ana@example.org", nil)
	next, cmd := m.Update(loginResultMsg{err: &api.StatusError{Code: 401, Message: "invalid credentials"}})
	m = next.(loginModel)
	assert.Nil(t, cmd)
	assert.Equal(t, "wrong email or password", m.status)
	assert.Empty(t, m.token)

	next, _ = m.Update(loginResultMsg{err: errors.New("connection refused")})
	assert.Equal(t, "login failed: connection refused", next.(loginModel).status)
}

func TestLoginModelEscCancels(t *testing.T) {
	m := newLoginModel("", nil)
	m, cmd := press(m, tea.KeyEsc)
	require.NotNil(t, cmd)
	assert.Empty(t, m.token)
}
