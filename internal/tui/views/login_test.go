package views

import (
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/testutil"
	"github.com/csvstats/csvstats/internal/tui"
)

func fillLogin(t *testing.T, m LoginModel, email, password string) LoginModel {
	t.Helper()
	if email != "" {
		m, _ = m.Update(testutil.Keys(email))
	}
	m, _ = m.Update(testutil.Key(tea.KeyTab))
	if password != "" {
		m, _ = m.Update(testutil.Keys(password))
	}
	return m
}

func TestLoginRequiresBothFields(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty form", "", ""},
		{"missing password", "demo@example.com", ""},
		{"missing email", "", "secret"},
		{"blank email", "   ", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fillLogin(t, NewLoginModel(80, 24), tt.email, tt.password)

			m, cmd := m.Update(testutil.Key(tea.KeyEnter))

			assert.Nil(t, cmd, "nothing may be sent for an incomplete form")
			assert.False(t, m.Submitting())
			assert.Equal(t, session.MsgCredentialsRequired, m.Error())
			assert.Contains(t, m.View(), session.MsgCredentialsRequired)
		})
	}
}

func TestLoginSubmitsOnce(t *testing.T) {
	m := fillLogin(t, NewLoginModel(80, 24), "demo@example.com", "secret")

	m, cmd := m.Update(testutil.Key(tea.KeyEnter))
	require.True(t, m.Submitting())

	submit, ok := testutil.FindMsg[SubmitLoginMsg](cmd)
	require.True(t, ok)
	assert.Equal(t, SubmitLoginMsg{Email: "demo@example.com", Password: "secret"}, submit)
	assert.Contains(t, m.View(), "Signing in")

	// A second Enter while the request is outstanding does nothing.
	m, cmd = m.Update(testutil.Key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.True(t, m.Submitting())
}

func TestLoginShowsServerMessage(t *testing.T) {
	m := fillLogin(t, NewLoginModel(80, 24), "demo@example.com", "wrong")
	m, _ = m.Update(testutil.Key(tea.KeyEnter))

	m, _ = m.Update(tui.LoginResultMsg{Err: &api.Error{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}})

	assert.False(t, m.Submitting())
	assert.Equal(t, "Invalid credentials", m.Error())

	// The form can be resubmitted after a failure.
	m, cmd := m.Update(testutil.Key(tea.KeyEnter))
	assert.True(t, m.Submitting())
	assert.NotNil(t, cmd)
}

func TestLoginFallbackMessage(t *testing.T) {
	m := fillLogin(t, NewLoginModel(80, 24), "demo@example.com", "secret")
	m, _ = m.Update(testutil.Key(tea.KeyEnter))

	m, _ = m.Update(tui.LoginResultMsg{Err: &api.Error{StatusCode: http.StatusBadGateway}})

	assert.Equal(t, session.MsgLoginFailed, m.Error())
}

func TestLoginCtrlCHint(t *testing.T) {
	m := NewLoginModel(80, 24)
	m.SetCtrlCPending(true)
	assert.Contains(t, m.View(), "Press Ctrl+C again to exit")
}
