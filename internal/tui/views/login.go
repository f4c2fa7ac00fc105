// Package views provides TUI view components for the csvstats application.
package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/tui"
)

// ============================================================================
// Message Types
// ============================================================================

// SubmitLoginMsg is sent when the user submits a complete login form.
type SubmitLoginMsg struct {
	Email    string
	Password string
}

// ============================================================================
// LoginModel
// ============================================================================

const (
	fieldEmail = iota
	fieldPassword
)

// LoginModel is the view model for the sign-in screen.
type LoginModel struct {
	email      textinput.Model
	password   textinput.Model
	focus      int
	spinner    spinner.Model
	submitting bool
	errMsg     string
	width      int
	height     int

	ctrlCPending bool
}

// NewLoginModel creates a LoginModel with the email field focused.
func NewLoginModel(width, height int) LoginModel {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    "
	email.CharLimit = 254
	email.Width = inputWidth(width)
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 256
	password.Width = inputWidth(width)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return LoginModel{
		email:    email,
		password: password,
		spinner:  sp,
		width:    width,
		height:   height,
	}
}

func inputWidth(width int) int {
	if width <= 20 {
		return 20
	}
	return width - 20
}

// Init returns the initial command for the login view.
func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// Submitting reports whether a login request is outstanding.
func (m LoginModel) Submitting() bool {
	return m.submitting
}

// Error returns the message currently shown under the form.
func (m LoginModel) Error() string {
	return m.errMsg
}

// SetCtrlCPending updates the Ctrl+C confirmation hint.
func (m *LoginModel) SetCtrlCPending(pending bool) {
	m.ctrlCPending = pending
}

// Update handles messages for the login view.
func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.Enter):
			return m.submit()
		case key.Matches(msg, tui.DefaultKeyMap.Tab), msg.String() == "up", msg.String() == "down":
			return m.toggleFocus(), textinput.Blink
		}

	case tui.LoginResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.errMsg = session.LoginErrorMessage(msg.Err)
			return m, nil
		}
		m.errMsg = ""
		m.password.Reset()
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.email.Width = inputWidth(msg.Width)
		m.password.Width = inputWidth(msg.Width)
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == fieldEmail {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

// submit validates the form locally; only a complete form produces a
// SubmitLoginMsg, and nothing is sent while a request is outstanding.
func (m LoginModel) submit() (LoginModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if err := session.ValidateCredentials(email, password); err != nil {
		m.errMsg = session.LoginErrorMessage(err)
		return m, nil
	}

	m.submitting = true
	m.errMsg = ""
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return SubmitLoginMsg{Email: email, Password: password}
	})
}

func (m LoginModel) toggleFocus() LoginModel {
	if m.focus == fieldEmail {
		m.focus = fieldPassword
		m.email.Blur()
		m.password.Focus()
	} else {
		m.focus = fieldEmail
		m.password.Blur()
		m.email.Focus()
	}
	return m
}

// View renders the login view.
func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("csvstats - Sign in"))
	b.WriteString("\n\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	switch {
	case m.submitting:
		b.WriteString(m.spinner.View() + " Signing in...")
	case m.errMsg != "":
		b.WriteString(tui.ErrorStyle.Render(m.errMsg))
	default:
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	footer := "Tab: Next field       Enter: Sign in       Ctrl+C: Exit"
	if m.ctrlCPending {
		footer = "Press Ctrl+C again to exit"
	}
	b.WriteString(tui.StatusBarStyle.Render(footer))

	boxed := tui.BoxStyle.
		Width(max(m.width-4, 40)).
		Render(b.String())

	// Center vertically if there's space
	contentHeight := lipgloss.Height(boxed)
	if m.height > contentHeight {
		padding := (m.height - contentHeight) / 3 // Slight offset toward top
		if padding > 0 {
			boxed = strings.Repeat("\n", padding) + boxed
		}
	}

	return boxed
}
