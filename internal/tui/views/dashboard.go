package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csvstats/csvstats/internal/tui"
)

// DashboardModel is the signed-in shell: a header with the account and the
// uploads page below it.
type DashboardModel struct {
	email   string
	uploads UploadsModel
	width   int
	height  int

	ctrlCPending bool
}

// NewDashboardModel creates a DashboardModel for the signed-in email.
func NewDashboardModel(email string, width, height int) DashboardModel {
	return DashboardModel{
		email:   email,
		uploads: NewUploadsModel(width, height),
		width:   width,
		height:  height,
	}
}

// Init starts the uploads page.
func (m DashboardModel) Init() tea.Cmd {
	return m.uploads.Init()
}

// Email returns the account shown in the header.
func (m DashboardModel) Email() string {
	return m.email
}

// Uploads returns the embedded uploads view.
func (m DashboardModel) Uploads() UploadsModel {
	return m.uploads
}

// SetCtrlCPending updates the Ctrl+C confirmation hint.
func (m *DashboardModel) SetCtrlCPending(pending bool) {
	m.ctrlCPending = pending
}

// Update handles messages for the dashboard.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.uploads.Editing() {
			switch {
			case key.Matches(msg, tui.DefaultKeyMap.Logout):
				return m, func() tea.Msg { return tui.LogoutMsg{} }
			case key.Matches(msg, tui.DefaultKeyMap.Tab):
				// Uploads is the only tab.
				return m, nil
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd
	m.uploads, cmd = m.uploads.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	var b strings.Builder

	b.WriteString(tui.ActiveTabStyle.Render("Uploads"))
	b.WriteString("  ")
	b.WriteString(tui.DimStyle.Render("signed in as " + m.email))
	b.WriteString("\n\n")
	b.WriteString(m.uploads.View())
	b.WriteString("\n\n")

	footer := "o: Choose file  Enter: Upload  r: Refresh  l: Sign out  Ctrl+C: Exit"
	if m.uploads.Editing() {
		footer = "Enter: Select file  Esc: Cancel"
	}
	if m.ctrlCPending {
		footer = "Press Ctrl+C again to exit"
	}
	b.WriteString(tui.StatusBarStyle.Render(footer))

	return tui.BoxStyle.Width(max(m.width-4, 40)).Render(b.String())
}
