package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Enter  key.Binding
	Escape key.Binding
	Tab    key.Binding

	// Control
	CtrlC key.Binding

	// Uploads page
	Choose  key.Binding
	Refresh key.Binding
	Logout  key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "next field"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "exit"),
	),
	Choose: key.NewBinding(
		key.WithKeys("o", "/"),
		key.WithHelp("o", "choose file"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Logout: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "log out"),
	),
}
