// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Common key binding constants.
const (
	KeyCtrlC    = "ctrl+c"
	KeyTab      = "tab"
	KeyShiftTab = "shift+tab"
	KeyEnter    = "enter"
	KeyEsc      = "esc"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the TUI program with the given model.
// If stdout is a TTY, it runs in alternate screen mode until the user quits
// or ctx is cancelled. Otherwise, it prints the equivalent CLI commands.
func Run(ctx context.Context, m tea.Model) error {
	if IsTTY() {
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := p.Run()
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return runFallback(os.Stdout)
}
