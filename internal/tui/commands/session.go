// Package commands provides Bubble Tea commands for TUI operations.
package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/tui"
)

// LoginCmd signs in through the session store.
func LoginCmd(ctx context.Context, store *session.Store, email, password string) tea.Cmd {
	return func() tea.Msg {
		resp, err := store.Login(ctx, email, password)
		return tui.LoginResultMsg{Resp: resp, Err: err}
	}
}

// SubscribeSession forwards session changes to a channel for WatchSessionCmd.
// The returned function stops forwarding.
func SubscribeSession(store *session.Store) (<-chan session.Session, func()) {
	ch := make(chan session.Session, 8)
	cancel := store.Subscribe(func(s session.Session) {
		select {
		case ch <- s:
		default:
			// Drop the oldest so the latest state always gets through.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	})
	return ch, cancel
}

// WatchSessionCmd waits for the next session change. Re-issue it after each
// SessionChangedMsg. It returns nil once ctx is done.
func WatchSessionCmd(ctx context.Context, changes <-chan session.Session) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-changes:
			return tui.SessionChangedMsg{Session: s}
		case <-ctx.Done():
			return nil
		}
	}
}
