package testutil

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// cmdTimeout bounds how long RunCmd waits on a single command. Blink and
// spinner timers take longer and are dropped.
const cmdTimeout = 250 * time.Millisecond

// RunCmd executes cmd, expanding batches, and returns the messages produced
// within the timeout. Nil messages are skipped.
func RunCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}

	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, RunCmd(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(cmdTimeout):
		return nil
	}
}

// FindMsg returns the first message of type T produced by cmd.
func FindMsg[T tea.Msg](cmd tea.Cmd) (T, bool) {
	for _, msg := range RunCmd(cmd) {
		if m, ok := msg.(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

// Keys returns the key message for typing s.
func Keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// Key returns the key message for a special key such as tea.KeyEnter.
func Key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}
