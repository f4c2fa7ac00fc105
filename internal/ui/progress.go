// Package ui provides line-oriented terminal output for csvstats commands.
// This file implements the progress display shown by `csvstats upload`.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// FileStatus represents the upload status of a single file.
type FileStatus int

const (
	StatusQueued    FileStatus = iota // Waiting for its turn
	StatusUploading                   // Bytes in flight
	StatusDone                        // Registered by the server
	StatusFailed                      // Rejected locally or by the server
)

// FileState holds the display state of a single file.
type FileState struct {
	Name     string
	Status   FileStatus
	Percent  int
	UploadID int64
	Message  string
	Elapsed  time.Duration
}

// ProgressDisplay manages a live-updating terminal progress view.
type ProgressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	files       []*FileState
	started     bool
	isTTY       bool
	linesDrawn  int
	startTimes  map[int]time.Time
	lastPrinted map[int]FileStatus // tracks last printed status per file (non-TTY)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewProgressDisplay creates a ProgressDisplay writing to out. When isTTY is
// set the display redraws in place; otherwise it prints one line per status change.
func NewProgressDisplay(out io.Writer, isTTY bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:         out,
		isTTY:       isTTY,
		startTimes:  make(map[int]time.Time),
		lastPrinted: make(map[int]FileStatus),
	}
}

// AddFile registers a file and returns its index.
func (p *ProgressDisplay) AddFile(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.files = append(p.files, &FileState{Name: name})
	return len(p.files) - 1
}

// Start draws the initial progress display.
func (p *ProgressDisplay) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = true
	p.render()
}

// Begin marks file i as uploading.
func (p *ProgressDisplay) Begin(i int) {
	p.update(i, func(f *FileState) {
		f.Status = StatusUploading
		f.Percent = 0
		p.startTimes[i] = time.Now()
	})
}

// Progress records the upload percentage for file i.
func (p *ProgressDisplay) Progress(i, percent int) {
	p.update(i, func(f *FileState) {
		f.Percent = percent
	})
}

// Done marks file i as registered under id.
func (p *ProgressDisplay) Done(i int, id int64) {
	p.update(i, func(f *FileState) {
		f.Status = StatusDone
		f.Percent = 100
		f.UploadID = id
		p.stopClock(i, f)
	})
}

// Fail marks file i as failed with msg.
func (p *ProgressDisplay) Fail(i int, msg string) {
	p.update(i, func(f *FileState) {
		f.Status = StatusFailed
		f.Message = msg
		p.stopClock(i, f)
	})
}

func (p *ProgressDisplay) stopClock(i int, f *FileState) {
	if start, ok := p.startTimes[i]; ok {
		f.Elapsed = time.Since(start)
	}
}

func (p *ProgressDisplay) update(i int, fn func(*FileState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.files) {
		return
	}
	fn(p.files[i])
	if p.started {
		p.render()
	}
}

// Finish finalizes the display and prints a summary line.
// It returns the number of failed files.
func (p *ProgressDisplay) Finish() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	done, failed := 0, 0
	for _, f := range p.files {
		switch f.Status {
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		}
	}

	fmt.Fprintf(p.out, "\nDone: %d/%d uploaded", done, len(p.files))
	if failed > 0 {
		fmt.Fprintf(p.out, ", %d failed", failed)
	}
	fmt.Fprintln(p.out)
	return failed
}

// render draws or redraws the progress display.
func (p *ProgressDisplay) render() {
	if !p.isTTY {
		p.renderPlain()
		return
	}
	p.renderTTY()
}

// renderTTY draws the progress display using ANSI escape codes for in-place updates.
func (p *ProgressDisplay) renderTTY() {
	// Move cursor up to overwrite previous output.
	if p.linesDrawn > 0 {
		fmt.Fprintf(p.out, "\033[%dA", p.linesDrawn)
	}

	var buf strings.Builder
	for i, f := range p.files {
		buf.WriteString("\033[2K")
		buf.WriteString(formatFileLine(f, p.startTimes[i]))
		buf.WriteString("\n")
	}

	fmt.Fprint(p.out, buf.String())
	p.linesDrawn = len(p.files)
}

// renderPlain writes non-TTY output (for CI/piping).
// Only prints on status transitions to avoid duplicate lines.
func (p *ProgressDisplay) renderPlain() {
	for i, f := range p.files {
		if f.Status == StatusQueued {
			continue
		}
		if prev, seen := p.lastPrinted[i]; seen && prev == f.Status {
			continue
		}
		fmt.Fprintln(p.out, formatFileLinePlain(f))
		p.lastPrinted[i] = f.Status
	}
}

const barWidth = 24

// formatFileLine formats a single file line with ANSI colors and a bar.
func formatFileLine(f *FileState, start time.Time) string {
	name := f.Name
	if len(name) > 40 {
		name = name[:37] + "..."
	}

	switch f.Status {
	case StatusUploading:
		return fmt.Sprintf("  \033[33m⏳\033[0m %-40s %s %3d%% \033[90m[%s]\033[0m",
			name, bar(f.Percent), f.Percent, formatDuration(time.Since(start)))
	case StatusDone:
		return fmt.Sprintf("  \033[32m✅\033[0m %-40s tracking #%d \033[90m[%s]\033[0m",
			name, f.UploadID, formatDuration(f.Elapsed))
	case StatusFailed:
		return fmt.Sprintf("  \033[31m❌\033[0m %-40s \033[31m%s\033[0m", name, f.Message)
	default:
		return fmt.Sprintf("  \033[90m○\033[0m %-40s \033[90m[queued]\033[0m", name)
	}
}

// formatFileLinePlain formats a file line for non-TTY output.
func formatFileLinePlain(f *FileState) string {
	switch f.Status {
	case StatusUploading:
		return fmt.Sprintf("[UPLOADING] %s", f.Name)
	case StatusDone:
		return fmt.Sprintf("[DONE] %s: tracking #%d [%s]", f.Name, f.UploadID, formatDuration(f.Elapsed))
	case StatusFailed:
		return fmt.Sprintf("[FAILED] %s: %s", f.Name, f.Message)
	default:
		return fmt.Sprintf("[QUEUED] %s", f.Name)
	}
}

func bar(percent int) string {
	filled := percent * barWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", h, m, s)
}
