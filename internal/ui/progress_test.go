package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPlainProgressPrintsTransitionsOnce(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)
	a := p.AddFile("a.csv")
	b := p.AddFile("b.txt")
	p.Start()

	p.Begin(a)
	p.Progress(a, 30)
	p.Progress(a, 60)
	p.Done(a, 5)
	p.Fail(b, "Only CSV uploads are supported")
	failed := p.Finish()

	if failed != 1 {
		t.Errorf("Finish() = %d, want 1", failed)
	}

	out := buf.String()
	if n := strings.Count(out, "[UPLOADING] a.csv"); n != 1 {
		t.Errorf("uploading line printed %d times, want 1:\n%s", n, out)
	}
	if !strings.Contains(out, "[DONE] a.csv: tracking #5") {
		t.Errorf("missing done line:\n%s", out)
	}
	if !strings.Contains(out, "[FAILED] b.txt: Only CSV uploads are supported") {
		t.Errorf("missing failed line:\n%s", out)
	}
	if !strings.Contains(out, "Done: 1/2 uploaded, 1 failed") {
		t.Errorf("missing summary:\n%s", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("plain output contains escape codes:\n%q", out)
	}
}

func TestTTYProgressRedraws(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, true)
	i := p.AddFile("a.csv")
	p.Start()
	p.Begin(i)
	p.Progress(i, 50)

	out := buf.String()
	if !strings.Contains(out, "\033[1A") {
		t.Errorf("expected cursor-up escape on redraw:\n%q", out)
	}
	if !strings.Contains(out, " 50%") {
		t.Errorf("expected percentage in output:\n%q", out)
	}
}

func TestUpdateIgnoresUnknownIndex(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, false)
	p.Start()
	p.Progress(3, 10)
	p.Done(-1, 1)
	if buf.Len() != 0 {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent int
		want    int
	}{
		{0, 0},
		{50, barWidth / 2},
		{100, barWidth},
		{150, barWidth},
		{-10, 0},
	}
	for _, tt := range tests {
		got := strings.Count(bar(tt.percent), "#")
		if got != tt.want {
			t.Errorf("bar(%d) filled %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3 * time.Second, "3s"},
		{90 * time.Second, "1m30s"},
		{time.Hour + 2*time.Minute + 5*time.Second, "1h2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
