package commands

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csvstats/csvstats/internal/history"
	"github.com/csvstats/csvstats/internal/tui"
	"github.com/csvstats/csvstats/internal/upload"
)

// listenTimeout bounds each ListenUploadCmd wait so the UI keeps ticking.
const listenTimeout = 100 * time.Millisecond

// StartUploadCmd validates the file at path and starts uploading it.
// Local validation failures come back as UploadFinishedMsg. Every message
// is tagged with gen.
func StartUploadCmd(ctx context.Context, pipeline *upload.Pipeline, path string, gen int) tea.Cmd {
	return func() tea.Msg {
		f, err := upload.OpenFile(path)
		if err != nil {
			return tui.UploadFinishedMsg{Gen: gen, Err: err}
		}
		return tui.UploadStartedMsg{Gen: gen, Stream: pipeline.UploadFile(ctx, f)}
	}
}

// ListenUploadCmd polls the upload stream for its next event.
// Returns UploadEventMsg for each event, UploadFinishedMsg when the
// stream closes, or TickMsg on timeout to keep polling.
func ListenUploadCmd(stream *upload.Stream, gen int) tea.Cmd {
	return func() tea.Msg {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				return tui.UploadFinishedMsg{Gen: gen, Err: stream.Err()}
			}
			return tui.UploadEventMsg{Gen: gen, Event: event}
		case <-time.After(listenTimeout):
			return tui.TickMsg{Gen: gen} // keep polling
		}
	}
}

// LoadUploadsCmd fetches the upload history and, when cache is non-nil,
// stores it as the snapshot for email.
func LoadUploadsCmd(ctx context.Context, pipeline *upload.Pipeline, cache *history.Cache, email string) tea.Cmd {
	return func() tea.Msg {
		records, err := pipeline.ListUploads(ctx)
		if err != nil {
			return tui.UploadsLoadedMsg{Err: err}
		}
		if cache != nil && email != "" {
			// A failed snapshot write only costs the offline view.
			_ = cache.Save(email, records)
		}
		return tui.UploadsLoadedMsg{Records: records}
	}
}

// LoadSnapshotCmd reads the cached history for email. It returns nil when
// there is no cache or no snapshot.
func LoadSnapshotCmd(cache *history.Cache, email string) tea.Cmd {
	if cache == nil || email == "" {
		return nil
	}
	return func() tea.Msg {
		records, savedAt, ok, err := cache.Load(email)
		if err != nil || !ok {
			return nil
		}
		return tui.HistorySeedMsg{Records: records, SavedAt: savedAt}
	}
}

// RefreshTickCmd fires a RefreshTickMsg for generation gen after interval.
// A non-positive interval disables auto refresh.
func RefreshTickCmd(interval time.Duration, gen int) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tui.RefreshTickMsg{Gen: gen}
	})
}
