package tui

import (
	"time"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/upload"
)

// ============================================================================
// Session Messages
// ============================================================================

// LoginResultMsg reports the outcome of a login attempt.
type LoginResultMsg struct {
	Resp *api.AuthResponse
	Err  error
}

// SessionChangedMsg is sent whenever the session store publishes a change,
// including changes made by another csvstats process.
type SessionChangedMsg struct {
	Session session.Session
}

// LogoutMsg requests signing out.
type LogoutMsg struct{}

// ============================================================================
// Upload Messages
// ============================================================================

// StartUploadMsg requests an upload of the file at Path.
type StartUploadMsg struct {
	Path string
}

// Upload messages carry Gen, the attempt they belong to. Messages from an
// attempt that was cancelled or replaced are dropped.

// UploadStartedMsg carries the stream of an upload that has begun.
type UploadStartedMsg struct {
	Gen    int
	Stream *upload.Stream
}

// UploadEventMsg carries one event from the upload stream.
type UploadEventMsg struct {
	Gen   int
	Event upload.Event
}

// UploadFinishedMsg is sent when the upload stream closes. Err is nil after
// a success event has been delivered.
type UploadFinishedMsg struct {
	Gen int
	Err error
}

// ============================================================================
// History Messages
// ============================================================================

// RefreshUploadsMsg requests a fresh upload history.
type RefreshUploadsMsg struct{}

// UploadsLoadedMsg carries the fetched upload history.
type UploadsLoadedMsg struct {
	Records []api.UploadRecord
	Err     error
}

// HistorySeedMsg carries the locally cached history shown until a fetch completes.
type HistorySeedMsg struct {
	Records []api.UploadRecord
	SavedAt time.Time
}

// RefreshTickMsg fires on the auto-refresh interval. Gen identifies the
// timer chain so a stale chain can be dropped after navigating away.
type RefreshTickMsg struct {
	Gen int
}

// ============================================================================
// Control Messages
// ============================================================================

// TickMsg is returned when a listen command times out, to keep polling.
type TickMsg struct {
	Gen int
}

// CtrlCResetMsg clears the pending Ctrl+C confirmation.
type CtrlCResetMsg struct{}
