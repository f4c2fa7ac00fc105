package tui

import (
	"context"

	"github.com/csvstats/csvstats/internal/config"
	"github.com/csvstats/csvstats/internal/history"
	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/upload"
)

// Route identifies the screen being shown.
type Route int

const (
	RouteLogin Route = iota
	RouteUploads
)

func (r Route) String() string {
	switch r {
	case RouteLogin:
		return "login"
	case RouteUploads:
		return "dashboard/uploads"
	default:
		return "unknown"
	}
}

// Guard returns the route to show for a requested route: dashboard routes
// need a session, and the login screen is skipped when already signed in.
func Guard(requested Route, authenticated bool) Route {
	if !authenticated {
		return RouteLogin
	}
	if requested == RouteLogin {
		return RouteUploads
	}
	return requested
}

// Deps holds the services the TUI drives.
type Deps struct {
	// Ctx is cancelled when the program exits; in-flight requests use it.
	Ctx      context.Context
	Cfg      *config.Config
	Session  *session.Store
	Pipeline *upload.Pipeline
	// History may be nil when the snapshot cache is disabled.
	History *history.Cache
}

// Model holds state shared across views.
type Model struct {
	Route Route
	Deps  Deps

	// Terminal dimensions
	Width  int
	Height int

	// Ctrl+C confirmation state
	CtrlCPending bool
}

// NewModel creates a Model starting at the route the guard allows.
func NewModel(deps Deps) *Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	return &Model{
		Route:  Guard(RouteUploads, deps.Session.IsAuthenticated()),
		Deps:   deps,
		Width:  80,
		Height: 24,
	}
}
