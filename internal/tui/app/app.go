// Package app provides the main TUI application that wires all views together.
package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csvstats/csvstats/internal/session"
	"github.com/csvstats/csvstats/internal/tui"
	"github.com/csvstats/csvstats/internal/tui/commands"
	"github.com/csvstats/csvstats/internal/tui/views"
	"github.com/csvstats/csvstats/internal/upload"
)

// App is the main TUI application. It owns routing and runs the commands
// the views ask for.
type App struct {
	model *tui.Model

	// View models
	loginView     views.LoginModel
	dashboardView views.DashboardModel

	// Upload in flight, if any. uploadGen tags the current attempt.
	stream       *upload.Stream
	cancelUpload context.CancelFunc
	uploadGen    int

	sessionCh   <-chan session.Session
	unsubscribe func()

	// tickGen tags the current auto-refresh chain.
	tickGen int
}

// New creates an App over deps. Call Close once the program has exited.
func New(deps tui.Deps) *App {
	model := tui.NewModel(deps)
	ch, unsubscribe := commands.SubscribeSession(deps.Session)

	return &App{
		model:       model,
		sessionCh:   ch,
		unsubscribe: unsubscribe,
	}
}

// Route returns the screen currently shown.
func (a *App) Route() tui.Route {
	return a.model.Route
}

// Close stops the session subscription and cancels any running upload.
func (a *App) Close() {
	a.cancelInFlight()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Init returns the initial command for the TUI.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		commands.WatchSessionCmd(a.model.Deps.Ctx, a.sessionCh),
		a.enter(a.model.Route),
	)
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	deps := a.model.Deps

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == tui.KeyCtrlC {
			if a.model.CtrlCPending {
				// Second press within timeout - exit
				a.cancelInFlight()
				return a, tea.Quit
			}
			a.model.CtrlCPending = true
			return a, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})
		}

	case tui.CtrlCResetMsg:
		a.model.CtrlCPending = false
		return a, nil

	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height

	case tui.SessionChangedMsg:
		return a, tea.Batch(
			commands.WatchSessionCmd(deps.Ctx, a.sessionCh),
			a.onSessionChanged(msg.Session),
		)

	case views.SubmitLoginMsg:
		return a, commands.LoginCmd(deps.Ctx, deps.Session, msg.Email, msg.Password)

	case tui.LoginResultMsg:
		var cmd tea.Cmd
		if a.model.Route == tui.RouteLogin {
			a.loginView, cmd = a.loginView.Update(msg)
		}
		if msg.Err == nil {
			return a, tea.Batch(cmd, a.navigate(tui.RouteUploads))
		}
		return a, cmd

	case tui.LogoutMsg:
		deps.Session.Logout()
		return a, a.navigate(tui.RouteLogin)

	case tui.StartUploadMsg:
		a.cancelInFlight()
		ctx, cancel := context.WithCancel(deps.Ctx)
		a.cancelUpload = cancel
		return a, commands.StartUploadCmd(ctx, deps.Pipeline, msg.Path, a.uploadGen)

	case tui.UploadStartedMsg:
		if msg.Gen != a.uploadGen || a.cancelUpload == nil {
			return a, nil // cancelled before it started
		}
		a.stream = msg.Stream
		return a, commands.ListenUploadCmd(a.stream, a.uploadGen)

	case tui.UploadEventMsg:
		if msg.Gen != a.uploadGen || a.stream == nil {
			return a, nil
		}
		return a, tea.Batch(a.updateView(msg), commands.ListenUploadCmd(a.stream, a.uploadGen))

	case tui.TickMsg:
		if msg.Gen != a.uploadGen || a.stream == nil {
			return a, nil
		}
		return a, commands.ListenUploadCmd(a.stream, a.uploadGen)

	case tui.UploadFinishedMsg:
		if msg.Gen != a.uploadGen || a.cancelUpload == nil {
			return a, nil
		}
		a.cancelInFlight()
		return a, a.updateView(msg)

	case tui.RefreshUploadsMsg:
		if a.model.Route != tui.RouteUploads {
			return a, nil
		}
		return a, commands.LoadUploadsCmd(deps.Ctx, deps.Pipeline, deps.History, a.dashboardView.Email())

	case tui.RefreshTickMsg:
		if msg.Gen != a.tickGen || a.model.Route != tui.RouteUploads {
			return a, nil // stale chain
		}
		return a, tea.Batch(a.updateView(msg), commands.RefreshTickCmd(a.refreshInterval(), a.tickGen))
	}

	return a, a.updateView(msg)
}

// updateView forwards msg to the view for the current route.
func (a *App) updateView(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.model.Route {
	case tui.RouteLogin:
		a.loginView, cmd = a.loginView.Update(msg)
	case tui.RouteUploads:
		a.dashboardView, cmd = a.dashboardView.Update(msg)
	}
	return cmd
}

// onSessionChanged re-routes after a sign-in or sign-out, whether it came
// from this screen or from another csvstats process.
func (a *App) onSessionChanged(s session.Session) tea.Cmd {
	if a.model.Route == tui.RouteUploads && s.SignedIn() && s.Email != a.dashboardView.Email() {
		// Signed in as someone else elsewhere: rebuild for the new account.
		a.leave()
		return a.enter(tui.RouteUploads)
	}
	return a.navigate(a.model.Route)
}

// navigate moves to the route the guard allows for requested.
func (a *App) navigate(requested tui.Route) tea.Cmd {
	route := tui.Guard(requested, a.model.Deps.Session.IsAuthenticated())
	if route == a.model.Route && a.entered() {
		return nil
	}
	a.leave()
	return a.enter(route)
}

func (a *App) entered() bool {
	switch a.model.Route {
	case tui.RouteUploads:
		return a.dashboardView.Email() != ""
	default:
		return true
	}
}

// leave tears down state owned by the current route.
func (a *App) leave() {
	if a.model.Route == tui.RouteUploads {
		a.cancelInFlight()
		a.tickGen++
		a.dashboardView = views.DashboardModel{}
	}
}

// enter builds the view for route and returns its start-up commands.
func (a *App) enter(route tui.Route) tea.Cmd {
	deps := a.model.Deps
	a.model.Route = route

	switch route {
	case tui.RouteUploads:
		email := deps.Session.CurrentEmail()
		a.dashboardView = views.NewDashboardModel(email, a.model.Width, a.model.Height)
		a.tickGen++
		return tea.Batch(
			a.dashboardView.Init(),
			commands.LoadSnapshotCmd(deps.History, email),
			commands.RefreshTickCmd(a.refreshInterval(), a.tickGen),
		)
	default:
		a.loginView = views.NewLoginModel(a.model.Width, a.model.Height)
		return a.loginView.Init()
	}
}

// cancelInFlight stops the current upload and retires its generation.
func (a *App) cancelInFlight() {
	if a.cancelUpload != nil {
		a.cancelUpload()
		a.cancelUpload = nil
	}
	a.stream = nil
	a.uploadGen++
}

func (a *App) refreshInterval() time.Duration {
	if a.model.Deps.Cfg == nil {
		return 0
	}
	return a.model.Deps.Cfg.RefreshInterval()
}

// View renders the current route.
func (a *App) View() string {
	a.loginView.SetCtrlCPending(a.model.CtrlCPending)
	a.dashboardView.SetCtrlCPending(a.model.CtrlCPending)

	switch a.model.Route {
	case tui.RouteLogin:
		return a.loginView.View()
	case tui.RouteUploads:
		return a.dashboardView.View()
	default:
		return "Unknown route"
	}
}
