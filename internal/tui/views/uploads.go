package views

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/tui"
	"github.com/csvstats/csvstats/internal/upload"
)

const timeLayout = "2006-01-02 15:04"

// UploadsModel is the view model for the upload page: a file picker, the
// progress of the running upload and the upload history.
type UploadsModel struct {
	page    upload.Page
	input   textinput.Model
	editing bool
	bar     progress.Model
	table   table.Model
	spinner spinner.Model

	// fetched is set once the server list has replaced any cached snapshot.
	fetched  bool
	seededAt time.Time

	width  int
	height int
}

// NewUploadsModel creates an UploadsModel whose history load is already
// marked as started; Init issues the request.
func NewUploadsModel(width, height int) UploadsModel {
	ti := textinput.New()
	ti.Placeholder = "path/to/file.csv"
	ti.Prompt = "File: "
	ti.CharLimit = 4096
	ti.Width = max(width-20, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	t := table.New(
		table.WithColumns(historyColumns(width)),
		table.WithRows([]table.Row{}),
		table.WithHeight(historyHeight(height)),
		table.WithFocused(true),
	)

	page := upload.NewPage()
	page.BeginHistoryLoad()

	return UploadsModel{
		page:    *page,
		input:   ti,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(max(width-20, 20))),
		table:   t,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

func historyColumns(width int) []table.Column {
	name := max(width-72, 16)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Filename", Width: name},
		{Title: "Status", Width: 18},
		{Title: "Created", Width: 16},
		{Title: "Updated", Width: 16},
	}
}

func historyHeight(height int) int {
	return max(height-18, 5)
}

// Init requests the first history load.
func (m UploadsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshUploads)
}

func refreshUploads() tea.Msg {
	return tui.RefreshUploadsMsg{}
}

// Page returns a snapshot of the page state. Changes to it do not reach
// the model.
func (m UploadsModel) Page() *upload.Page {
	page := m.page
	return &page
}

// Editing reports whether the file path input has focus.
func (m UploadsModel) Editing() bool {
	return m.editing
}

// Update handles messages for the uploads view.
func (m UploadsModel) Update(msg tea.Msg) (UploadsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)

	case tui.UploadEventMsg:
		if !m.page.InFlight() {
			return m, nil
		}
		if m.page.Apply(msg.Event) {
			return m.beginRefresh()
		}
		return m, nil

	case tui.UploadFinishedMsg:
		if msg.Err != nil && m.page.InFlight() {
			m.page.Fail(msg.Err)
		}
		return m, nil

	case tui.UploadsLoadedMsg:
		if msg.Err != nil {
			m.page.HistoryFailed(msg.Err)
			return m, nil
		}
		m.page.HistoryLoaded(msg.Records)
		m.fetched = true
		m.seededAt = time.Time{}
		m.table.SetRows(historyRows(m.page.Uploads()))
		return m, nil

	case tui.HistorySeedMsg:
		if m.fetched {
			return m, nil
		}
		loading := m.page.Loading()
		m.page.HistoryLoaded(msg.Records)
		if loading {
			m.page.BeginHistoryLoad()
		}
		m.seededAt = msg.SavedAt
		m.table.SetRows(historyRows(m.page.Uploads()))
		return m, nil

	case tui.RefreshTickMsg:
		if m.page.Loading() {
			return m, nil
		}
		return m.beginRefresh()

	case spinner.TickMsg:
		if !m.page.Loading() && !m.page.InFlight() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-20, 20)
		m.bar.Width = max(msg.Width-20, 20)
		m.table.SetColumns(historyColumns(msg.Width))
		m.table.SetHeight(historyHeight(msg.Height))
		return m, nil
	}

	return m, nil
}

func (m UploadsModel) updateEditing(msg tea.KeyMsg) (UploadsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, tui.DefaultKeyMap.Enter):
		if path := strings.TrimSpace(m.input.Value()); path != "" {
			m.page.SelectFile(path)
		}
		m.editing = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, tui.DefaultKeyMap.Escape):
		m.editing = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m UploadsModel) updateKeys(msg tea.KeyMsg) (UploadsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, tui.DefaultKeyMap.Choose):
		return m.startEditing()

	case key.Matches(msg, tui.DefaultKeyMap.Enter):
		path := m.page.Selected()
		err := m.page.BeginUpload()
		switch {
		case errors.Is(err, upload.ErrNoFileSelected):
			return m.startEditing()
		case err != nil:
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			return tui.StartUploadMsg{Path: path}
		})

	case key.Matches(msg, tui.DefaultKeyMap.Refresh):
		if m.page.Loading() {
			return m, nil
		}
		return m.beginRefresh()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m UploadsModel) startEditing() (UploadsModel, tea.Cmd) {
	m.editing = true
	m.input.SetValue(m.page.Selected())
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m UploadsModel) beginRefresh() (UploadsModel, tea.Cmd) {
	m.page.BeginHistoryLoad()
	return m, tea.Batch(m.spinner.Tick, refreshUploads)
}

func historyRows(records []api.UploadRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, table.Row{
			strconv.FormatInt(r.ID, 10),
			r.Filename,
			r.Status.Label(),
			formatTime(r.CreatedAt),
			formatTime(r.UpdatedAt),
		})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

// View renders the uploads view.
func (m UploadsModel) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("Upload a CSV file"))
	b.WriteString("\n\n")

	if m.editing {
		b.WriteString(m.input.View())
	} else if sel := m.page.Selected(); sel != "" {
		b.WriteString("File: " + sel)
	} else {
		b.WriteString(tui.DimStyle.Render("No file selected"))
	}
	b.WriteString("\n")

	if pct, ok := m.page.Progress(); ok {
		b.WriteString(m.bar.ViewAs(float64(pct) / 100))
		b.WriteString("\n")
	}

	switch fb := m.page.Feedback(); fb.Kind {
	case upload.FeedbackSuccess:
		b.WriteString(tui.SuccessStyle.Render(fb.Message))
	case upload.FeedbackError:
		b.WriteString(tui.ErrorStyle.Render(fb.Message))
	}
	b.WriteString("\n\n")

	header := tui.TitleStyle.Render("Upload history")
	if m.page.Loading() {
		header += " " + m.spinner.View()
	}
	if !m.fetched && !m.seededAt.IsZero() {
		header += tui.DimStyle.Render(fmt.Sprintf("  (cached %s)", m.seededAt.Local().Format(timeLayout)))
	}
	b.WriteString(header)
	b.WriteString("\n")

	if len(m.page.Uploads()) == 0 {
		if !m.page.Loading() {
			b.WriteString(tui.DimStyle.Render("No uploads yet."))
		}
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(m.selectedDetail())
	}

	return b.String()
}

// selectedDetail renders the highlighted row with its status colour.
func (m UploadsModel) selectedDetail() string {
	records := m.page.Uploads()
	i := m.table.Cursor()
	if i < 0 || i >= len(records) {
		return ""
	}
	r := records[i]
	return fmt.Sprintf("#%d %s  %s", r.ID, r.Filename, tui.StatusStyle(r.Status).Render(r.Status.Label()))
}
