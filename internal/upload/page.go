package upload

import (
	"errors"
	"fmt"

	"github.com/csvstats/csvstats/internal/api"
)

// Page errors returned by BeginUpload.
var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrUploadInFlight = errors.New("an upload is already in progress")
)

// Feedback messages shown on the uploads page.
const (
	MsgUploadFailed = "Upload failed. Please try again."
	MsgListFailed   = "Unable to load uploads. Please try again."
)

// SuccessMessage is the feedback shown once the server registers an upload.
func SuccessMessage(id int64) string {
	return fmt.Sprintf("Upload registered! Tracking #%d", id)
}

// FeedbackKind is the tone of a feedback message.
type FeedbackKind int

const (
	FeedbackNone FeedbackKind = iota
	FeedbackSuccess
	FeedbackError
)

// Feedback is the single status line of the page.
type Feedback struct {
	Kind    FeedbackKind
	Message string
}

// Page is the uploads page state machine:
// Idle -> Uploading(progress) -> Succeeded | Failed -> Idle.
// It is not safe for concurrent use; the TUI mutates it only from Update.
type Page struct {
	selected    string
	inFlight    bool
	progress    int
	hasProgress bool
	feedback    Feedback

	uploads []api.UploadRecord
	loading bool
}

// NewPage returns an idle page with an empty history.
func NewPage() *Page {
	return &Page{uploads: []api.UploadRecord{}}
}

// SelectFile sets the file to upload and clears feedback.
func (p *Page) SelectFile(path string) {
	p.selected = path
	p.feedback = Feedback{}
}

// BeginUpload moves to Uploading. It refuses when nothing is selected or an
// upload is already running.
func (p *Page) BeginUpload() error {
	if p.selected == "" {
		return ErrNoFileSelected
	}
	if p.inFlight {
		return ErrUploadInFlight
	}
	p.inFlight = true
	p.progress = 0
	p.hasProgress = true
	p.feedback = Feedback{}
	return nil
}

// Apply folds a stream event into the page. It reports whether the history
// should be refreshed, which happens after a success.
func (p *Page) Apply(ev Event) (refresh bool) {
	switch ev.Kind {
	case KindProgress:
		p.progress = ev.Progress
		p.hasProgress = true
		return false
	case KindSuccess:
		p.hasProgress = false
		p.progress = 0
		p.inFlight = false
		p.selected = ""
		var id int64
		if ev.Upload != nil {
			id = ev.Upload.ID
		}
		p.feedback = Feedback{Kind: FeedbackSuccess, Message: SuccessMessage(id)}
		return true
	}
	return false
}

// Fail ends a failed upload. The selection is kept so the user can retry.
// A file rejected locally reports why; anything else gets the generic message.
func (p *Page) Fail(err error) {
	p.hasProgress = false
	p.progress = 0
	p.inFlight = false

	p.feedback = Feedback{Kind: FeedbackError, Message: FailureMessage(err)}
}

// FailureMessage is the text shown for a failed upload: the rejection for a
// file refused locally, the generic message otherwise.
func FailureMessage(err error) string {
	for _, local := range []error{ErrEmptyFile, ErrNotCSV} {
		if errors.Is(err, local) {
			return local.Error()
		}
	}
	return MsgUploadFailed
}

// Cancel ends an upload the user abandoned without touching feedback.
func (p *Page) Cancel() {
	p.hasProgress = false
	p.progress = 0
	p.inFlight = false
}

// BeginHistoryLoad marks the history as loading.
func (p *Page) BeginHistoryLoad() {
	p.loading = true
}

// HistoryLoaded replaces the history.
func (p *Page) HistoryLoaded(records []api.UploadRecord) {
	p.loading = false
	if records == nil {
		records = []api.UploadRecord{}
	}
	p.uploads = records
}

// HistoryFailed keeps the previous history and reports the failure.
func (p *Page) HistoryFailed(error) {
	p.loading = false
	p.feedback = Feedback{Kind: FeedbackError, Message: MsgListFailed}
}

func (p *Page) Selected() string { return p.selected }
func (p *Page) InFlight() bool { return p.inFlight }
func (p *Page) Loading() bool { return p.loading }
func (p *Page) Feedback() Feedback { return p.feedback }

// Progress returns the upload percentage; ok is false when no upload is running.
func (p *Page) Progress() (percent int, ok bool) {
	return p.progress, p.hasProgress
}

// Uploads returns the loaded history, newest first as the server orders it.
func (p *Page) Uploads() []api.UploadRecord {
	return p.uploads
}
