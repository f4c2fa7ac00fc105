// Package upload turns a multipart upload into a stream of progress and
// success events, and tracks the upload page's state.
package upload

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/csvstats/csvstats/internal/api"
	"github.com/csvstats/csvstats/internal/log"
)

// EventKind distinguishes the two stream events.
type EventKind string

const (
	KindProgress EventKind = "progress"
	KindSuccess  EventKind = "success"
)

// Event is one item of an upload stream. Progress is set for KindProgress,
// Upload for KindSuccess.
type Event struct {
	Kind     EventKind
	Progress int
	Upload   *api.UploadRecord
}

// eventBuffer is the stream channel's capacity. One slot is always left free
// for the success event.
const eventBuffer = 16

// Client is the subset of *api.Client the pipeline uses.
type Client interface {
	CreateUpload(ctx context.Context, name, contentType string, content io.Reader, size int64, onProgress api.ProgressFunc) (*api.UploadRecord, error)
	ListUploads(ctx context.Context) ([]api.UploadRecord, error)
	GetUpload(ctx context.Context, id int64) (*api.UploadRecord, error)
}

// Pipeline runs uploads and history reads against the API.
type Pipeline struct {
	client Client
	logger *log.Logger
}

// NewPipeline creates a Pipeline. logger may be nil.
func NewPipeline(client Client, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{client: client, logger: logger}
}

// Percent maps bytes loaded out of total to a whole percentage in [0,100].
// A zero total yields 0.
func Percent(loaded, total int64) int {
	if total <= 0 || loaded <= 0 {
		return 0
	}
	if loaded >= total {
		return 100
	}
	return int(math.Floor(float64(loaded)*100/float64(total) + 0.5))
}

// Stream is one upload in progress.
type Stream struct {
	events chan Event
	done   chan struct{}

	// Written once before events is closed.
	record *api.UploadRecord
	err    error

	last int
}

// Events yields progress events followed by exactly one success event, then
// closes. On failure it closes without a success event.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err returns the upload error. Only valid once Events is closed.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the upload finishes. Events need not be drained.
func (s *Stream) Wait() (*api.UploadRecord, error) {
	<-s.done
	return s.record, s.err
}

// progress is called from the transport goroutine. Sends never block: when
// the buffer is nearly full the update is dropped, and a later one supersedes it.
func (s *Stream) progress(sent, total int64) {
	p := Percent(sent, total)
	if p <= s.last {
		return
	}
	s.last = p
	if len(s.events) >= cap(s.events)-1 {
		return
	}
	s.events <- Event{Kind: KindProgress, Progress: p}
}

// UploadFile starts uploading f and returns its event stream. Cancelling ctx
// aborts the request; the server may still have accepted the file.
func (p *Pipeline) UploadFile(ctx context.Context, f File) *Stream {
	s := &Stream{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}

	go p.run(ctx, f, s)
	return s
}

func (p *Pipeline) run(ctx context.Context, f File, s *Stream) {
	// done closes first so Err is settled by the time Events closes.
	defer close(s.events)
	defer close(s.done)

	start := time.Now()
	_ = p.logger.Append(log.LogEvent{
		Event:    log.EventUploadStarted,
		Filename: f.Name(),
		Bytes:    f.Size(),
	})

	record, err := p.send(ctx, f, s)
	if err != nil {
		s.err = err
		_ = p.logger.Append(log.LogEvent{
			Event:      log.EventUploadFailed,
			Filename:   f.Name(),
			Error:      err.Error(),
			DurationMs: time.Since(start).Milliseconds(),
		})
		return
	}

	s.record = record
	_ = p.logger.Append(log.LogEvent{
		Event:      log.EventUploadSucceeded,
		Filename:   record.Filename,
		UploadID:   record.ID,
		Status:     string(record.Status),
		Bytes:      f.Size(),
		DurationMs: time.Since(start).Milliseconds(),
	})
	s.events <- Event{Kind: KindSuccess, Upload: record}
}

func (p *Pipeline) send(ctx context.Context, f File, s *Stream) (*api.UploadRecord, error) {
	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name(), err)
	}
	defer body.Close()

	record, err := p.client.CreateUpload(ctx, f.Name(), f.ContentType(), body, f.Size(), s.progress)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", f.Name(), err)
	}
	return record, nil
}

// ListUploads fetches the upload history in server order. It is a single
// request with no retries.
func (p *Pipeline) ListUploads(ctx context.Context) ([]api.UploadRecord, error) {
	records, err := p.client.ListUploads(ctx)
	if err != nil {
		_ = p.logger.Append(log.LogEvent{Event: log.EventUploadsListFailed, Error: err.Error()})
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	_ = p.logger.Append(log.LogEvent{Event: log.EventUploadsListed, Count: len(records)})
	return records, nil
}

// GetUpload fetches one upload record.
func (p *Pipeline) GetUpload(ctx context.Context, id int64) (*api.UploadRecord, error) {
	record, err := p.client.GetUpload(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching upload %d: %w", id, err)
	}
	return record, nil
}
