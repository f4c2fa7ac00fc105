// Package log provides structured event logging.
// Events are written as JSON lines to .csvstats/log.jsonl through a zap core.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event type constants.
const (
	EventLoginSucceeded    = "login_succeeded"
	EventLoginFailed       = "login_failed"
	EventLogout            = "logout"
	EventSessionReloaded   = "session_reloaded"
	EventUploadStarted     = "upload_started"
	EventUploadSucceeded   = "upload_succeeded"
	EventUploadFailed      = "upload_failed"
	EventUploadsListed     = "uploads_listed"
	EventUploadsListFailed = "uploads_list_failed"
)

const logFile = "log.jsonl"

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time `json:"time"`
	Level      string    `json:"level,omitempty"`
	Event      string    `json:"event"`
	Email      string    `json:"email,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	UploadID   int64     `json:"upload_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Count      int       `json:"count,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Logger writes append-only JSONL events and exposes the underlying zap
// logger for diagnostics.
type Logger struct {
	path string
	file *os.File
	z    *zap.Logger
}

// NewLogger creates a Logger that appends to log.jsonl inside dir.
// Creates dir if it does not already exist. Does not truncate an existing log.
// When verbose is set, events are also written to stderr in console format.
func NewLogger(dir, level string, verbose bool) (*Logger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}

	path := filepath.Join(dir, logFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(f), lvl),
	}
	if verbose {
		console := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(console),
			zapcore.Lock(os.Stderr),
			zapcore.DebugLevel,
		))
	}

	return &Logger{
		path: path,
		file: f,
		z:    zap.New(zapcore.NewTee(cores...)),
	}, nil
}

// Nop returns a Logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Path returns the log file path, empty for a Nop logger.
func (l *Logger) Path() string {
	return l.path
}

// Append writes a single LogEvent as one JSON line.
// The time is stamped by the logger; event.Time is ignored.
// Events carrying an Error are written at warn level.
func (l *Logger) Append(event LogEvent) error {
	if event.Event == "" {
		return errors.New("log event has no name")
	}

	fields := make([]zap.Field, 0, 8)
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.Filename != "" {
		fields = append(fields, zap.String("filename", event.Filename))
	}
	if event.UploadID != 0 {
		fields = append(fields, zap.Int64("upload_id", event.UploadID))
	}
	if event.Status != "" {
		fields = append(fields, zap.String("status", event.Status))
	}
	if event.Bytes != 0 {
		fields = append(fields, zap.Int64("bytes", event.Bytes))
	}
	if event.Count != 0 {
		fields = append(fields, zap.Int("count", event.Count))
	}
	if event.DurationMs != 0 {
		fields = append(fields, zap.Int64("duration_ms", event.DurationMs))
	}

	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
		l.z.Warn(event.Event, fields...)
		return nil
	}
	l.z.Info(event.Event, fields...)
	return nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	_ = l.z.Sync()
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	l.file = nil
	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	if l.path == "" {
		return []LogEvent{}, nil
	}
	return ReadFile(l.path)
}

// ReadFile parses the events in a log.jsonl file.
func ReadFile(path string) ([]LogEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

// LogPath returns the log file path inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, logFile)
}
