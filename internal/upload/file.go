package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Errors mirror the API's own validation so bad files fail before any bytes are sent.
var (
	ErrEmptyFile = errors.New("File is required")
	ErrNotCSV    = errors.New("Only CSV uploads are supported")
)

const csvContentType = "text/csv"

// File is the content handed to UploadFile.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// LocalFile is a file on disk, checked by OpenFile.
type LocalFile struct {
	path        string
	name        string
	size        int64
	contentType string
}

// OpenFile stats path and applies the client-visible checks: the file must be
// non-empty and either carry a .csv extension or resolve to text/csv.
func OpenFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("opening %s: is a directory", path)
	}
	if info.Size() == 0 {
		return nil, ErrEmptyFile
	}

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if !isCSV(name, contentType) {
		return nil, ErrNotCSV
	}

	return &LocalFile{
		path:        path,
		name:        name,
		size:        info.Size(),
		contentType: csvContentType,
	}, nil
}

func isCSV(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == csvContentType
}

func (f *LocalFile) Name() string { return f.name }
func (f *LocalFile) Size() int64 { return f.size }
func (f *LocalFile) ContentType() string { return f.contentType }
func (f *LocalFile) Path() string { return f.path }

// Open opens the file for reading.
func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// MemFile is an in-memory File.
type MemFile struct {
	name string
	data []byte
}

// NewMemFile wraps data as a CSV file called name.
func NewMemFile(name string, data []byte) *MemFile {
	return &MemFile{name: name, data: data}
}

func (f *MemFile) Name() string { return f.name }
func (f *MemFile) Size() int64 { return int64(len(f.data)) }
func (f *MemFile) ContentType() string { return csvContentType }

// Open returns a reader over the data.
func (f *MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
