package upload

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/csvstats/csvstats/internal/testutil"
)

func TestOpenFile(t *testing.T) {
	dir := testutil.TempFiles(t, map[string]string{
		"data.csv":  testutil.SampleCSV,
		"UPPER.CSV": testutil.SampleCSV,
		"empty.csv": "",
		"notes.txt": "hello",
		"sub/x.csv": "a\n",
	})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"csv file", "data.csv", nil},
		{"uppercase extension", "UPPER.CSV", nil},
		{"empty file", "empty.csv", ErrEmptyFile},
		{"not csv", "notes.txt", ErrNotCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := OpenFile(filepath.Join(dir, tt.path))
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("OpenFile error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenFile: %v", err)
			}
			if f.Name() != filepath.Base(tt.path) {
				t.Errorf("Name() = %q, want %q", f.Name(), filepath.Base(tt.path))
			}
			if f.ContentType() != "text/csv" {
				t.Errorf("ContentType() = %q, want %q", f.ContentType(), "text/csv")
			}
			if f.Size() != int64(len(testutil.SampleCSV)) {
				t.Errorf("Size() = %d, want %d", f.Size(), len(testutil.SampleCSV))
			}

			rc, err := f.Open()
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(data) != testutil.SampleCSV {
				t.Errorf("content = %q, want %q", data, testutil.SampleCSV)
			}
		})
	}
}

func TestOpenFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := OpenFile(dir); err == nil {
		t.Error("expected error for directory")
	}
}

func TestErrorMessagesMatchServer(t *testing.T) {
	if got := ErrEmptyFile.Error(); got != "File is required" {
		t.Errorf("ErrEmptyFile = %q", got)
	}
	if got := ErrNotCSV.Error(); got != "Only CSV uploads are supported" {
		t.Errorf("ErrNotCSV = %q", got)
	}
}
