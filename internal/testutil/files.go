package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempFiles creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// CSVFile writes a small CSV file and returns its path.
func CSVFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := TempFiles(t, map[string]string{name: content})
	return filepath.Join(dir, name)
}

// SampleCSV is a valid CSV payload used across tests.
const SampleCSV = "id,name,amount\n1,alpha,10\n2,beta,20\n"
