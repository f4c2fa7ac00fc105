package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// backends returns one instance of every KV implementation rooted in a temp dir.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]KV{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(dir, "credentials.yaml")),
		"sqlite": sqliteStore,
	}
}

func TestKVContract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := kv.Get("missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
			}

			if err := kv.Set("csvStats.jwt", "jwt-token"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := kv.Set("csvStats.jwt", "jwt-token-2"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			got, ok, err := kv.Get("csvStats.jwt")
			if err != nil || !ok || got != "jwt-token-2" {
				t.Fatalf("Get = %q, %v, %v; want jwt-token-2, true, nil", got, ok, err)
			}

			if err := kv.Remove("csvStats.jwt"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if _, ok, _ := kv.Get("csvStats.jwt"); ok {
				t.Error("key still present after Remove")
			}
			if err := kv.Remove("csvStats.jwt"); err != nil {
				t.Errorf("Remove of missing key should not error: %v", err)
			}
		})
	}
}

func TestKVManyContract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := kv.SetMany(map[string]string{
				"csvStats.jwt":   "jwt-token",
				"csvStats.email": "demo@example.com",
			})
			if err != nil {
				t.Fatalf("SetMany failed: %v", err)
			}

			got, err := kv.GetMany("csvStats.jwt", "csvStats.email", "missing")
			if err != nil {
				t.Fatalf("GetMany failed: %v", err)
			}
			want := map[string]string{"csvStats.jwt": "jwt-token", "csvStats.email": "demo@example.com"}
			if len(got) != len(want) || got["csvStats.jwt"] != want["csvStats.jwt"] ||
				got["csvStats.email"] != want["csvStats.email"] {
				t.Fatalf("GetMany = %v, want %v", got, want)
			}

			if err := kv.Remove("csvStats.jwt", "csvStats.email", "missing"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			got, err = kv.GetMany("csvStats.jwt", "csvStats.email")
			if err != nil || len(got) != 0 {
				t.Errorf("GetMany after Remove = %v, %v; want empty", got, err)
			}
		})
	}
}

func TestFileStoreSetManyIsOneWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	writer := NewFileStore(path)
	reader := NewFileStore(path)

	if err := writer.SetMany(map[string]string{"token": "t0", "email": "e0"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 200; i++ {
			n := strconv.Itoa(i)
			if err := writer.SetMany(map[string]string{"token": "t" + n, "email": "e" + n}); err != nil {
				t.Errorf("SetMany failed: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		got, err := reader.GetMany("token", "email")
		if err != nil {
			t.Fatalf("GetMany failed: %v", err)
		}
		if got["token"][1:] != got["email"][1:] {
			t.Fatalf("reader saw a mixed pair: %v", got)
		}
	}
}

func TestFileStorePermissionsAndCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	fs := NewFileStore(path)

	if err := fs.Set("csvStats.jwt", "abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	if err := fs.Remove("csvStats.jwt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("empty credentials file should be removed, stat err = %v", err)
	}
}

func TestFileStoreCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileStore(path).Get("csvStats.jwt"); err == nil {
		t.Error("Get should fail on a corrupted file")
	}
}

func TestFileStoreSharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	a := NewFileStore(path)
	b := NewFileStore(path)

	if err := a.Set("csvStats.email", "demo@example.com"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := b.Get("csvStats.email")
	if err != nil || !ok || got != "demo@example.com" {
		t.Errorf("second instance Get = %q, %v, %v", got, ok, err)
	}
}

func TestFileStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	fs := NewFileStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	if err := fs.Watch(ctx, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	other := NewFileStore(path)
	if err := other.Set("csvStats.jwt", "from-another-process"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification after external write")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"", BackendFile, BackendSQLite, BackendMemory} {
		kv, closeFn, err := Open(backend, dir)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", backend, err)
		}
		if kv == nil {
			t.Fatalf("Open(%q) returned nil store", backend)
		}
		if err := closeFn(); err != nil {
			t.Errorf("close(%q) failed: %v", backend, err)
		}
	}

	if _, _, err := Open("keychain", dir); err == nil {
		t.Error("Open should reject an unknown backend")
	}
}
