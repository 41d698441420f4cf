package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/hackpath/internal/tracker"
)

var _ tracker.KV = (*Store)(nil)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_ReopenKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Set("k", []byte(`"v"`)); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	got, ok, err := s2.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	if string(got) != `"v"` {
		t.Errorf("Get() = %q, want %q", got, `"v"`)
	}
}

func TestOpen_SecondWriterIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	defer s1.Close()

	_, err = Open(path)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Open() error = %v, want ErrLocked", err)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"busy_timeout": "5000",
		"user_version": "1",
	} {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("Open() accepted a newer schema version")
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := openMemory(t)

	v, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok || v != nil {
		t.Errorf("Get() = %q, %v; want nil, false", v, ok)
	}
}

func TestStore_SetOverwritesAndRemove(t *testing.T) {
	s := openMemory(t)

	if err := s.Set("k", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", []byte("2")); err != nil {
		t.Fatal(err)
	}
	v, _, _ := s.Get("k")
	if string(v) != "2" {
		t.Errorf("Get() = %q, want 2", v)
	}

	if err := s.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("k"); err != nil {
		t.Errorf("removing a missing key: %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("key still present after Remove")
	}
}

func TestStore_BacksLocalTracker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	deviceKey, err := tracker.EnsureDeviceKey(s)
	if err != nil {
		t.Fatal(err)
	}
	lt, err := tracker.NewLocalTracker(s, deviceKey)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lt.RecordCompletion(t.Context(), "hackA"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	again, err := tracker.EnsureDeviceKey(s)
	if err != nil {
		t.Fatal(err)
	}
	if again != deviceKey {
		t.Errorf("device key changed: %s -> %s", deviceKey, again)
	}
	lt, err = tracker.NewLocalTracker(s, deviceKey)
	if err != nil {
		t.Fatal(err)
	}
	done, _ := lt.Completions(t.Context())
	if !done.Has("hackA") {
		t.Errorf("completions = %v, want hackA", done.Sorted())
	}
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
