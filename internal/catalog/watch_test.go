package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loads := make(chan int, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 50*time.Millisecond, quietLogger(), func(res *Result, errs []error) {
			if len(errs) > 0 {
				loads <- -1
				return
			}
			loads <- len(res.Catalog.Nodes())
		})
	}()

	select {
	case n := <-loads:
		assert.Equal(t, 7, n)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial load")
	}

	// an unrelated file is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	extra := strings.Replace(string(data), "routines:", "  - id: h6\n    level: advanced\nroutines:", 1)
	require.NoError(t, os.WriteFile(path, []byte(extra), 0o644))

	select {
	case n := <-loads:
		assert.Equal(t, 8, n)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after change")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingPath(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), 0, quietLogger(), func(*Result, []error) {})
	require.Error(t, err)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
