package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReportsBurstOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.ctd")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- File(ctx, path, 50*time.Millisecond, nil, func() { calls <- struct{}{} })
	}()
	// let the watcher register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('b' + i)}, 0o644))
	}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case <-calls:
		t.Fatal("burst reported twice")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestFileMissingDirectory(t *testing.T) {
	err := File(context.Background(), filepath.Join(t.TempDir(), "nope", "doc.ctd"), time.Millisecond, nil, func() {})
	assert.Error(t, err)
}
