package service

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumechat/types"
)

type countingReloader struct {
	calls atomic.Int32
}

func (r *countingReloader) Reload(context.Context) *types.DocumentCache {
	r.calls.Add(1)
	return &types.DocumentCache{Content: "reloaded"}
}

func startService(t *testing.T, r Reloader, path string) *Service {
	t.Helper()
	s := New(r, path, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return s
}

func TestReloadOnArtifactWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	r := &countingReloader{}
	s := startService(t, r, path)

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	select {
	case <-s.Reloaded():
	case <-time.After(2 * time.Second):
		t.Fatal("artifact write did not trigger a reload")
	}
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestBurstCoalescesIntoOneReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	r := &countingReloader{}
	s := startService(t, r, path)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0644))
	}

	select {
	case <-s.Reloaded():
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after burst")
	}
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startService(t, r, filepath.Join(dir, "resume.pdf"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, r.calls.Load())
}

func TestRunFailsForMissingDirectory(t *testing.T) {
	s := New(&countingReloader{}, filepath.Join(t.TempDir(), "nope", "resume.pdf"), 0)
	err := s.Run(context.Background())
	assert.Error(t, err)
}
