package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHolder_GetReturnsInitialSnapshot(t *testing.T) {
	h, err := NewHolder(&FileConfig{DataDir: "/tmp/a"}, "")
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, "/tmp/a", h.Get().DataDir)
}

func TestHolder_ReloadsOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataDir: /tmp/a\n"), 0o644))

	initial, err := Load(path)
	require.NoError(t, err)

	h, err := NewHolder(initial, path)
	require.NoError(t, err)
	defer h.Close()

	ch := make(chan *FileConfig, 1)
	h.Subscribe(ch)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: /tmp/b\n"), 0o644))

	require.Eventually(t, func() bool {
		return h.Get().DataDir == "/tmp/b"
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case fc := <-ch:
		require.Equal(t, "/tmp/b", fc.DataDir)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload notification")
	}
}
