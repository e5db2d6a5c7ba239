package schedule

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[spike]]\nname = \"a\"\ncron = \"0 * * * *\"\n"), 0644))

	var mu sync.Mutex
	var got []*Config
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = append(got, cfg)
		mu.Unlock()
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	w.Start(t.Context())
	defer w.Stop()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0644))

	require.NoError(t, os.WriteFile(path, []byte("[[spike]]\nname = \"a\"\ncron = \"0 * * * *\"\n\n[[spike]]\nname = \"b\"\ncron = \"0 3 * * *\"\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got[len(got)-1].Spikes, 2)
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(cfg *Config) { called <- struct{}{} })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	w.Start(t.Context())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[[spike]]\nname = \"\"\n"), 0644))

	select {
	case <-called:
		t.Fatal("callback should not run for an invalid schedule")
	case <-time.After(200 * time.Millisecond):
	}
}
