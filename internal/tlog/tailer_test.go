package tlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var followModes = []struct {
	name string
	poll bool
}{
	{"poll", true},
	{"inotify", false},
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) emit(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func (c *collector) has(line string) bool {
	return slices.Contains(c.snapshot(), line)
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func startFollow(t *testing.T, path string, opts Options) (*collector, context.CancelFunc, <-chan error) {
	t.Helper()
	tailer, err := NewTailer(path, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	done := make(chan error, 1)
	go func() { done <- tailer.Follow(ctx, c.emit) }()
	t.Cleanup(cancel)
	return c, cancel, done
}

// waitWatching appends marker lines until one is delivered, which proves
// the change watcher is installed. hpcloud/tail sets up inotify watches
// lazily after the first read reaches EOF.
func waitWatching(t *testing.T, path string, c *collector) {
	t.Helper()
	for i := 0; ; i++ {
		marker := "ready-" + strconv.Itoa(i)
		appendLine(t, path, marker)
		deadline := time.Now().Add(300 * time.Millisecond)
		for time.Now().Before(deadline) {
			if c.has(marker) {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		if i == 20 {
			t.Fatal("tail never delivered a marker line")
		}
	}
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return")
		return nil
	}
}

func TestTailerDeliversLineAppendedRightAfterAttach(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(file, []byte("line1\n"), 0o644))

	c, cancel, done := startFollow(t, file, Options{Poll: true})
	appendLine(t, file, "line2")

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"line2"}, c.snapshot())
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, waitErr(t, done))
}

func TestTailerReadsNewLines(t *testing.T) {
	for _, mode := range followModes {
		t.Run(mode.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "app.log")
			require.NoError(t, os.WriteFile(file, []byte("line1\n"), 0o644))

			c, cancel, done := startFollow(t, file, Options{Poll: mode.poll})
			waitWatching(t, file, c)
			appendLine(t, file, "line2")

			require.Eventually(t, func() bool { return c.has("line2") },
				5*time.Second, 20*time.Millisecond)
			assert.NotContains(t, c.snapshot(), "line1")

			cancel()
			require.NoError(t, waitErr(t, done))
		})
	}
}

func TestTailerReportsDeletedFile(t *testing.T) {
	for _, mode := range followModes {
		t.Run(mode.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "app.log")
			require.NoError(t, os.WriteFile(file, []byte("x\n"), 0o644))

			c, _, done := startFollow(t, file, Options{Poll: mode.poll})
			waitWatching(t, file, c)
			require.NoError(t, os.Remove(file))

			require.ErrorIs(t, waitErr(t, done), ErrFileGone)
		})
	}
}

func TestTailerFollowsTruncatedFile(t *testing.T) {
	for _, mode := range followModes {
		t.Run(mode.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "app.log")
			require.NoError(t, os.WriteFile(file, []byte("a fairly long first line\n"), 0o644))

			c, _, _ := startFollow(t, file, Options{Poll: mode.poll})
			waitWatching(t, file, c)

			require.NoError(t, os.Truncate(file, 0))
			appendLine(t, file, "Y")

			require.Eventually(t, func() bool { return c.has("Y") },
				5*time.Second, 20*time.Millisecond)
		})
	}
}

func TestTailerReplaysTrailingLines(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(file, []byte("a\nb\nc\n"), 0o644))

	c, _, _ := startFollow(t, file, Options{Poll: true, Replay: 2})

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"b", "c"}, c.snapshot())
	}, 5*time.Second, 50*time.Millisecond)
}

func TestTailerEmptyFileEmitsNothing(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	c, cancel, done := startFollow(t, file, Options{Poll: true})
	// long enough for two poll cycles
	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, c.snapshot())

	cancel()
	require.NoError(t, waitErr(t, done))
}

func TestTailerStopsOnEmitError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tailer, err := NewTailer(file, Options{Poll: true})
	require.NoError(t, err)

	boom := errors.New("sink closed")
	done := make(chan error, 1)
	go func() {
		done <- tailer.Follow(context.Background(), func(string) error { return boom })
	}()
	appendLine(t, file, "anything")

	require.ErrorIs(t, waitErr(t, done), boom)
}

func TestNewTailerMissingFile(t *testing.T) {
	_, err := NewTailer(filepath.Join(t.TempDir(), "nope.log"), Options{Poll: true})
	require.Error(t, err)
}
