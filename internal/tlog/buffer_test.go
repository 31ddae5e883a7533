package tlog

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	for _, l := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, b.Append(l))
	}
	lines, first := b.Lines()
	assert.Equal(t, []string{"3", "4", "5"}, lines)
	assert.Equal(t, 2, first)
}

func TestBookmarks(t *testing.T) {
	b := NewBuffer(0)
	b.AddBookmark(3, "hello")
	assert.Equal(t, "hello", b.Bookmarks()[3])
	assert.True(t, b.IsBookmarked(3))
	assert.False(t, b.IsBookmarked(4))
}

func TestBookmarkLastSurvivesEviction(t *testing.T) {
	b := NewBuffer(2)
	_, ok := b.BookmarkLast()
	assert.False(t, ok)

	b.Append("a")
	b.Append("b")
	n, ok := b.BookmarkLast()
	require.True(t, ok)
	assert.Equal(t, 1, n)

	b.Append("c")
	b.Append("d")
	assert.Equal(t, map[int]string{1: "b"}, b.Bookmarks())
}

func TestBufferClearKeepsNumbering(t *testing.T) {
	b := NewBuffer(0)
	b.Append("a")
	b.Append("b")
	b.Clear()
	b.Append("c")

	lines, first := b.Lines()
	assert.Equal(t, []string{"c"}, lines)
	assert.Equal(t, 2, first)
}

func TestExportFilters(t *testing.T) {
	b := NewBuffer(0)
	b.Append("2025-01-01 - app - INFO - started")
	b.Append("2025-01-01 - agent - ERROR - failed")
	b.Append("2025-01-01 - app - INFO - done")

	assert.Len(t, b.Export(nil), 3)
	assert.Equal(t,
		[]string{"2025-01-01 - agent - ERROR - failed"},
		b.Export(regexp.MustCompile(`ERROR`)))

	// export must not alias the buffer
	lines, _ := b.Lines()
	assert.Len(t, lines, 3)
}

func TestSaveBookmarks(t *testing.T) {
	b := NewBuffer(0)
	b.AddBookmark(9, "later")
	b.AddBookmark(0, "first")

	path := filepath.Join(t.TempDir(), "bookmarks.txt")
	require.NoError(t, b.SaveBookmarks(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\tfirst\n10\tlater\n", string(got))
}
