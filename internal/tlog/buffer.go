package tlog

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"sync"
)

const defaultMaxLines = 2000

// Buffer keeps the most recent lines of a followed file and bookmarks on
// them. Line numbers are absolute: they count every line appended since the
// buffer was created, including those already evicted.
type Buffer struct {
	mu        sync.Mutex
	lines     []string
	first     int // absolute number of lines[0]
	bookmarks map[int]string
	maxLines  int
}

// NewBuffer returns a buffer holding up to maxLines lines; zero or less
// selects the default of 2000.
func NewBuffer(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	return &Buffer{
		bookmarks: make(map[int]string),
		maxLines:  maxLines,
	}
}

// Append adds a line, evicting the oldest when full. It never fails and
// fits the emit signature of Tailer.Follow.
func (b *Buffer) Append(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if over := len(b.lines) - b.maxLines; over > 0 {
		b.lines = slices.Clone(b.lines[over:])
		b.first += over
	}
	return nil
}

// Lines returns a copy of the buffered lines and the absolute number of
// the first one.
func (b *Buffer) Lines() ([]string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.lines), b.first
}

// Clear drops buffered lines. Bookmarks and numbering are kept.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.first += len(b.lines)
	b.lines = nil
}

// BookmarkLast bookmarks the newest line. It reports false when the buffer
// is empty.
func (b *Buffer) BookmarkLast() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		return 0, false
	}
	n := b.first + len(b.lines) - 1
	b.bookmarks[n] = b.lines[len(b.lines)-1]
	return n, true
}

// AddBookmark records content for an absolute line number.
func (b *Buffer) AddBookmark(lineNo int, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bookmarks[lineNo] = content
}

// Bookmarks returns a copy of the bookmarks.
func (b *Buffer) Bookmarks() map[int]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.bookmarks)
}

// IsBookmarked reports whether lineNo carries a bookmark.
func (b *Buffer) IsBookmarked(lineNo int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bookmarks[lineNo]
	return ok
}

// Export returns the buffered lines matching filter, or all of them when
// filter is nil.
func (b *Buffer) Export(filter *regexp.Regexp) []string {
	lines, _ := b.Lines()
	if filter == nil {
		return lines
	}
	return slices.DeleteFunc(lines, func(l string) bool {
		return !filter.MatchString(l)
	})
}

// SaveBookmarks writes "lineNo<TAB>content" lines to path, ordered by line
// number. Line numbers are 1-based.
func (b *Buffer) SaveBookmarks(path string) error {
	bookmarks := b.Bookmarks()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, n := range slices.Sorted(maps.Keys(bookmarks)) {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", n+1, bookmarks[n]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
