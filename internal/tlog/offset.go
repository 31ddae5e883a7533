package tlog

import (
	"fmt"
	"os"
)

const scanChunk = 4096

// OffsetForLastLines returns the byte offset where the last n lines of path
// begin. A final newline terminates the last line rather than starting an
// empty one. Files with fewer than n lines yield offset 0.
func OffsetForLastLines(path string, n int) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if n <= 0 {
		return size, nil
	}

	buf := make([]byte, scanChunk)
	end := size
	seen := 0
	skipFinal := true
	for end > 0 {
		start := max(end-scanChunk, 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' {
				skipFinal = false
				continue
			}
			if skipFinal {
				skipFinal = false
				continue
			}
			seen++
			if seen == n {
				return start + int64(i) + 1, nil
			}
		}
		end = start
	}
	return 0, nil
}
