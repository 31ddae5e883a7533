package tlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/hpcloud/tail"
)

// ErrFileGone is returned by Follow when the followed file was removed.
var ErrFileGone = errors.New("log file no longer exists")

// Options controls how a file is followed.
type Options struct {
	// Replay is the number of existing trailing lines emitted before new
	// data. Zero starts at the end of the file as it is when NewTailer runs.
	Replay int
	// Poll uses stat polling instead of inotify.
	Poll bool
	// Logger receives the tail library's internal messages.
	Logger *log.Logger
}

// Tailer follows a single log file.
type Tailer struct {
	Filename string
	tail     *tail.Tail

	stopOnce sync.Once
	stopErr  error
}

// NewTailer opens file and positions it according to opts. The file must
// already exist. The start offset is resolved before returning, so anything
// appended after NewTailer returns is delivered.
func NewTailer(file string, opts Options) (*Tailer, error) {
	off, err := OffsetForLastLines(file, opts.Replay)
	if err != nil {
		return nil, err
	}

	cfg := tail.Config{
		Location:  &tail.SeekInfo{Offset: off, Whence: io.SeekStart},
		Follow:    true,
		ReOpen:    false,
		MustExist: true,
		Poll:      opts.Poll,
	}
	if opts.Logger != nil {
		cfg.Logger = opts.Logger
	}

	t, err := tail.TailFile(file, cfg)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", file, err)
	}
	return &Tailer{Filename: file, tail: t}, nil
}

// Follow delivers each new line, without its newline, to emit until ctx is
// done, emit fails, or the tail stops. Cancellation is not an error.
func (t *Tailer) Follow(ctx context.Context, emit func(string) error) error {
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.tail.Lines:
			if !ok {
				// Wait returns the reason the tail died; nil means it
				// stopped on its own, which only happens on deletion.
				if err := t.tail.Wait(); err != nil {
					return fmt.Errorf("read %s: %w", t.Filename, err)
				}
				return ErrFileGone
			}
			if line.Err != nil {
				t.Stop()
				return fmt.Errorf("read %s: %w", t.Filename, line.Err)
			}
			if err := emit(line.Text); err != nil {
				t.Stop()
				return err
			}
		}
	}
}

// Stop releases the file handle and its watcher. Later calls return the
// first result.
func (t *Tailer) Stop() error {
	t.stopOnce.Do(func() {
		t.stopErr = t.tail.Stop()
		t.tail.Cleanup()
	})
	return t.stopErr
}
