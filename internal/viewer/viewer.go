// Package viewer prints the banner for the application log and follows it
// when it exists.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"applog/internal/config"
	"applog/internal/highlight"
	"applog/internal/tlog"
)

// State is where a Viewer is in its run.
type State int32

const (
	Checking State = iota
	NotFound
	Following
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case NotFound:
		return "not-found"
	case Following:
		return "following"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ErrInterrupted is returned by Run when following ended because of an
// interrupt rather than a normal quit. Followers return it for interrupts
// they intercept themselves, such as Ctrl+C inside a terminal UI.
var ErrInterrupted = errors.New("interrupted")

// StreamError reports that following the log failed after it started.
type StreamError struct {
	Path string
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("following %s: %v", e.Path, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Follower consumes an attached tailer until ctx is done or the tail fails.
type Follower interface {
	Follow(ctx context.Context, t *tlog.Tailer) error
}

// Viewer shows one log file.
type Viewer struct {
	cfg      config.Config
	out      io.Writer
	logger   *zap.Logger
	tailLog  *log.Logger
	follower Follower
	state    atomic.Int32
}

// Option customises a Viewer.
type Option func(*Viewer)

// WithFollower replaces the default stdout streaming.
func WithFollower(f Follower) Option {
	return func(v *Viewer) { v.follower = f }
}

// WithTailLogger routes the tail library's messages.
func WithTailLogger(l *log.Logger) Option {
	return func(v *Viewer) { v.tailLog = l }
}

// New returns a viewer writing to out. A nil logger disables diagnostics.
func New(cfg config.Config, out io.Writer, logger *zap.Logger, opts ...Option) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Viewer{cfg: cfg, out: out, logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	if v.follower == nil {
		v.follower = &StreamFollower{
			Out:     out,
			Painter: highlight.NewPainter(highlight.ShouldColorize(cfg.Color, out)),
		}
	}
	return v
}

// State returns the current state.
func (v *Viewer) State() State {
	return State(v.state.Load())
}

// Run prints the banner and then either reports the missing file or follows
// it until ctx is done. A missing file is not an error; following that ends
// with ctx done returns ErrInterrupted.
func (v *Viewer) Run(ctx context.Context) error {
	v.state.Store(int32(Checking))
	if err := v.printBanner(); err != nil {
		return err
	}

	if !v.exists() {
		v.state.Store(int32(NotFound))
		_, err := fmt.Fprintf(v.out, "Log file %s not found. Run the application first to generate it.\n", v.cfg.File)
		return err
	}

	t, err := tlog.NewTailer(v.cfg.File, tlog.Options{
		Replay: v.cfg.Lines,
		Poll:   v.cfg.Poll,
		Logger: v.tailLog,
	})
	if err != nil {
		return &StreamError{Path: v.cfg.File, Err: err}
	}
	defer t.Stop()

	v.state.Store(int32(Following))
	v.logger.Info("following log file",
		zap.String("path", v.cfg.File),
		zap.Int("replay", v.cfg.Lines),
		zap.Bool("poll", v.cfg.Poll))

	err = v.follower.Follow(ctx, t)
	switch {
	case errors.Is(err, ErrInterrupted):
		return ErrInterrupted
	case err != nil:
		v.logger.Debug("follow ended", zap.Error(err))
		return &StreamError{Path: v.cfg.File, Err: err}
	case ctx.Err() != nil:
		return ErrInterrupted
	}
	return nil
}

func (v *Viewer) printBanner() error {
	_, err := fmt.Fprintf(v.out, "Viewing application log %s\nPress Ctrl+C to stop\n%s\n",
		v.cfg.File, strings.Repeat("=", 50))
	return err
}

// exists reports whether the path is a regular file. Stat failures other
// than absence count as missing too.
func (v *Viewer) exists() bool {
	info, err := os.Stat(v.cfg.File)
	if err != nil {
		if !os.IsNotExist(err) {
			v.logger.Warn("cannot stat log file", zap.String("path", v.cfg.File), zap.Error(err))
		}
		return false
	}
	if !info.Mode().IsRegular() {
		v.logger.Debug("log path is not a regular file",
			zap.String("path", v.cfg.File), zap.Stringer("mode", info.Mode()))
		return false
	}
	return true
}

// StreamFollower writes each line to Out.
type StreamFollower struct {
	Out     io.Writer
	Painter *highlight.Painter
}

// Follow implements Follower.
func (s *StreamFollower) Follow(ctx context.Context, t *tlog.Tailer) error {
	return t.Follow(ctx, func(line string) error {
		if s.Painter != nil {
			line = s.Painter.Paint(line)
		}
		_, err := fmt.Fprintln(s.Out, line)
		return err
	})
}
