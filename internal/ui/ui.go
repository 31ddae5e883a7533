package ui

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"applog/internal/highlight"
	"applog/internal/tlog"
	"applog/internal/viewer"
)

const refreshInterval = 500 * time.Millisecond

// App is a single-panel terminal view of a followed log. It satisfies
// viewer.Follower.
type App struct {
	App       *tview.Application
	Buffer    *tlog.Buffer
	TextView  *tview.TextView
	StatusBar *tview.TextView
	Root      *tview.Flex
	Bookmarks *tview.List

	BookmarksFile string
	logger        *zap.Logger

	mu            sync.Mutex
	view          viewState
	overlayActive bool
	interrupted   bool
}

// viewState is what the status bar and the refresh loop read.
type viewState struct {
	AutoScroll bool
	Paused     bool
	Filter     *regexp.Regexp
	Notice     string
}

// New builds the UI. Lines are kept in buffer; bookmarks are saved to
// bookmarksFile.
func New(buffer *tlog.Buffer, bookmarksFile string, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := tview.NewApplication()

	tv := tview.NewTextView()
	tv.SetDynamicColors(true)
	tv.SetScrollable(true)
	tv.SetWrap(false)
	tv.SetBorder(true)

	status := tview.NewTextView()
	status.SetDynamicColors(true)

	root := tview.NewFlex().SetDirection(tview.FlexRow)
	root.AddItem(tv, 0, 1, true)
	root.AddItem(status, 1, 0, false)

	u := &App{
		App:           app,
		Buffer:        buffer,
		TextView:      tv,
		StatusBar:     status,
		Root:          root,
		Bookmarks:     tview.NewList(),
		BookmarksFile: bookmarksFile,
		logger:        logger,
		view:          viewState{AutoScroll: true},
	}
	u.Bookmarks.SetBorder(true)
	u.Bookmarks.SetTitle("Bookmarks")
	u.Bookmarks.SetDoneFunc(u.closeOverlay)

	app.SetRoot(root, true).SetFocus(tv)
	u.bindKeys()
	return u
}

// Follow runs the UI while t feeds the buffer. Quitting with q returns nil,
// Ctrl+C returns viewer.ErrInterrupted, and a tail failure returns its
// error. When ctx is done it returns nil and leaves the verdict to the caller.
func (u *App) Follow(ctx context.Context, t *tlog.Tailer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u.TextView.SetTitle(" " + t.Filename + " ")
	u.renderStatus()

	followErr := make(chan error, 1)
	go func() {
		err := t.Follow(ctx, u.Buffer.Append)
		followErr <- err
		cancel()
	}()
	go u.loop(ctx)

	if err := u.App.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	cancel()
	if err := <-followErr; err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.interrupted {
		return viewer.ErrInterrupted
	}
	return nil
}

// loop redraws the panel until ctx is done, then stops the application.
func (u *App) loop(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// queued so a stop requested before Run starts is not lost
			u.App.QueueUpdate(u.App.Stop)
			return
		case <-ticker.C:
			s := u.state()
			if s.Paused {
				continue
			}
			content := Render(u.Buffer, s.Filter)
			u.App.QueueUpdateDraw(func() {
				u.TextView.SetText(content)
				if s.AutoScroll {
					u.TextView.ScrollToEnd()
				}
				u.renderStatus()
			})
		}
	}
}

// Render returns the buffered lines matching filter, colorized, with
// bookmark markers.
func Render(buf *tlog.Buffer, filter *regexp.Regexp) string {
	lines, first := buf.Lines()
	var sb strings.Builder
	for i, line := range lines {
		if filter != nil && !filter.MatchString(line) {
			continue
		}
		sb.WriteString(highlight.ColorizeLine(tview.Escape(line)))
		sb.WriteString("\n")
		if buf.IsBookmarked(first + i) {
			sb.WriteString("[green](BOOKMARK)[-]\n")
		}
	}
	return sb.String()
}

// statusLine formats the status bar.
func statusLine(s viewState) string {
	var sb strings.Builder
	if s.Paused {
		sb.WriteString("[yellow]PAUSED[-]  ")
	}
	if !s.AutoScroll {
		sb.WriteString("scroll locked  ")
	}
	if s.Filter != nil {
		fmt.Fprintf(&sb, "Filter: /%s/  ", tview.Escape(s.Filter.String()))
	}
	if s.Notice != "" {
		sb.WriteString(s.Notice + "  ")
	}
	sb.WriteString("Keys: q quit, / filter, p pause, s scroll, b bookmark, B list, w save, h help")
	return sb.String()
}

func (u *App) state() viewState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.view
}

func (u *App) update(fn func(*viewState)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(&u.view)
}

func (u *App) renderStatus() {
	u.StatusBar.SetText(statusLine(u.state()))
}

func (u *App) bindKeys() {
	u.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			u.mu.Lock()
			u.interrupted = true
			u.mu.Unlock()
			u.App.Stop()
			return nil
		}

		u.mu.Lock()
		overlay := u.overlayActive
		u.mu.Unlock()
		if overlay || event.Key() != tcell.KeyRune {
			return event
		}

		switch event.Rune() {
		case 'q':
			u.App.Stop()
		case 's':
			u.update(func(s *viewState) { s.AutoScroll = !s.AutoScroll })
		case 'c':
			u.Buffer.Clear()
			u.TextView.Clear()
		case 'p':
			u.update(func(s *viewState) { s.Paused = !s.Paused })
		case 'h':
			u.showHelp()
		case '/':
			u.showFilterInput()
		case 'b':
			if n, ok := u.Buffer.BookmarkLast(); ok {
				u.update(func(s *viewState) { s.Notice = fmt.Sprintf("bookmarked line %d", n+1) })
			}
		case 'B':
			u.showBookmarks()
		case 'w':
			u.saveBookmarks()
		default:
			return event
		}
		u.renderStatus()
		return nil
	})
}

func (u *App) saveBookmarks() {
	if err := u.Buffer.SaveBookmarks(u.BookmarksFile); err != nil {
		u.logger.Warn("save bookmarks failed", zap.String("path", u.BookmarksFile), zap.Error(err))
		u.update(func(s *viewState) { s.Notice = "[red]save failed[-]" })
		return
	}
	u.update(func(s *viewState) { s.Notice = "saved " + u.BookmarksFile })
}

func (u *App) openOverlay(p tview.Primitive, fullscreen bool) {
	u.mu.Lock()
	u.overlayActive = true
	u.mu.Unlock()
	u.App.SetRoot(p, fullscreen).SetFocus(p)
}

func (u *App) closeOverlay() {
	u.mu.Lock()
	u.overlayActive = false
	u.mu.Unlock()
	u.App.SetRoot(u.Root, true).SetFocus(u.TextView)
	u.renderStatus()
}

// showFilterInput asks for a regex; an empty one clears the filter.
func (u *App) showFilterInput() {
	input := tview.NewInputField()
	input.SetLabel("Regex filter (empty to clear): ")
	if f := u.state().Filter; f != nil {
		input.SetText(f.String())
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			u.closeOverlay()
			return
		}
		text := input.GetText()
		var re *regexp.Regexp
		if text != "" {
			var err error
			if re, err = regexp.Compile(text); err != nil {
				input.SetLabel(fmt.Sprintf("Invalid regex: %v. Try again: ", err))
				return
			}
		}
		u.update(func(s *viewState) { s.Filter = re })
		u.closeOverlay()
	})
	u.openOverlay(input, true)
}

func (u *App) showBookmarks() {
	u.Bookmarks.Clear()
	bookmarks := u.Buffer.Bookmarks()
	for _, n := range slices.Sorted(maps.Keys(bookmarks)) {
		u.Bookmarks.AddItem(fmt.Sprintf("Line %d: %.60s", n+1, tview.Escape(bookmarks[n])), "", 0, u.closeOverlay)
	}
	u.Bookmarks.AddItem("Close", "Back to log", 'q', u.closeOverlay)
	u.openOverlay(u.Bookmarks, true)
}

func (u *App) showHelp() {
	help := tview.NewModal().
		SetText(`Key bindings:

q - Quit
s - Toggle auto-scroll
c - Clear the view
/ - Regex filter (empty clears)
p - Pause/resume
b - Bookmark the last line
B - Show bookmarks
w - Save bookmarks
h - Show help`).
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(int, string) { u.closeOverlay() })
	u.openOverlay(help, false)
}
