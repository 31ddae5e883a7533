package highlight

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"applog/internal/config"
)

// Severity is the level a log line appears to carry.
type Severity int

const (
	None Severity = iota
	Debug
	Info
	Warn
	Error
)

// levelField matches the level column of "asctime - name - LEVEL - message"
// lines.
var levelField = regexp.MustCompile(` - (CRITICAL|FATAL|ERROR|WARNING|WARN|INFO|DEBUG) - `)

var levels = map[string]Severity{
	"CRITICAL": Error,
	"FATAL":    Error,
	"ERROR":    Error,
	"WARNING":  Warn,
	"WARN":     Warn,
	"INFO":     Info,
	"DEBUG":    Debug,
}

// Classify returns the severity of line. The level column wins when the
// line has one; otherwise the most severe keyword anywhere in the line is
// used.
func Classify(line string) Severity {
	if m := levelField.FindStringSubmatch(line); m != nil {
		return levels[m[1]]
	}
	switch {
	case strings.Contains(line, "ERROR"), strings.Contains(line, "FATAL"), strings.Contains(line, "CRITICAL"):
		return Error
	case strings.Contains(line, "WARN"):
		return Warn
	case strings.Contains(line, "INFO"):
		return Info
	case strings.Contains(line, "DEBUG"):
		return Debug
	}
	return None
}

// ColorizeLine adds tview dynamic color tags based on the line's severity.
func ColorizeLine(line string) string {
	switch Classify(line) {
	case Error:
		return "[red]" + line + "[-]"
	case Warn:
		return "[orange]" + line + "[-]"
	case Info:
		return "[lightblue]" + line + "[-]"
	case Debug:
		return "[gray]" + line + "[-]"
	}
	return line
}

// Painter colors lines with ANSI escapes for terminal output.
type Painter struct {
	colors map[Severity]*color.Color
}

// NewPainter returns a painter; when enabled is false Paint returns lines
// unchanged.
func NewPainter(enabled bool) *Painter {
	colors := map[Severity]*color.Color{
		Error: color.New(color.FgRed, color.Bold),
		Warn:  color.New(color.FgYellow),
		Info:  color.New(color.FgCyan),
		Debug: color.New(color.FgHiBlack),
	}
	for _, c := range colors {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &Painter{colors: colors}
}

// Paint returns line wrapped in the color for its severity.
func (p *Painter) Paint(line string) string {
	c, ok := p.colors[Classify(line)]
	if !ok {
		return line
	}
	return c.Sprint(line)
}

// ShouldColorize resolves a config color mode against the writer. Auto
// colors only terminals.
func ShouldColorize(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
