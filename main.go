package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"applog/internal/config"
	"applog/internal/logging"
	"applog/internal/tlog"
	"applog/internal/ui"
	"applog/internal/viewer"
)

// exitInterrupted follows the shell convention of 128+SIGINT.
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs cmd and maps its outcome to an exit status, printing any
// failure to the command's stderr.
func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	code := exitCode(err)
	if code == 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return code
}

// exitCode depends only on how the run ended: a missing log file and a
// normal quit are successes even when a signal arrived meanwhile.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, viewer.ErrInterrupted):
		return exitInterrupted
	}
	return 1
}

type flags struct {
	configPath    string
	file          string
	lines         int
	poll          bool
	color         string
	tui           bool
	logLevel      string
	bookmarksFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "applog",
		Short:         "Follow the application log",
		Long:          "applog prints new lines appended to tmp/app.log until interrupted, or reports that the log does not exist yet.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	def := config.Default()
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	fl.StringVar(&f.file, "file", def.File, "log file to follow")
	fl.IntVarP(&f.lines, "lines", "n", def.Lines, "replay this many existing lines before following")
	fl.BoolVar(&f.poll, "poll", def.Poll, "detect changes by polling instead of inotify")
	fl.StringVar(&f.color, "color", def.Color, "colorize output: auto, always or never")
	fl.BoolVar(&f.tui, "tui", def.TUI, "show the log in a terminal UI")
	fl.StringVar(&f.logLevel, "log-level", def.LogLevel, "diagnostic log level")
	fl.StringVar(&f.bookmarksFile, "bookmarks", def.BookmarksFile, "where the terminal UI saves bookmarks")
	return cmd
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	if fl.Changed("file") {
		cfg.File = f.file
	}
	if fl.Changed("lines") {
		cfg.Lines = f.lines
	}
	if fl.Changed("poll") {
		cfg.Poll = f.poll
	}
	if fl.Changed("color") {
		cfg.Color = f.color
	}
	if fl.Changed("tui") {
		cfg.TUI = f.tui
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fl.Changed("bookmarks") {
		cfg.BookmarksFile = f.bookmarksFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts := []viewer.Option{viewer.WithTailLogger(logging.StdLogger(logger, "tail"))}
	if cfg.TUI {
		opts = append(opts, viewer.WithFollower(ui.New(tlog.NewBuffer(0), cfg.BookmarksFile, logger)))
	}

	return viewer.New(cfg, stdout, logger, opts...).Run(ctx)
}
