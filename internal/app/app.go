package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/agbru/tilemanifest/internal/cli"
	"github.com/agbru/tilemanifest/internal/config"
	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/logging"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/ui"
)

// ProbeFactory builds the existence probe for a configuration.
type ProbeFactory func(cfg config.AppConfig) (probe.ExistenceProbe, error)

// Application represents the tilemanifest application instance.
type Application struct {
	Config    config.AppConfig
	NewProbe  ProbeFactory
	Logger    logging.Logger
	ErrWriter io.Writer

	programName string
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithProbeFactory replaces the probe selection, mostly for tests.
func WithProbeFactory(f ProbeFactory) AppOption {
	return func(a *Application) { a.NewProbe = f }
}

// WithLogger sets the logger used by build and serve modes.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// New creates a new Application instance by parsing command-line arguments.
// args[0] is the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, programName: "tilemanifest"}
	var cmdArgs []string
	if len(args) > 0 {
		app.programName = filepath.Base(args[0])
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(app.programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	for _, opt := range opts {
		opt(app)
	}
	if app.NewProbe == nil {
		app.NewProbe = NewProbe
	}
	if app.Logger == nil {
		app.Logger = logging.NewConsoleLogger(errWriter, "tilemanifest", cfg.LogLevel)
	}
	return app, nil
}

// Run executes the application based on the configured mode and returns the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	switch {
	case a.Config.Completion != "":
		return a.runCompletion(out)
	case a.Config.Version:
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	zerolog.SetGlobalLevel(logging.ParseLevel(a.Config.LogLevel))
	ui.InitTheme(a.Config.NoColor)

	if a.Config.Serve != "" {
		return a.runServe(ctx)
	}
	if a.Config.TUI {
		return a.runTUI(ctx, out)
	}
	return a.runBuild(ctx, out)
}

// runCompletion generates shell completion scripts.
func (a *Application) runCompletion(out io.Writer) int {
	if err := cli.GenerateCompletion(out, a.programName, a.Config.Completion); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

// lifecycle bounds ctx by the run timeout and SIGINT/SIGTERM.
func (a *Application) lifecycle(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stopSignals()
		cancelTimeout()
	}
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
