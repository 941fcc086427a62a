package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/agbru/tilemanifest/internal/cli"
	"github.com/agbru/tilemanifest/internal/config"
	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/export"
	"github.com/agbru/tilemanifest/internal/logging"
	"github.com/agbru/tilemanifest/internal/manifest"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/tui"
)

// NewProbe selects the probe for cfg: the remote exists service when a
// probe URL is configured, local files and URLs otherwise.
func NewProbe(cfg config.AppConfig) (probe.ExistenceProbe, error) {
	if cfg.ProbeURL != "" {
		p, err := probe.NewHTTPProbe(cfg.ProbeURL)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid --probe-url: %v", err)
		}
		return p, nil
	}
	var opts []probe.LocalOption
	if cfg.Root != "" {
		opts = append(opts, probe.WithRoot(cfg.Root))
	}
	return probe.NewLocalProbe(opts...), nil
}

// statusWriter is where human-readable output goes. When the manifest
// itself is written to stdout, everything else moves to the error stream.
func (a *Application) statusWriter(out io.Writer) io.Writer {
	if a.Config.Output == "" || a.Config.Output == "-" {
		return a.ErrWriter
	}
	return out
}

// buildOptions returns the builder options shared by the CLI and the
// dashboard.
func (a *Application) buildOptions(progress *manifest.Progress, logger logging.Logger) []manifest.Option {
	return []manifest.Option{
		manifest.WithProgress(progress),
		manifest.WithProbeTimeout(a.Config.ProbeTimeout),
		manifest.WithClaimOrder(a.Config.ClaimOrder()),
		manifest.WithLogger(logger),
	}
}

// warnDescriptorLimit logs when the configured concurrency is likely to
// exhaust file descriptors.
func (a *Application) warnDescriptorLimit() {
	if exceeds, limit := config.ExceedsDescriptorLimit(a.Config.MaxInFlight); exceeds {
		a.Logger.Info("max-in-flight is close to the file descriptor limit",
			logging.Int("max_in_flight", a.Config.MaxInFlight),
			logging.Uint64("fd_limit", limit),
		)
	}
}

// runBuild orchestrates a manifest build on the command line.
func (a *Application) runBuild(ctx context.Context, out io.Writer) int {
	ctx, stop := a.lifecycle(ctx)
	defer stop()

	status := a.statusWriter(out)
	a.warnDescriptorLimit()

	p, err := a.NewProbe(a.Config)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	if !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, status)
	}

	var reporter cli.ProgressReporter = cli.CLIProgressReporter{}
	if a.Config.Quiet {
		reporter = cli.NullProgressReporter{}
	}

	progress := &manifest.Progress{}
	var wg sync.WaitGroup
	wg.Add(1)
	go reporter.DisplayProgress(ctx, &wg, progress, status)

	res, buildErr := manifest.BuildManifest(ctx, a.Config.Format, a.Config.Range(), a.Config.MaxInFlight, p,
		a.buildOptions(progress, a.Logger)...)
	wg.Wait()

	return a.finish(ctx, res, buildErr, out, status)
}

// runTUI runs the build under the interactive dashboard.
func (a *Application) runTUI(ctx context.Context, out io.Writer) int {
	ctx, stop := a.lifecycle(ctx)
	defer stop()

	p, err := a.NewProbe(a.Config)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	build := func(ctx context.Context, progress *manifest.Progress, obs manifest.Observer) (*manifest.Result, error) {
		// Log lines would tear the alternate screen; failures reach the
		// dashboard through obs instead.
		opts := append(a.buildOptions(progress, logging.Nop()), manifest.WithObserver(obs))
		return manifest.BuildManifest(ctx, a.Config.Format, a.Config.Range(), a.Config.MaxInFlight, p, opts...)
	}

	fdLimit, _ := config.FileDescriptorLimit()
	res, buildErr := tui.Run(ctx, a.Config, Version, build, fdLimit)
	return a.finish(ctx, res, buildErr, out, a.statusWriter(out))
}

// finish exports a completed manifest, prints the summary and maps the
// outcome to an exit code. An interrupted build is summarized but not
// exported.
func (a *Application) finish(ctx context.Context, res *manifest.Result, buildErr error, out, status io.Writer) int {
	if res == nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", buildErr)
		return apperrors.ExitCodeFor(buildErr)
	}

	if buildErr != nil {
		if errors.Is(buildErr, context.DeadlineExceeded) {
			buildErr = apperrors.TimeoutError{Operation: "build manifest", Limit: a.Config.Timeout}
		}
		if !a.Config.Quiet {
			cli.DisplaySummary(res, a.Config.Verbose, status)
		}
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", buildErr)
		a.Logger.Error("build interrupted", buildErr,
			logging.String("run_id", res.RunID),
			logging.Int("probed", res.Probed),
		)
		return apperrors.ExitCodeFor(buildErr)
	}

	// The build may finish just as the deadline fires; exporting still
	// needs a live context.
	exportCtx := context.WithoutCancel(ctx)
	if err := a.export(exportCtx, res, out); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}

	if !a.Config.Quiet {
		cli.DisplaySummary(res, a.Config.Verbose, status)
		if a.Config.Output != "" && a.Config.Output != "-" {
			cli.DisplayExport(a.Config.Output, a.Config.OutputName, res.Found.Len(), status)
		}
	}

	if a.Config.Strict && len(res.Failures) > 0 {
		return apperrors.ExitErrorPartial
	}
	return apperrors.ExitSuccess
}

// export serializes the found coordinates and writes them to the
// configured target.
func (a *Application) export(ctx context.Context, res *manifest.Result, out io.Writer) error {
	data, err := export.EncodingFor(a.Config.OutputName).Encode(res.Coords())
	if err != nil {
		return apperrors.WrapError(err, "encode manifest")
	}
	exp, err := export.Open(ctx, a.Config.Output, out)
	if err != nil {
		return apperrors.WrapError(err, "open output %s", a.Config.Output)
	}
	if err := exp.Export(ctx, a.Config.OutputName, data); err != nil {
		_ = exp.Close()
		return err
	}
	return exp.Close()
}
