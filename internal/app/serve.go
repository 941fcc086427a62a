package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	apperrors "github.com/agbru/tilemanifest/internal/errors"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/server"
)

// runServe runs the exists service until SIGINT or SIGTERM. The run timeout
// does not apply to the service.
func (a *Application) runServe(ctx context.Context) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	var opts []probe.LocalOption
	if a.Config.Root != "" {
		opts = append(opts, probe.WithRoot(a.Config.Root))
	}
	srv := server.New(a.Config.Serve, probe.NewLocalProbe(opts...), a.Logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}
