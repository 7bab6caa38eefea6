package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/glyph/internal/config"
	"github.com/roach88/glyph/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile whenever the acceptance ledger changes",
		Long: `Reconcile once, then again every time the acceptance ledger file is
written. Runs until interrupted. Requires the yaml backend.

Example:
  glyph watch
  glyph watch --debounce 1s --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "quiet period before reconciling")
	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd, slog.LevelInfo)
	if err != nil {
		out := newFormatter(opts.RootOptions, cmd)
		_ = out.Error(ErrCodeWorkspace, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open workspace", err)
	}
	defer e.Close()

	if e.files == nil {
		msg := "watch needs the " + config.BackendYAML + " backend; this workspace uses " + e.ws.Config.Backend
		_ = e.out.Error(ErrCodeWorkspace, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconcile := func(ctx context.Context) error {
		_, err := e.board.Reconcile(ctx)
		return err
	}
	if err := reconcile(ctx); err != nil {
		e.logger.Error("initial reconcile failed", "error", err)
	}

	w, err := watch.New(e.files.LedgerPath(), reconcile,
		watch.WithDebounce(opts.Debounce),
		watch.WithLogger(e.logger),
	)
	if err != nil {
		return e.out.Fail("watch ledger", err)
	}
	defer w.Close()

	e.logger.Info("watching ledger", "path", e.files.LedgerPath())
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return e.out.Fail("watch ledger", err)
	}
	e.logger.Info("watch stopped")
	return nil
}
