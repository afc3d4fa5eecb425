package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"filediff/internal/filediff"
	"filediff/internal/watch"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [old] [new]",
		Short: "Show the file diffs again whenever a ref moves",
		Long: `Show the file diffs between two commits like diff, then wait for HEAD or
any branch to move and show them again. Revisions are resolved anew on every
refresh, so "watch main~1 main" follows the branch. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, opts, flagOverrides(cmd, opts), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeApp(cmd.ErrOrStderr(), a)

			err = a.watch(ctx, cmd, args, opts.paths)
			if opts.stats {
				if statsErr := writeStats(cmd.ErrOrStderr(), a); statsErr != nil && err == nil {
					err = statsErr
				}
			}
			reportLoggerStats(cmd.ErrOrStderr(), a.logger)
			return err
		},
	}
}

// watch shows the diffs, then repeats after every ref change until ctx ends.
func (a *app) watch(ctx context.Context, cmd *cobra.Command, args, paths []string) error {
	w, err := watch.New(watch.GitDir(a.rootPath), watch.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("watch %s: %w", a.rootPath, err)
	}
	defer w.Close()

	out := cmd.OutOrStdout()
	for {
		if err := a.show(ctx, out, args, paths); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var notAvailable *filediff.NotAvailableError
			if !errors.As(err, &notAvailable) {
				return err
			}
			a.logger.WarnErr("diff not available, waiting for the next change", err, nil)
		}

		event, err := w.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.logger.Info("refs changed", map[string]any{"path": event.Path})
		fmt.Fprintf(out, "\n")
	}
}
