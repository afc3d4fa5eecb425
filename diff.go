package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newDiffCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [old] [new]",
		Short: "Show the file diffs between two commits",
		Long: `Show the file diffs between two commits. With a single revision the
commit is compared against its first parent; without one HEAD is used.
Edits that only exist because the new commit was rebased are marked [rebase].`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, flagOverrides(cmd, opts), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeApp(cmd.ErrOrStderr(), a)

			if err := a.show(cmd.Context(), cmd.OutOrStdout(), args, opts.paths); err != nil {
				return err
			}
			if opts.stats {
				if err := writeStats(cmd.ErrOrStderr(), a); err != nil {
					return err
				}
			}
			reportLoggerStats(cmd.ErrOrStderr(), a.logger)
			return nil
		},
	}
}

// show renders the file diffs of the commits named by args.
func (a *app) show(ctx context.Context, w io.Writer, args, paths []string) error {
	oldID, newID, err := a.resolveRange(args)
	if err != nil {
		return err
	}
	keys, err := a.keys(ctx, oldID, newID, paths)
	if err != nil {
		return err
	}

	outputs, err := a.cache.GetAll(ctx, keys)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := a.renderer.Render(w, a.renderFile(outputs[k])); err != nil {
			return fmt.Errorf("render %s: %w", k.NewFilePath, err)
		}
	}
	return nil
}

func writeStats(w io.Writer, a *app) error {
	fmt.Fprintf(w, "\ncache entries: %d\n", a.cache.Len())
	if err := writeMetrics(w, a.registry); err != nil {
		return err
	}
	stats := a.logger.GetStats()
	fmt.Fprintf(w, "log warnings: %d\nlog errors: %d\n", stats.TotalWarnings, stats.TotalErrors)
	return nil
}

// writeMetrics prints counters and histogram totals in the text exposition
// layout, one sample per line.
func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(pairs)
			labels := ""
			if len(pairs) > 0 {
				labels = "{" + strings.Join(pairs, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", mf.GetName(), labels, h.GetSampleSum())
			}
		}
	}
	return nil
}
