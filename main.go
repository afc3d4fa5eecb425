package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"filediff/internal/config"
	"filediff/internal/logging"
	"filediff/internal/render"
)

const appVersion = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "filediff",
		Short: "File diffs between commits with rebase edits marked",
		Long: `filediff compares two commits file by file. When the new commit was
rebased onto another parent, edits that only come from the rebase are marked
so the change made by the author stands out.`,
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.repoPath, "repo", ".", "path inside the git repository")
	flags.StringVar(&opts.algorithm, "algorithm", "", "diff algorithm: histogram or myers")
	flags.StringVar(&opts.whitespace, "whitespace", "", "whitespace mode: ignore-none, ignore-trailing, ignore-leading-and-trailing or ignore-all")
	flags.IntVar(&opts.renameScore, "rename-score", 0, "rename detection score in percent, -1 disables it")
	flags.StringArrayVarP(&opts.paths, "path", "p", nil, "file to diff, repeatable (default: every changed file and the commit message)")
	flags.IntVarP(&opts.context, "context", "U", render.DefaultContext, "unchanged lines shown around each edit")
	flags.BoolVar(&opts.hideRebase, "hide-rebase", false, "leave edits due to the rebase out")
	flags.BoolVar(&opts.stats, "stats", false, "print cache metrics and log statistics on exit")

	rootCmd.AddCommand(newDiffCmd(opts), newWatchCmd(opts), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "filediff %s\n", appVersion)
		},
	}
}

// flagOverrides applies the flags the user set on top of the configuration.
func flagOverrides(cmd *cobra.Command, opts *options) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("algorithm") {
			cfg.Algorithm = opts.algorithm
		}
		if flags.Changed("whitespace") {
			cfg.Whitespace = opts.whitespace
		}
		if flags.Changed("rename-score") {
			cfg.RenameScore = opts.renameScore
		}
	}
}

func closeApp(w io.Writer, a *app) {
	if err := a.Close(); err != nil {
		fmt.Fprintf(w, "warning: close: %v\n", err)
	}
}

func reportLoggerStats(w io.Writer, logger *logging.Logger) {
	if !logger.HasErrors() {
		return
	}

	stats := logger.GetStats()
	fmt.Fprintf(w, "\ncompleted with %d error(s)\n", stats.TotalErrors)
	if stats.TotalWarnings > 0 {
		fmt.Fprintf(w, "warnings: %d\n", stats.TotalWarnings)
	}
}
