package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/services"
	"github.com/conneroisu/ocpack/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [root]",
	Aliases: []string{"w"},
	Short:   "Repackage components when their files change",
	Long: `Package every component under the root, then watch the root and
repackage each component whose files change. Changes inside _package and
node_modules are ignored. Stop with Ctrl+C.

Examples:
  ocpack watch
  ocpack watch ./components --debounce 500ms`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var watchDebounce = watcher.DefaultDebounce

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "Quiet period before repackaging")
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer flushMetrics(cmd, c)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	opts := services.WatchOptions{
		Debounce: watchDebounce,
		Ready: func() {
			fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("Watching for changes, press Ctrl+C to stop."))
		},
	}
	if len(args) == 1 {
		opts.Root = args[0]
	}

	return services.NewWatchService(c).Watch(ctx, opts)
}
