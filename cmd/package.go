package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/services"
)

var packageCmd = &cobra.Command{
	Use:     "package [root]",
	Aliases: []string{"p"},
	Short:   "Package every component under a root",
	Long: `Discover the components under the root and compile each into its _package
directory. Components are packaged in parallel; by default a failure does not
stop the others.

Examples:
  ocpack package                        # Package components under components.root
  ocpack package ./components --only header,footer
  ocpack package --fail-fast --workers 2
  ocpack package --archive-dir dist     # Also write dist/<name>-<version>.tar.gz`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPackage,
}

var (
	packageOnly       []string
	packageFailFast   bool
	packageWorkers    int
	packageArchiveDir string
)

func init() {
	rootCmd.AddCommand(packageCmd)

	packageCmd.Flags().StringSliceVar(&packageOnly, "only", nil, "Package only these components")
	packageCmd.Flags().BoolVar(&packageFailFast, "fail-fast", false, "Stop at the first failure")
	packageCmd.Flags().IntVarP(&packageWorkers, "workers", "w", 0, "Parallel workers (default: package.workers)")
	packageCmd.Flags().StringVar(&packageArchiveDir, "archive-dir", "", "Also compress each package into this directory")

	AddFlagValidation(packageCmd, "workers", ValidatePositive)

	commandBindings[packageCmd] = map[string]string{
		"only":      "components.only",
		"fail-fast": "package.fail_fast",
		"workers":   "package.workers",
	}
}

func runPackage(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer flushMetrics(cmd, c)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	opts := services.PackageOptions{ArchiveDir: packageArchiveDir}
	if len(args) == 1 {
		opts.Root = args[0]
	}

	report, err := services.NewPackageService(c).Package(ctx, opts)
	if report == nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, o := range report.Batch.Outcomes {
		name := filepath.Base(o.Path)
		if o.OK() {
			pc := o.Component
			success(out, "%s %s %s", CmdStyle.Render(pc.Name), pc.Version,
				SubtitleStyle.Render(fmt.Sprintf("%s, %s", pc.Template.CanonicalType, pc.Duration.Round(time.Millisecond))))
			continue
		}
		failure(out, "%s %s", CmdStyle.Render(name), o.Err)
	}
	for _, archive := range report.Archives {
		fmt.Fprintln(out, "  "+SubtitleStyle.Render(archive))
	}

	succeeded, failed := len(report.Batch.Succeeded()), len(report.Batch.Failed())
	summary := fmt.Sprintf("%d packaged, %d failed in %s", succeeded, failed, report.Duration.Round(time.Millisecond))
	if failed > 0 {
		fmt.Fprintln(out, ErrorStyle.Render(summary))
		return fmt.Errorf("%d of %d components failed to package", failed, succeeded+failed)
	}
	fmt.Fprintln(out, TitleStyle.Render(summary))
	return err
}
