package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/archive"
	"github.com/conneroisu/ocpack/internal/config"
	"github.com/conneroisu/ocpack/internal/services"
)

var publishCmd = &cobra.Command{
	Use:   "publish <component-path>...",
	Short: "Package, compress and publish components",
	Long: `Package each component, compress its _package directory into a tar.gz
whose entries all sit under _package/, hand the archive to the publish
target and remove the temporary archive.

Targets:
  directory   copy to <publish.directory>/<name>/<version>/package.tar.gz
  s3          upload to s3://<bucket>/<prefix><name>/<version>/package.tar.gz

Examples:
  ocpack publish ./header
  ocpack publish ./header ./footer --target s3
  ocpack publish ./header --dry-run       # List archive entries only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPublish,
}

var (
	publishTarget string
	publishDryRun bool
)

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishTarget, "target", "t", "", "Publish target: directory or s3 (default: publish.target)")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Build the archive and list its entries without publishing")

	AddFlagValidation(publishCmd, "target", func(target string) error {
		return ValidateChoice("target", target, []string{config.TargetDirectory, config.TargetS3})
	})
}

func runPublish(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer flushMetrics(cmd, c)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	results, err := services.NewPublishService(c).Publish(ctx, args, services.PublishOptions{
		Target: publishTarget,
		DryRun: publishDryRun,
	})

	out := cmd.OutOrStdout()
	for _, res := range results {
		pc := res.Component
		if publishDryRun {
			success(out, "%s %s would contain %d entries", CmdStyle.Render(pc.Name), pc.Version, len(res.Entries))
			for _, entry := range res.Entries {
				fmt.Fprintln(out, "  "+SubtitleStyle.Render(entry))
			}
		} else {
			success(out, "%s %s published to %s", CmdStyle.Render(pc.Name), pc.Version, res.Location)
		}
		if res.CleanupErr != nil && !archive.IsNonFatal(res.CleanupErr) {
			warning(cmd.ErrOrStderr(), "cleanup: %v", res.CleanupErr)
		}
	}
	return err
}
