package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/services"
)

var installCmd = &cobra.Command{
	Use:   "install <component-path> <dependency>...",
	Short: "Install npm dependencies into a component",
	Long: `Install one or more npm packages into a component with a single npm
invocation.

Examples:
  ocpack install ./header lodash@4
  ocpack install ./header oc-template-es6-compiler --dev --save`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInstall,
}

var (
	installDev    bool
	installSave   bool
	installSilent bool
)

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().BoolVarP(&installDev, "dev", "D", false, "Install as dev dependencies")
	installCmd.Flags().BoolVarP(&installSave, "save", "S", false, "Record the dependencies in package.json")
	installCmd.Flags().BoolVarP(&installSilent, "silent", "s", false, "Hide npm output")
}

func runInstall(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer flushMetrics(cmd, c)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	results, err := services.NewInstallService(c).Install(ctx, args[0], args[1:], services.InstallOptions{
		Dev:    installDev,
		Save:   installSave,
		Silent: installSilent,
	})
	if err != nil {
		return err
	}

	for i, res := range results {
		success(cmd.OutOrStdout(), "%s installed in %s", CmdStyle.Render(args[i+1]), SubtitleStyle.Render(res.Dest))
	}
	return nil
}
