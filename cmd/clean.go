package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/services"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [root]",
	Short: "Remove the node_modules directories of components",
	Long: `List the node_modules directories of the components under the root and
remove them. Without --yes the directories are only listed.

Examples:
  ocpack clean                  # Show what would be removed
  ocpack clean --yes            # Remove`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

var cleanYes bool

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Remove without asking")
}

func runClean(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	root := ""
	if len(args) == 1 {
		root = args[0]
	}

	svc := services.NewComponentService(c)
	dirs, err := svc.CleanTargets(root, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(dirs) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("Nothing to clean."))
		return nil
	}

	if !cleanYes {
		fmt.Fprintln(out, TitleStyle.Render("Would remove:"))
		for _, dir := range dirs {
			fmt.Fprintln(out, "  "+dir)
		}
		fmt.Fprintln(out, SubtitleStyle.Render("Run again with --yes to remove them."))
		return nil
	}

	if err := svc.Clean(dirs); err != nil {
		return err
	}
	for _, dir := range dirs {
		success(out, "removed %s", dir)
	}
	return nil
}
