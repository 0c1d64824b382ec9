package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/services"
)

var listCmd = &cobra.Command{
	Use:     "list [root]",
	Aliases: []string{"l", "ls"},
	Short:   "List the components under a root",
	Long: `List the components under the root with their version, template type and
whether a _package directory exists. Components whose package.json is
invalid are listed with the error.

Examples:
  ocpack list                    # Table of components under components.root
  ocpack list ./components -o json
  ocpack list -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var listFlags *OutputFlags

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddOutputFlags(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}

	root := ""
	if len(args) == 1 {
		root = args[0]
	}

	infos, err := services.NewComponentService(c).List(root, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if strings.ToLower(listFlags.Format) != FormatTable {
		return writeStructured(out, listFlags.Format, infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("No components found."))
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := SuccessStyle.Render("packaged")
		switch {
		case info.Error != "":
			status = ErrorStyle.Render("invalid")
		case !info.Packaged:
			status = SubtitleStyle.Render("-")
		}
		template := info.Template
		if info.Legacy {
			template += WarningStyle.Render(" (legacy)")
		}
		rows = append(rows, []string{info.Name, info.Version, template, status, info.Path})
	}
	renderTable(out, []string{"NAME", "VERSION", "TEMPLATE", "STATUS", "PATH"}, rows)
	return nil
}
