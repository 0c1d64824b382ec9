package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/services"
)

var initCmd = &cobra.Command{
	Use:     "init <name> <template-type>",
	Aliases: []string{"i"},
	Short:   "Create a new component",
	Long: `Create a new component directory with a starter view, data provider and
package.json, and install the template's compiler as a dev dependency.

The template type is an npm template package such as oc-template-es6. The
legacy names jade and handlebars are accepted with a deprecation warning.

Examples:
  ocpack init header oc-template-es6          # Create ./header
  ocpack init footer handlebars --dir src     # Create ./src/footer
  ocpack init card oc-template-react --verify-registry`,
	Args: cobra.ExactArgs(2),
	RunE: runInit,
}

var (
	initDir            string
	initSilent         bool
	initVerifyRegistry bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initDir, "dir", "d", "", "Parent directory (default: components.root)")
	initCmd.Flags().BoolVarP(&initSilent, "silent", "s", false, "Hide npm output")
	initCmd.Flags().BoolVar(&initVerifyRegistry, "verify-registry", false, "Check the compiler package exists in the npm registry first")
}

func runInit(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer flushMetrics(cmd, c)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := services.NewInitService(c).Init(ctx, services.InitOptions{
		Name:           args[0],
		TemplateType:   args[1],
		Dir:            initDir,
		Silent:         initSilent,
		VerifyRegistry: initVerifyRegistry,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	success(out, "Created %s with %s", CmdStyle.Render(res.Path), res.Template.CanonicalType)
	for _, file := range res.Files {
		fmt.Fprintln(out, "  "+SubtitleStyle.Render(file))
	}
	return nil
}
