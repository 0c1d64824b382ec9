package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ocpack/internal/version"
)

var versionFormat string

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for ocpack including the version recorded in
packaged manifests, the git commit, build time, Go version and platform.

Examples:
  ocpack version                # Human readable
  ocpack version --format json  # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", FormatText, "Output format (text, json, yaml)")
	AddFlagValidation(versionCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{FormatText, FormatJSON, FormatYAML})
	})
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.GetBuildInfo()
	out := cmd.OutOrStdout()

	if versionFormat != FormatText {
		return writeStructured(out, versionFormat, info)
	}

	line := "ocpack " + TitleStyle.Render(version.GetShortVersion())
	if info.Dirty {
		line += WarningStyle.Render(" (dirty)")
	}
	fmt.Fprintln(out, line)

	if !info.BuildTime.IsZero() {
		fmt.Fprintf(out, "Built: %s\n", info.BuildTime.Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(out, "Manifest version: %s\n", info.ManifestVersion)
	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return nil
}
