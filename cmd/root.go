// Package cmd provides the command-line interface for ocpack.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--log-level, --workers, etc.) - highest priority
//	2. Individual environment variables (OCPACK_PACKAGE_WORKERS, etc.)
//	3. Configuration file: --config, then OCPACK_CONFIG_FILE, then .ocpack.yml
//	4. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	OCPACK_CONFIG_FILE: Path to custom configuration file
//	OCPACK_COMPONENTS_ROOT: Components root directory
//	OCPACK_PUBLISH_TARGET: directory or s3
//	And every other key following the OCPACK_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/ocpack/internal/config"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/services"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ocpack",
	Short: "Create, package and publish OpenComponents locally",
	Long: `ocpack creates OpenComponents, installs their npm dependencies, compiles
them into a publishable _package directory and compresses the result into a
tar.gz ready for a registry.

Quick Start:
  ocpack init header handlebars    Create a component
  ocpack package                   Package every component under the root
  ocpack publish ./header          Package, compress and publish one component
  ocpack list                      List components
  ocpack watch                     Repackage components as they change`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .ocpack.yml, can also use OCPACK_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file on exit")

	AddFlagValidation(rootCmd, "log-format", func(format string) error {
		return ValidateFormat(format, []string{FormatText, FormatJSON})
	})
}

// persistentBindings maps root flags to configuration keys.
var persistentBindings = map[string]string{
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"metrics-file": "metrics.textfile",
}

// commandBindings maps each command's flags to configuration keys.
var commandBindings = map[*cobra.Command]map[string]string{}

// initConfig points viper at the configuration file and binds flags.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. OCPACK_CONFIG_FILE environment variable
//  3. .ocpack.yml in the current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("OCPACK_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.FileName, ".yml"))
	}

	config.ConfigureEnv(viper.GetViper())
}

// loadConfig reads the configuration file, if any, and returns the validated
// configuration with this command's flags applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.GetViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.ConfigurationError("config", err.Error(), v.ConfigFileUsed())
		}
	}

	if err := SetViperBindings(v, cmd.Root().PersistentFlags(), persistentBindings); err != nil {
		return nil, err
	}
	if err := SetViperBindings(v, cmd.Flags(), commandBindings[cmd]); err != nil {
		return nil, err
	}

	return config.Load()
}

// newContainer loads configuration and builds the shared services.
func newContainer(cmd *cobra.Command) (*services.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return services.NewContainer(cfg, services.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
}

// flushMetrics writes the metrics textfile, reporting failures as warnings.
func flushMetrics(cmd *cobra.Command, c *services.Container) {
	if err := c.FlushMetrics(); err != nil {
		warning(cmd.ErrOrStderr(), "writing metrics: %v", err)
	}
}

// signalContext is cancelled on interrupt or termination.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// ExitCode maps an error returned by Execute to a process exit code. The
// exit code of a failed npm process is passed through.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := errors.ExitCode(err); ok && code > 0 {
		return code
	}
	return 1
}

// PrintError renders err for the terminal.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	if pe, ok := errors.As(err); ok {
		for _, detail := range pe.Details {
			fmt.Fprintln(os.Stderr, "  "+SubtitleStyle.Render(detail))
		}
	}
}
