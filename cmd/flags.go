package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// OutputFlags provides the --output flag shared by listing commands
type OutputFlags struct {
	Format string `flag:"output,o" desc:"Output format (table|json|yaml)" default:"table"`
}

// AddOutputFlags adds --output with format validation
func AddOutputFlags(cmd *cobra.Command) *OutputFlags {
	flags := &OutputFlags{}
	cmd.Flags().StringVarP(&flags.Format, "output", "o", FormatTable, "Output format (table|json|yaml)")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormat(format, []string{FormatTable, FormatJSON, FormatYAML})
	})
	return flags
}

// SetViperBindings binds flags to viper configuration keys
func SetViperBindings(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for flagName, configKey := range bindings {
		flag := flags.Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(configKey, flag); err != nil {
			return fmt.Errorf("binding --%s to %s: %w", flagName, configKey, err)
		}
	}
	return nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(flagName)
	}
	if flag == nil {
		return
	}

	originalSet := flag.Value.Set

	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: originalSet,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// ValidateFormat checks format against allowed and suggests a close match
func ValidateFormat(format string, allowed []string) error {
	return ValidateChoice("format", format, allowed)
}

// ValidateChoice checks value against allowed and suggests a close match
func ValidateChoice(kind, value string, allowed []string) error {
	lower := strings.ToLower(value)
	if slices.Contains(allowed, lower) {
		return nil
	}
	for _, candidate := range allowed {
		if lower != "" && strings.HasPrefix(candidate, lower) {
			return fmt.Errorf("unsupported %s %q, did you mean %q?", kind, value, candidate)
		}
	}
	return fmt.Errorf("unsupported %s %q (supported: %s)", kind, value, strings.Join(allowed, ", "))
}

// ValidatePositive checks that an integer flag is at least one
func ValidatePositive(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid number: %s", value)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
