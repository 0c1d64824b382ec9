package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/npm"
	"github.com/conneroisu/ocpack/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateComponentsConfigDetails(&config.Components, result)
	validateTemplatesConfigDetails(&config.Templates, result)
	validateNPMConfigDetails(&config.NPM, result)
	validatePackageConfigDetails(&config.Package, result)
	validateArchiveConfigDetails(&config.Archive, result)
	validatePublishConfigDetails(&config.Publish, result)
	validateLoggingConfigDetails(&config.Logging, result)
	validateMetricsConfigDetails(&config.Metrics, result)

	result.Valid = !result.HasErrors()
	return result
}

// validateConfig returns the first validation error as a ConfigInvalid error.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if !result.HasErrors() {
		return nil
	}
	first := result.Errors[0]
	return errors.ConfigurationError(first.Field, first.Message, first.Value).
		WithDetails(first.Suggestions...)
}

func validateComponentsConfigDetails(config *ComponentsConfig, result *ValidationResult) {
	if err := validatePath(config.Root); err != nil {
		result.fail("components.root", config.Root, err.Error(),
			"Point root at the directory whose children are components")
	}
	for _, name := range config.Only {
		if err := validation.CheckComponentName(name); err != nil {
			result.fail("components.only", name, fmt.Sprintf("%q is not a component name", name))
		}
	}
}

func validateTemplatesConfigDetails(config *TemplatesConfig, result *ValidationResult) {
	for _, alias := range config.LegacyAliases {
		if strings.ContainsAny(alias, " \t\n/\\") {
			result.fail("templates.legacy_aliases", alias, "aliases cannot contain whitespace or separators")
		}
		if strings.HasPrefix(alias, "oc-template-") {
			result.warn("templates.legacy_aliases", alias, "alias is already canonical and will be prefixed twice")
		}
	}

	if config.RegistryURL != "" {
		u, err := url.Parse(config.RegistryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result.fail("templates.registry_url", config.RegistryURL, "must be an http or https URL",
				"Leave empty to use https://registry.npmjs.org")
		}
	}
	if config.RegistryTimeout < 0 {
		result.fail("templates.registry_timeout", config.RegistryTimeout, "cannot be negative")
	}
}

func validateNPMConfigDetails(config *NPMConfig, result *ValidationResult) {
	if !npm.AllowedBinaries[config.Binary] {
		result.fail("npm.binary", config.Binary, "package manager is not allowed",
			fmt.Sprintf("Use one of: %s", strings.Join(allowedBinaries(), ", ")))
	}
	if config.Timeout <= 0 {
		result.fail("npm.timeout", config.Timeout, "must be positive", "Example: 10m")
	} else if config.Timeout < 10*time.Second {
		result.warn("npm.timeout", config.Timeout, "installs rarely finish this quickly")
	}
}

func validatePackageConfigDetails(config *PackageConfig, result *ValidationResult) {
	if config.Workers < 1 {
		result.fail("package.workers", config.Workers, "must be at least 1")
	} else if config.Workers > runtime.NumCPU()*4 {
		result.warn("package.workers", config.Workers, "far more workers than CPUs",
			fmt.Sprintf("This machine has %d CPUs", runtime.NumCPU()))
	}
	if err := validateSegment(config.OutputDir); err != nil {
		result.fail("package.output_dir", config.OutputDir, err.Error())
	}
}

func validateArchiveConfigDetails(config *ArchiveConfig, result *ValidationResult) {
	if err := validateSegment(config.Prefix); err != nil {
		result.fail("archive.prefix", config.Prefix, err.Error())
	}
	if config.Level < -3 || config.Level > 9 {
		result.fail("archive.level", config.Level, "must be between -3 and 9", "-1 selects the default level")
	}
	for _, glob := range config.Exclude {
		if _, err := filepath.Match(glob, ""); err != nil {
			result.fail("archive.exclude", glob, "malformed glob")
		}
	}
}

func validatePublishConfigDetails(config *PublishConfig, result *ValidationResult) {
	switch config.Target {
	case TargetDirectory:
		if err := validatePath(config.Directory); err != nil {
			result.fail("publish.directory", config.Directory, err.Error())
		}
	case TargetS3:
		if config.S3.Bucket == "" {
			result.fail("publish.s3.bucket", config.S3.Bucket, "required when publish.target is s3")
		}
		if config.S3.Region == "" {
			result.warn("publish.s3.region", config.S3.Region, "no region set",
				"Set publish.s3.region or OCPACK_PUBLISH_S3_REGION")
		}
	default:
		result.fail("publish.target", config.Target, "unknown publish target",
			fmt.Sprintf("Use %q or %q", TargetDirectory, TargetS3))
	}
}

func validateLoggingConfigDetails(config *LoggingConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.fail("logging.level", config.Level, err.Error(), "Use debug, info, warn or error")
	}
	if config.Format != "text" && config.Format != "json" {
		result.fail("logging.format", config.Format, "must be text or json")
	}
}

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

func validateMetricsConfigDetails(config *MetricsConfig, result *ValidationResult) {
	if !metricNamePattern.MatchString(config.Namespace) {
		result.fail("metrics.namespace", config.Namespace, "not a valid Prometheus metric prefix")
	}
	if config.Textfile != "" {
		if err := validatePath(config.Textfile); err != nil {
			result.fail("metrics.textfile", config.Textfile, err.Error())
		}
	}
}

// validatePath validates a configured path for traversal and shell
// metacharacters. Quotes and parentheses are rejected as well.
func validatePath(path string) error {
	if err := validation.ValidatePath(path); err != nil {
		return err
	}
	if strings.ContainsAny(path, `()"'`) {
		return fmt.Errorf("path contains dangerous character: %s", path)
	}
	return nil
}

// validateSegment checks a single directory name.
func validateSegment(name string) error {
	if name == "" {
		return fmt.Errorf("cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("must be a single directory name")
	}
	return validatePath(name)
}

func allowedBinaries() []string {
	names := make([]string, 0, len(npm.AllowedBinaries))
	for name := range npm.AllowedBinaries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
