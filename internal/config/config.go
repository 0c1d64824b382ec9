// Package config provides configuration management for ocpack using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration file is .ocpack.yml. Every key can be overridden with an
// OCPACK_ environment variable, dots replaced by underscores
// (OCPACK_PACKAGE_WORKERS). Load applies defaults and validates the result.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/packager"
)

// FileName is the default configuration file.
const FileName = ".ocpack.yml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OCPACK"

// Publish targets.
const (
	TargetDirectory = "directory"
	TargetS3        = "s3"
)

type Config struct {
	Components ComponentsConfig `mapstructure:"components" yaml:"components" json:"components"`
	Templates  TemplatesConfig  `mapstructure:"templates" yaml:"templates" json:"templates"`
	NPM        NPMConfig        `mapstructure:"npm" yaml:"npm" json:"npm"`
	Package    PackageConfig    `mapstructure:"package" yaml:"package" json:"package"`
	Archive    ArchiveConfig    `mapstructure:"archive" yaml:"archive" json:"archive"`
	Publish    PublishConfig    `mapstructure:"publish" yaml:"publish" json:"publish"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

type ComponentsConfig struct {
	Root string   `mapstructure:"root" yaml:"root" json:"root"`
	Only []string `mapstructure:"only" yaml:"only" json:"only"`
}

type TemplatesConfig struct {
	LegacyAliases   []string      `mapstructure:"legacy_aliases" yaml:"legacy_aliases" json:"legacy_aliases"`
	VerifyRegistry  bool          `mapstructure:"verify_registry" yaml:"verify_registry" json:"verify_registry"`
	RegistryURL     string        `mapstructure:"registry_url" yaml:"registry_url" json:"registry_url"`
	RegistryTimeout time.Duration `mapstructure:"registry_timeout" yaml:"registry_timeout" json:"registry_timeout"`
}

type NPMConfig struct {
	Binary  string        `mapstructure:"binary" yaml:"binary" json:"binary"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

type PackageConfig struct {
	Workers   int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	FailFast  bool   `mapstructure:"fail_fast" yaml:"fail_fast" json:"fail_fast"`
}

type ArchiveConfig struct {
	Prefix  string   `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	Level   int      `mapstructure:"level" yaml:"level" json:"level"`
}

type PublishConfig struct {
	Target    string   `mapstructure:"target" yaml:"target" json:"target"`
	Directory string   `mapstructure:"directory" yaml:"directory" json:"directory"`
	S3        S3Config `mapstructure:"s3" yaml:"s3" json:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Region    string `mapstructure:"region" yaml:"region" json:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style" json:"path_style"`
	Profile   string `mapstructure:"profile" yaml:"profile" json:"profile"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
	Textfile  string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("components.root", ".")
	v.SetDefault("components.only", []string{})
	v.SetDefault("templates.legacy_aliases", []string{"jade", "handlebars"})
	v.SetDefault("templates.verify_registry", false)
	v.SetDefault("templates.registry_url", "")
	v.SetDefault("templates.registry_timeout", 15*time.Second)
	v.SetDefault("npm.binary", "npm")
	v.SetDefault("npm.timeout", 10*time.Minute)
	v.SetDefault("package.workers", packager.DefaultWorkers())
	v.SetDefault("package.output_dir", "_package")
	v.SetDefault("package.fail_fast", false)
	v.SetDefault("archive.prefix", "_package")
	v.SetDefault("archive.exclude", []string{})
	v.SetDefault("archive.level", -1)
	v.SetDefault("publish.target", TargetDirectory)
	v.SetDefault("publish.directory", ".ocpack/registry")
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.prefix", "")
	v.SetDefault("publish.s3.region", "")
	v.SetDefault("publish.s3.endpoint", "")
	v.SetDefault("publish.s3.path_style", false)
	v.SetDefault("publish.s3.profile", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("metrics.namespace", "ocpack")
	v.SetDefault("metrics.textfile", "")
}

// ConfigureEnv makes OCPACK_* environment variables override keys on v.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals, defaults and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.ConfigurationError("config", err.Error(), nil)
	}

	// Viper returns comma-separated env values as one element.
	config.Components.Only = splitList(v.GetStringSlice("components.only"))
	config.Templates.LegacyAliases = splitList(v.GetStringSlice("templates.legacy_aliases"))
	config.Archive.Exclude = splitList(v.GetStringSlice("archive.exclude"))

	if config.Package.Workers == 0 {
		config.Package.Workers = packager.DefaultWorkers()
	}
	if config.Components.Root == "" {
		config.Components.Root = "."
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration with no file, flags or environment.
func Default() *Config {
	v := viper.New()
	cfg, err := LoadFrom(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
