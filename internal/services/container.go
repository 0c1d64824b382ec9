// Package services holds the command-level workflows of ocpack. Each service
// takes a Container that builds the shared collaborators from configuration.
package services

import (
	"context"
	"io"
	"os"

	"github.com/conneroisu/ocpack/internal/archive"
	"github.com/conneroisu/ocpack/internal/compiler"
	"github.com/conneroisu/ocpack/internal/config"
	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/metrics"
	"github.com/conneroisu/ocpack/internal/npm"
	"github.com/conneroisu/ocpack/internal/packager"
	"github.com/conneroisu/ocpack/internal/templates"
)

// registryRetries is how often the npm registry client retries a request.
const registryRetries = 2

// Container holds the collaborators shared by every service.
type Container struct {
	Config     *config.Config
	Logger     logging.Logger
	Metrics    *metrics.Metrics
	Resolver   *templates.Resolver
	Validator  *descriptor.CUEValidator
	Compilers  *compiler.Registry
	Installer  *npm.Installer
	Packager   *packager.Packager
	Compressor *archive.Compressor
}

type containerOptions struct {
	logger      logging.Logger
	stdout      io.Writer
	stderr      io.Writer
	execCommand npm.ExecCommandFunc
	compilers   *compiler.Registry
}

// Option configures a Container.
type Option func(*containerOptions)

// WithLogger replaces the logger built from the logging section.
func WithLogger(logger logging.Logger) Option {
	return func(o *containerOptions) { o.logger = logger }
}

// WithOutput sets where npm output goes when not silenced.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *containerOptions) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithExecCommand replaces process creation for npm.
func WithExecCommand(fn npm.ExecCommandFunc) Option {
	return func(o *containerOptions) { o.execCommand = fn }
}

// WithCompilers replaces the default compiler registry.
func WithCompilers(r *compiler.Registry) Option {
	return func(o *containerOptions) { o.compilers = r }
}

// NewContainer builds the collaborators described by cfg.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	o := containerOptions{stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		lc := logging.DefaultConfig()
		lc.Level = level
		lc.Format = cfg.Logging.Format
		logger = logging.NewLogger(lc)
	}

	validator, err := descriptor.NewCUEValidator()
	if err != nil {
		return nil, err
	}

	compilers := o.compilers
	if compilers == nil {
		compilers = compiler.DefaultRegistry()
	}

	m := metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))
	resolver := templates.NewResolver(
		templates.WithLegacyAliases(cfg.Templates.LegacyAliases...),
		templates.WithLogger(logger),
	)

	installerOpts := []npm.Option{
		npm.WithBinary(cfg.NPM.Binary),
		npm.WithOutput(o.stdout, o.stderr),
		npm.WithLogger(logger),
		npm.WithMetrics(m),
	}
	if o.execCommand != nil {
		installerOpts = append(installerOpts, npm.WithExecCommand(o.execCommand))
	}

	policy := packager.BestEffort
	if cfg.Package.FailFast {
		policy = packager.FailFast
	}

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Resolver:  resolver,
		Validator: validator,
		Compilers: compilers,
		Installer: npm.NewInstaller(installerOpts...),
		Packager: packager.New(
			packager.WithValidator(validator),
			packager.WithResolver(resolver),
			packager.WithCompilers(compilers),
			packager.WithOutputDir(cfg.Package.OutputDir),
			packager.WithWorkers(cfg.Package.Workers),
			packager.WithPolicy(policy),
			packager.WithLogger(logger),
			packager.WithMetrics(m),
		),
		Compressor: archive.NewCompressor(
			archive.WithPrefix(cfg.Archive.Prefix),
			archive.WithExclude(cfg.Archive.Exclude...),
			archive.WithLevel(cfg.Archive.Level),
			archive.WithLogger(logger),
			archive.WithMetrics(m),
		),
	}, nil
}

// RegistryChecker returns a checker for the configured npm registry.
func (c *Container) RegistryChecker() (*templates.RegistryChecker, error) {
	client := templates.NewRegistryClient(c.Config.Templates.RegistryTimeout, registryRetries)
	return templates.NewRegistryChecker(c.Config.Templates.RegistryURL, client)
}

// npmContext bounds an npm operation by the configured timeout.
func (c *Container) npmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Config.NPM.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Config.NPM.Timeout)
}

// FlushMetrics writes the metrics textfile when one is configured.
func (c *Container) FlushMetrics() error {
	if c.Config.Metrics.Textfile == "" {
		return nil
	}
	return c.Metrics.WriteTextfile(c.Config.Metrics.Textfile)
}
