// Package packager compiles components into their packaged layout.
//
// PackageOne turns one component directory into <component>/_package: the
// compiled view, the optional data provider, static assets and a derived
// package.json. The source package.json is never modified. PackageMany runs
// PackageOne over many components concurrently and reports one outcome per
// component.
package packager

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/conneroisu/ocpack/internal/compiler"
	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/discovery"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/metrics"
	"github.com/conneroisu/ocpack/internal/templates"
	"github.com/conneroisu/ocpack/internal/tracing"
	"github.com/conneroisu/ocpack/internal/validation"
	"github.com/conneroisu/ocpack/internal/version"
)

// MaxDefaultWorkers caps the default worker count.
const MaxDefaultWorkers = 8

// PackagedComponent is the result of packaging one component.
type PackagedComponent struct {
	Name        string                     `json:"name"`
	Version     string                     `json:"version"`
	SourcePath  string                     `json:"source_path"`
	PackagePath string                     `json:"package_path"`
	Template    templates.ResolvedTemplate `json:"template"`
	Manifest    descriptor.OC              `json:"manifest"`
	Duration    time.Duration              `json:"duration"`

	Descriptor *descriptor.Descriptor `json:"-"`
}

// Packager compiles components. It is safe for concurrent use on disjoint
// component directories.
type Packager struct {
	validator   descriptor.Validator
	resolver    *templates.Resolver
	compilers   *compiler.Registry
	outputDir   string
	workers     int
	policy      Policy
	toolVersion string
	now         func() time.Time
	logger      logging.Logger
	metrics     *metrics.Metrics
}

// Option configures a Packager.
type Option func(*Packager)

// WithValidator sets the descriptor validator. nil disables schema checks.
func WithValidator(v descriptor.Validator) Option {
	return func(p *Packager) { p.validator = v }
}

// WithResolver sets the template resolver.
func WithResolver(r *templates.Resolver) Option {
	return func(p *Packager) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithCompilers sets the compiler registry.
func WithCompilers(r *compiler.Registry) Option {
	return func(p *Packager) {
		if r != nil {
			p.compilers = r
		}
	}
}

// WithOutputDir sets the package directory name inside each component.
func WithOutputDir(name string) Option {
	return func(p *Packager) {
		if name != "" {
			p.outputDir = name
		}
	}
}

// WithWorkers bounds PackageMany concurrency.
func WithWorkers(n int) Option {
	return func(p *Packager) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPolicy sets the PackageMany failure policy.
func WithPolicy(policy Policy) Option {
	return func(p *Packager) { p.policy = policy }
}

// WithToolVersion sets the version recorded in derived manifests.
func WithToolVersion(v string) Option {
	return func(p *Packager) { p.toolVersion = v }
}

// WithClock replaces time.Now for the packaging date.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Packager) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records packaging results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Packager) { p.metrics = m }
}

// New creates a packager with the built-in compilers, the default legacy
// aliases and no schema validator.
func New(opts ...Option) *Packager {
	p := &Packager{
		resolver:    templates.NewResolver(),
		compilers:   compiler.DefaultRegistry(),
		outputDir:   discovery.PackageDir,
		workers:     DefaultWorkers(),
		toolVersion: version.ManifestVersion(),
		now:         time.Now,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("packager")
	return p
}

// DefaultWorkers is NumCPU capped at MaxDefaultWorkers.
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxDefaultWorkers)
}

// PackageOne packages the component in componentPath.
func (p *Packager) PackageOne(ctx context.Context, componentPath string) (pc *PackagedComponent, err error) {
	start := time.Now()
	name := filepath.Base(componentPath)
	templateLabel := "unknown"

	ctx, span := tracing.Start(ctx, "packager", "packager.PackageOne",
		attribute.String("ocpack.component_path", componentPath))
	defer func() {
		p.metrics.ObservePackage(templateLabel, time.Since(start), err)
		if err != nil {
			err = annotate(err, name, componentPath)
			p.logger.Warn(ctx, err, "packaging failed", "component", name)
		}
		tracing.End(span, err)
	}()

	component, err := descriptor.Load(componentPath, p.validator)
	if err != nil {
		return nil, err
	}
	d := component.Descriptor
	name = d.Name

	if err := validation.CheckComponentName(d.Name); err != nil {
		return nil, err
	}

	resolved := p.resolver.Resolve(d.TemplateType())
	templateLabel = resolved.CanonicalType
	span.SetAttributes(
		attribute.String("ocpack.component", d.Name),
		attribute.String("ocpack.compiler", resolved.CompilerID),
	)

	c, err := p.compilers.Resolve(resolved)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(componentPath, p.outputDir)
	if err := os.RemoveAll(out); err != nil {
		return nil, errors.FileOperation("clear package directory", out, err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errors.FileOperation("create package directory", out, err)
	}

	compiled, err := c.Compile(ctx, compiler.Request{
		ComponentPath: componentPath,
		OutputPath:    out,
		Descriptor:    d,
		Template:      resolved,
	})
	if err != nil {
		return nil, errors.CompileFailed(d.Name, resolved.CompilerID, err).WithPath(componentPath)
	}

	manifest := p.manifest(d, compiled)
	data, err := component.Derive(manifest)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "encode derived manifest", err)
	}
	manifestPath := filepath.Join(out, descriptor.FileName)
	if err := os.WriteFile(manifestPath, append(data, '\n'), 0o644); err != nil {
		return nil, errors.FileOperation("write derived manifest", manifestPath, err)
	}

	pc = &PackagedComponent{
		Name:        d.Name,
		Version:     d.Version,
		SourcePath:  componentPath,
		PackagePath: out,
		Template:    resolved,
		Manifest:    manifest,
		Duration:    time.Since(start),
		Descriptor:  d,
	}
	p.logger.Info(ctx, "component packaged",
		"component", d.Name, "version", d.Version, "compiler", resolved.CompilerID,
		"duration", pc.Duration.Round(time.Millisecond).String())
	return pc, nil
}

func (p *Packager) manifest(d *descriptor.Descriptor, out *compiler.Output) descriptor.OC {
	files := descriptor.Files{
		Template: descriptor.TemplateFile{
			Src:     out.View.Src,
			Type:    out.View.Type,
			HashKey: out.View.HashKey,
		},
		Static: out.Static,
	}
	if out.DataProvider != nil {
		files.DataProvider = &descriptor.DataProviderFile{
			Src:     out.DataProvider.Src,
			Type:    out.DataProvider.Type,
			HashKey: out.DataProvider.HashKey,
		}
	}

	return descriptor.OC{
		Files:      files,
		Parameters: d.OC.Parameters,
		Packaged:   true,
		Date:       p.now().UnixMilli(),
		Version:    p.toolVersion,
	}
}

// annotate attaches the component identity to pipeline errors.
func annotate(err error, name, path string) error {
	pe, ok := errors.As(err)
	if !ok {
		return err
	}
	if pe.Component == "" {
		pe.Component = name
	}
	if pe.Path == "" {
		pe.Path = path
	}
	return pe
}
