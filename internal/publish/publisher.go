// Package publish packages a component, compresses it and hands the archive
// to a consumer.
//
// The temporary archive is always removed after consumption, whether or not
// the consumer succeeded. A cleanup failure is recorded on the Result and
// logged; it never replaces the outcome of the publish itself.
package publish

import (
	"archive/tar"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/conneroisu/ocpack/internal/archive"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/packager"
	"github.com/conneroisu/ocpack/internal/tracing"
)

// Packager is the part of packager.Packager the publisher needs.
type Packager interface {
	PackageOne(ctx context.Context, componentPath string) (*packager.PackagedComponent, error)
}

// Result reports one publish.
type Result struct {
	Component   *packager.PackagedComponent `json:"component"`
	ArchivePath string                      `json:"archive_path"`
	Location    string                      `json:"location,omitempty"`
	Entries     []string                    `json:"entries,omitempty"`
	CleanupErr  error                       `json:"-"`
}

// Publisher runs package, compress, consume and cleanup.
type Publisher struct {
	packager   Packager
	compressor *archive.Compressor
	consumer   Consumer
	tempDir    string
	dryRun     bool
	logger     logging.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTempDir sets where archives are staged. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(p *Publisher) { p.tempDir = dir }
}

// WithDryRun lists archive entries instead of consuming the archive.
func WithDryRun(dryRun bool) Option {
	return func(p *Publisher) { p.dryRun = dryRun }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a publisher.
func NewPublisher(pkg Packager, compressor *archive.Compressor, consumer Consumer, opts ...Option) *Publisher {
	p := &Publisher{
		packager:   pkg,
		compressor: compressor,
		consumer:   consumer,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("publish")
	return p
}

// Publish packages componentPath and delivers its archive.
func (p *Publisher) Publish(ctx context.Context, componentPath string) (_ *Result, err error) {
	ctx, span := tracing.Start(ctx, "publish", "publish.Publish",
		attribute.String("ocpack.component_path", componentPath))
	defer func() { tracing.End(span, err) }()

	pc, err := p.packager.PackageOne(ctx, componentPath)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ocpack.component", pc.Name),
		attribute.String("ocpack.version", pc.Version),
	)

	stage, err := os.MkdirTemp(p.tempDir, "ocpack-publish-*")
	if err != nil {
		return nil, errors.FileOperation("create staging directory", p.tempDir, err)
	}
	defer os.Remove(stage)

	result := &Result{
		Component:   pc,
		ArchivePath: filepath.Join(stage, fmt.Sprintf("%s-%s.tar.gz", pc.Name, pc.Version)),
	}

	if err := p.compressor.Compress(ctx, pc.PackagePath, result.ArchivePath); err != nil {
		return nil, err
	}

	defer func() {
		result.CleanupErr = archive.Cleanup(result.ArchivePath)
		if result.CleanupErr != nil {
			p.logger.Warn(ctx, result.CleanupErr, "archive cleanup failed",
				"path", result.ArchivePath, "fatal", !archive.IsNonFatal(result.CleanupErr))
		}
	}()

	if p.dryRun {
		headers, err := archive.List(result.ArchivePath)
		if err != nil {
			return nil, err
		}
		result.Entries = entryNames(headers)
		p.logger.Info(ctx, "dry run", "component", pc.Name, "entries", len(result.Entries))
		return result, nil
	}

	location, err := p.consumer.Consume(ctx, result.ArchivePath, pc)
	if err != nil {
		if pe, ok := errors.As(err); ok && pe.Component == "" {
			pe.Component = pc.Name
		}
		return nil, err
	}
	result.Location = location

	p.logger.Info(ctx, "component published",
		"component", pc.Name, "version", pc.Version, "location", location)
	return result, nil
}

func entryNames(headers []*tar.Header) []string {
	names := make([]string, 0, len(headers))
	for _, h := range headers {
		names = append(names, h.Name)
	}
	return names
}
