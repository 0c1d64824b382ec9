package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/ocpack/internal/discovery"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/metrics"
	"github.com/conneroisu/ocpack/internal/packager"
)

// PackageService packages every component under a root.
type PackageService struct {
	container *Container
}

// NewPackageService creates a new package service
func NewPackageService(c *Container) *PackageService {
	return &PackageService{container: c}
}

// PackageOptions contains options for the package process
type PackageOptions struct {
	Root       string
	Only       []string
	ArchiveDir string
}

// PackageReport contains the result of a package run
type PackageReport struct {
	Batch    *packager.BatchResult `json:"batch"`
	Archives []string              `json:"archives,omitempty"`
	Summary  metrics.Summary       `json:"summary"`
	Duration time.Duration         `json:"duration"`
}

// Package discovers components under the root and packages them. With an
// ArchiveDir every packaged component is also compressed to
// <ArchiveDir>/<name>-<version>.tar.gz. The report is returned alongside
// the joined per-component errors.
func (s *PackageService) Package(ctx context.Context, opts PackageOptions) (*PackageReport, error) {
	c := s.container
	start := time.Now()

	root := opts.Root
	if root == "" {
		root = c.Config.Components.Root
	}
	only := opts.Only
	if len(only) == 0 {
		only = c.Config.Components.Only
	}

	paths, err := discovery.New(root, discovery.WithOnly(only...)).List()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		c.Logger.Info(ctx, "No components found", "root", root)
	}

	report := &PackageReport{Batch: c.Packager.PackageMany(ctx, paths)}
	errs := []error{report.Batch.Err()}

	if opts.ArchiveDir != "" {
		archives, err := s.archive(ctx, opts.ArchiveDir, report.Batch.Succeeded())
		report.Archives = archives
		errs = append(errs, err)
	}

	report.Summary = c.Metrics.Snapshot()
	report.Duration = time.Since(start)
	return report, stderrors.Join(errs...)
}

func (s *PackageService) archive(ctx context.Context, dir string, components []*packager.PackagedComponent) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.FileOperation("create archive directory", dir, err)
	}

	archives := make([]string, 0, len(components))
	var errs []error
	for _, pc := range components {
		dest := filepath.Join(dir, fmt.Sprintf("%s-%s.tar.gz", pc.Name, pc.Version))
		if err := s.container.Compressor.Compress(ctx, pc.PackagePath, dest); err != nil {
			errs = append(errs, err)
			continue
		}
		archives = append(archives, dest)
	}
	return archives, stderrors.Join(errs...)
}
