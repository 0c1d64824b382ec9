package services

import (
	"context"
	"os"
	"path/filepath"

	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/npm"
)

// InstallService installs npm dependencies into a component.
type InstallService struct {
	container *Container
}

// NewInstallService creates a new install service
func NewInstallService(c *Container) *InstallService {
	return &InstallService{container: c}
}

// InstallOptions contains options for installing dependencies
type InstallOptions struct {
	Dev    bool
	Save   bool
	Silent bool
}

// Install runs one npm install for deps inside the component at
// componentPath, which must hold a package.json.
func (s *InstallService) Install(ctx context.Context, componentPath string, deps []string, opts InstallOptions) ([]npm.InstallResult, error) {
	manifest := filepath.Join(componentPath, descriptor.FileName)
	if _, err := os.Stat(manifest); err != nil {
		return nil, errors.FileOperation("read descriptor", manifest, err)
	}

	ctx, cancel := s.container.npmContext(ctx)
	defer cancel()

	return s.container.Installer.InstallMany(ctx, deps, npm.InstallOptions{
		TargetPath: componentPath,
		IsDev:      opts.Dev,
		Save:       opts.Save,
		Silent:     opts.Silent,
	})
}
