package services

import (
	"os"
	"path/filepath"

	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/discovery"
)

// ComponentService lists and cleans the components under a root.
type ComponentService struct {
	container *Container
}

// NewComponentService creates a new component service
func NewComponentService(c *Container) *ComponentService {
	return &ComponentService{container: c}
}

// ComponentInfo describes one discovered component.
type ComponentInfo struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	Compiler string `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	Legacy   bool   `json:"legacy,omitempty" yaml:"legacy,omitempty"`
	Packaged bool   `json:"packaged" yaml:"packaged"`
	Path     string `json:"path" yaml:"path"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s *ComponentService) discoverer(root string, only []string) *discovery.Discoverer {
	if root == "" {
		root = s.container.Config.Components.Root
	}
	if len(only) == 0 {
		only = s.container.Config.Components.Only
	}
	return discovery.New(root, discovery.WithOnly(only...))
}

// List describes every component under root. A component whose manifest
// does not load is listed with its error rather than failing the listing.
func (s *ComponentService) List(root string, only []string) ([]ComponentInfo, error) {
	c := s.container
	paths, err := s.discoverer(root, only).List()
	if err != nil {
		return nil, err
	}

	infos := make([]ComponentInfo, 0, len(paths))
	for _, path := range paths {
		info := ComponentInfo{Name: filepath.Base(path), Path: path}

		comp, err := descriptor.Load(path, c.Validator)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}

		d := comp.Descriptor
		resolved := c.Resolver.Resolve(d.TemplateType())
		info.Name = d.Name
		info.Version = d.Version
		info.Template = resolved.CanonicalType
		info.Compiler = resolved.CompilerID
		info.Legacy = resolved.IsLegacyAlias

		_, statErr := os.Stat(filepath.Join(path, c.Config.Package.OutputDir, descriptor.FileName))
		info.Packaged = statErr == nil

		infos = append(infos, info)
	}
	return infos, nil
}

// CleanTargets returns the node_modules directories Clean would remove.
func (s *ComponentService) CleanTargets(root string, only []string) ([]string, error) {
	return s.discoverer(root, only).NodeModules()
}

// Clean removes dirs, normally the result of CleanTargets.
func (s *ComponentService) Clean(dirs []string) error {
	return discovery.Remove(dirs)
}
