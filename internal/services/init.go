package services

import (
	"context"

	"github.com/conneroisu/ocpack/internal/scaffolding"
)

// InitService creates new components.
type InitService struct {
	container *Container
}

// NewInitService creates a new initialization service
func NewInitService(c *Container) *InitService {
	return &InitService{container: c}
}

// InitOptions contains options for component initialization
type InitOptions struct {
	Name           string
	TemplateType   string
	Dir            string
	Silent         bool
	VerifyRegistry bool
}

// Init scaffolds a component. The compiler package is checked against the
// npm registry first when VerifyRegistry or templates.verify_registry is set.
func (s *InitService) Init(ctx context.Context, opts InitOptions) (*scaffolding.InitResult, error) {
	c := s.container
	scaffoldOpts := []scaffolding.Option{
		scaffolding.WithResolver(c.Resolver),
		scaffolding.WithCompilers(c.Compilers),
		scaffolding.WithLogger(c.Logger),
	}

	if opts.VerifyRegistry || c.Config.Templates.VerifyRegistry {
		checker, err := c.RegistryChecker()
		if err != nil {
			return nil, err
		}
		scaffoldOpts = append(scaffoldOpts, scaffolding.WithVerifier(checker))
	}

	dir := opts.Dir
	if dir == "" {
		dir = c.Config.Components.Root
	}

	ctx, cancel := c.npmContext(ctx)
	defer cancel()

	return scaffolding.NewScaffolder(c.Installer, scaffoldOpts...).Init(ctx, scaffolding.InitRequest{
		Name:         opts.Name,
		TemplateType: opts.TemplateType,
		ParentDir:    dir,
		Silent:       opts.Silent,
	})
}
