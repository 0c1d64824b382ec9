// Package scaffolding creates new components on disk.
//
// Init builds the component in a hidden temporary directory next to the
// destination and renames it into place only when every stage succeeded, so
// an interrupted or failed init never leaves a half-written component. The
// destination is claimed up front as an empty directory, so two inits of the
// same name cannot both succeed.
package scaffolding

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/conneroisu/ocpack/internal/compiler"
	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/npm"
	"github.com/conneroisu/ocpack/internal/templates"
	"github.com/conneroisu/ocpack/internal/validation"
)

// DefaultVersion is written when npm init left no version behind.
const DefaultVersion = "1.0.0"

// StaticDir is the starter static asset directory.
const StaticDir = "img"

// Installer is the part of npm.Installer the scaffolder needs.
type Installer interface {
	Init(ctx context.Context, opts npm.InitOptions) error
	InstallOne(ctx context.Context, dep string, opts npm.InstallOptions) (*npm.InstallResult, error)
}

// CompilerVerifier confirms that a compiler package is published.
type CompilerVerifier interface {
	Verify(ctx context.Context, resolved templates.ResolvedTemplate) error
}

// InitRequest describes the component to create.
type InitRequest struct {
	Name         string
	TemplateType string
	ParentDir    string
	Silent       bool
}

// InitResult reports what Init created.
type InitResult struct {
	Path     string                     `json:"path"`
	Template templates.ResolvedTemplate `json:"template"`
	Compiler string                     `json:"compiler_path"`
	Files    []string                   `json:"files"`
	Duration time.Duration              `json:"duration"`
}

// Scaffolder creates components.
type Scaffolder struct {
	installer Installer
	verifier  CompilerVerifier
	resolver  *templates.Resolver
	compilers *compiler.Registry
	logger    logging.Logger
}

// Option configures a Scaffolder.
type Option func(*Scaffolder)

// WithVerifier checks the compiler package in the npm registry before any
// file is written.
func WithVerifier(v CompilerVerifier) Option {
	return func(s *Scaffolder) { s.verifier = v }
}

// WithResolver sets the template resolver.
func WithResolver(r *templates.Resolver) Option {
	return func(s *Scaffolder) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithCompilers sets the registry used to reject unknown template types.
func WithCompilers(r *compiler.Registry) Option {
	return func(s *Scaffolder) {
		if r != nil {
			s.compilers = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Scaffolder) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScaffolder creates a scaffolder that runs npm through installer.
func NewScaffolder(installer Installer, opts ...Option) *Scaffolder {
	s := &Scaffolder{
		installer: installer,
		resolver:  templates.NewResolver(),
		compilers: compiler.DefaultRegistry(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("scaffolding")
	return s
}

// Init creates ParentDir/Name from the requested template.
func (s *Scaffolder) Init(ctx context.Context, req InitRequest) (*InitResult, error) {
	start := time.Now()

	if err := validation.CheckComponentName(req.Name); err != nil {
		return nil, err
	}

	resolved := s.resolver.Resolve(req.TemplateType)
	if _, err := s.compilers.Resolve(resolved); err != nil {
		return nil, err
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, resolved); err != nil {
			return nil, err
		}
	}

	parent := req.ParentDir
	if parent == "" {
		parent = "."
	}
	dest := filepath.Join(parent, req.Name)
	if _, err := os.Lstat(dest); err == nil {
		return nil, errors.FileOperation("create component", dest, fs.ErrExist).WithComponent(req.Name)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, errors.FileOperation("create parent directory", parent, err)
	}
	// The empty directory reserves dest until the staged tree replaces it.
	if err := os.Mkdir(dest, 0o755); err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			err = fs.ErrExist
		}
		return nil, errors.FileOperation("create component", dest, err).WithComponent(req.Name)
	}
	placed := false
	defer func() {
		if !placed {
			_ = os.Remove(dest)
		}
	}()

	perf := logging.StartOperation(s.logger, "init "+req.Name)

	tmp, err := os.MkdirTemp(parent, "."+req.Name+"-init-*")
	if err != nil {
		return nil, errors.FileOperation("create staging directory", parent, err)
	}
	defer os.RemoveAll(tmp)

	// npm init derives the package name from the directory name.
	work := filepath.Join(tmp, req.Name)
	if err := os.Mkdir(work, 0o755); err != nil {
		return nil, errors.FileOperation("create staging directory", work, err)
	}

	result, err := s.build(ctx, work, req, resolved)
	if err != nil {
		perf.EndWithError(ctx, err, "component", req.Name)
		return nil, annotate(err, req.Name)
	}

	if err := os.Rename(work, dest); err != nil {
		err = errors.FileOperation("move component into place", dest, err).WithComponent(req.Name)
		perf.EndWithError(ctx, err, "component", req.Name)
		return nil, err
	}
	placed = true

	result.Path = dest
	result.Compiler = npm.Dest(dest, resolved.CompilerID)
	result.Duration = time.Since(start)
	perf.End(ctx, "component", req.Name, "template", resolved.CanonicalType)
	return result, nil
}

func (s *Scaffolder) build(ctx context.Context, work string, req InitRequest, resolved templates.ResolvedTemplate) (*InitResult, error) {
	if err := s.installer.Init(ctx, npm.InitOptions{TargetPath: work, Silent: true}); err != nil {
		return nil, err
	}

	_, err := s.installer.InstallOne(ctx, resolved.CompilerID, npm.InstallOptions{
		TargetPath: work,
		IsDev:      true,
		Save:       true,
		Silent:     req.Silent,
	})
	if err != nil {
		return nil, err
	}

	kind := ""
	if k, ok := compiler.KindOf(resolved.CanonicalType); ok {
		kind = k.Name
	}
	starter := StarterFor(kind)

	manifestPath := filepath.Join(work, descriptor.FileName)
	tc := TemplateContext{
		Name:         req.Name,
		Title:        Title(req.Name),
		TemplateType: resolved.CanonicalType,
		CompilerID:   resolved.CompilerID,
		Version:      existingVersion(manifestPath),
	}

	if err := renderFile(filepath.Join(work, starter.ViewFile), starter.View, tc); err != nil {
		return nil, err
	}
	if err := renderFile(filepath.Join(work, compiler.ServerFile), starter.Server, tc); err != nil {
		return nil, err
	}
	keep := filepath.Join(work, StaticDir, ".gitkeep")
	if err := os.MkdirAll(filepath.Dir(keep), 0o755); err != nil {
		return nil, errors.FileOperation("create static directory", filepath.Dir(keep), err)
	}
	if err := os.WriteFile(keep, nil, 0o644); err != nil {
		return nil, errors.FileOperation("write file", keep, err)
	}

	d := &descriptor.Descriptor{
		Name:    req.Name,
		Version: tc.Version,
		OC: descriptor.OC{
			Files: descriptor.Files{
				Template:     descriptor.TemplateFile{Src: starter.ViewFile, Type: resolved.CanonicalType},
				DataProvider: &descriptor.DataProviderFile{Src: compiler.ServerFile},
				Static:       []string{StaticDir},
			},
			Parameters: map[string]descriptor.Parameter{
				"name": {Type: "string", Description: "Who to greet", Example: "World"},
			},
		},
	}
	if err := descriptor.Merge(manifestPath, d); err != nil {
		return nil, err
	}

	return &InitResult{
		Template: resolved,
		Files: []string{
			descriptor.FileName,
			starter.ViewFile,
			compiler.ServerFile,
			StaticDir + "/.gitkeep",
		},
	}, nil
}

// existingVersion reads the version npm init wrote, if any.
func existingVersion(manifestPath string) string {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return DefaultVersion
	}
	var m struct {
		Version string `json:"version"`
	}
	if json.Unmarshal(data, &m) != nil || m.Version == "" {
		return DefaultVersion
	}
	return m.Version
}

// renderFile executes a starter template into filename.
func renderFile(filename, content string, tc TemplateContext) error {
	tmpl, err := template.New(filepath.Base(filename)).Delims(leftDelim, rightDelim).Parse(content)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternal, "parse starter template", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.FileOperation("create file", filename, err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, tc); err != nil {
		return errors.FileOperation("render file", filename, err)
	}
	return nil
}

func annotate(err error, name string) error {
	if pe, ok := errors.As(err); ok && pe.Component == "" {
		pe.Component = name
	}
	return err
}
