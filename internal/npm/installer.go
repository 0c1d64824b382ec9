// Package npm runs the npm package manager to initialise component manifests
// and install dependencies.
//
// Every call starts exactly one child process and blocks on a single
// outcome: success, spawn failure, non-zero exit or cancellation. Results
// are derived from the inputs and never parsed from npm's output.
package npm

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/metrics"
	"github.com/conneroisu/ocpack/internal/validation"
)

// ModulesDir is the directory npm installs packages into.
const ModulesDir = "node_modules"

// DefaultBinary is the package manager executable.
const DefaultBinary = "npm"

// DefaultWaitDelay bounds how long a killed or exited npm may hold its
// output pipes open through child processes before Wait gives up on them.
const DefaultWaitDelay = 5 * time.Second

// AllowedBinaries are the executables the installer agrees to run.
var AllowedBinaries = map[string]bool{
	"npm":     true,
	"npm.cmd": true,
}

// ExecCommandFunc builds the command for one invocation.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// InitOptions configures Init.
type InitOptions struct {
	TargetPath string
	Silent     bool
}

// InstallOptions configures InstallOne and InstallMany.
type InstallOptions struct {
	TargetPath string
	IsDev      bool
	// Save persists the dependency to the manifest with an exact version.
	Save   bool
	Silent bool
}

// InstallResult is where one dependency was installed.
type InstallResult struct {
	Dest string `json:"dest"`
}

// Installer wraps the npm binary.
type Installer struct {
	binary      string
	execCommand ExecCommandFunc
	waitDelay   time.Duration
	stdout      io.Writer
	stderr      io.Writer
	logger      logging.Logger
	metrics     *metrics.Metrics
}

// Option configures an Installer.
type Option func(*Installer)

// WithBinary sets the executable name.
func WithBinary(binary string) Option {
	return func(i *Installer) {
		if binary != "" {
			i.binary = binary
		}
	}
}

// WithExecCommand replaces process creation, mainly for tests.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(i *Installer) {
		if fn != nil {
			i.execCommand = fn
		}
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(i *Installer) {
		if d > 0 {
			i.waitDelay = d
		}
	}
}

// WithOutput sets where non-silent child output goes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(i *Installer) {
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics records each invocation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Installer) {
		i.metrics = m
	}
}

// NewInstaller creates an installer for the npm binary.
func NewInstaller(opts ...Option) *Installer {
	i := &Installer{
		binary:      DefaultBinary,
		execCommand: exec.CommandContext,
		waitDelay:   DefaultWaitDelay,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.WithComponent("npm")
	return i
}

// InitArgs is the argument vector of Init.
func InitArgs() []string {
	return []string{"init", "--yes", "--no-package-lock"}
}

// InstallArgs is the argument vector of an install of deps.
func InstallArgs(deps []string, opts InstallOptions) []string {
	args := []string{"install", "--prefix", opts.TargetPath}
	if opts.Save {
		args = append(args, "--save-exact")
		if opts.IsDev {
			args = append(args, "--save-dev")
		} else {
			args = append(args, "--save")
		}
	}
	args = append(args, deps...)
	return append(args, "--no-package-lock")
}

// PackageName strips the version qualifier from a dependency spec, keeping
// the scope of scoped packages.
func PackageName(spec string) string {
	start := 0
	if strings.HasPrefix(spec, "@") {
		start = 1
	}
	if at := strings.Index(spec[start:], "@"); at >= 0 {
		return spec[:start+at]
	}
	return spec
}

// Dest is the directory a dependency is installed into.
func Dest(targetPath, spec string) string {
	return filepath.Join(targetPath, ModulesDir, filepath.FromSlash(PackageName(spec)))
}

// Init creates a package.json in opts.TargetPath without a lockfile.
func (i *Installer) Init(ctx context.Context, opts InitOptions) error {
	if opts.TargetPath == "" {
		return errors.InvalidArgument("target path", "cannot be empty", opts.TargetPath)
	}
	return i.run(ctx, opts.TargetPath, InitArgs(), opts.Silent)
}

// InstallOne installs a single dependency.
func (i *Installer) InstallOne(ctx context.Context, dep string, opts InstallOptions) (*InstallResult, error) {
	results, err := i.InstallMany(ctx, []string{dep}, opts)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// InstallMany installs deps in one invocation. Results follow input order.
func (i *Installer) InstallMany(ctx context.Context, deps []string, opts InstallOptions) ([]InstallResult, error) {
	if opts.TargetPath == "" {
		return nil, errors.InvalidArgument("target path", "cannot be empty", opts.TargetPath)
	}
	if len(deps) == 0 {
		return nil, errors.InvalidArgument("dependencies", "at least one dependency is required", deps)
	}
	for _, dep := range deps {
		if err := validation.ValidateDependency(dep); err != nil {
			return nil, errors.InvalidArgument("dependency", err.Error(), dep)
		}
	}

	if err := i.run(ctx, opts.TargetPath, InstallArgs(deps, opts), opts.Silent); err != nil {
		return nil, err
	}

	results := make([]InstallResult, len(deps))
	for n, dep := range deps {
		results[n] = InstallResult{Dest: Dest(opts.TargetPath, dep)}
	}
	return results, nil
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeSpawn
	outcomeExit
	outcomeCancelled
)

// outcome is the single terminal event of a child process.
type outcome struct {
	kind     outcomeKind
	exitCode int
	err      error
}

func (i *Installer) run(ctx context.Context, dir string, args []string, silent bool) error {
	if err := validation.ValidateCommand(i.binary, AllowedBinaries); err != nil {
		return errors.ProcessSpawn(i.binary, args, err)
	}

	perf := logging.StartOperation(i.logger, "npm "+args[0])

	cmd := i.execCommand(ctx, i.binary, args...)
	cmd.Dir = dir
	cmd.WaitDelay = i.waitDelay
	if !silent {
		cmd.Stdout = i.stdout
		cmd.Stderr = i.stderr
	}

	o := <-i.start(ctx, cmd)

	var err error
	switch o.kind {
	case outcomeSpawn:
		err = errors.ProcessSpawn(i.binary, args, o.err).WithPath(dir)
	case outcomeExit:
		err = errors.ProcessExit(i.binary, args, o.exitCode).WithPath(dir)
	case outcomeCancelled:
		err = errors.ProcessCancelled(i.binary, args, o.err).WithPath(dir)
	}

	i.metrics.ObserveNPM(args[0], err)
	if err != nil {
		perf.EndWithError(ctx, err, "dir", dir)
		return err
	}
	perf.End(ctx, "dir", dir)
	return nil
}

// start launches cmd and delivers its outcome on a buffered channel.
func (i *Installer) start(ctx context.Context, cmd *exec.Cmd) <-chan outcome {
	done := make(chan outcome, 1)

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			done <- outcome{kind: outcomeCancelled, err: ctx.Err()}
		} else {
			done <- outcome{kind: outcomeSpawn, err: err}
		}
		return done
	}

	go func() {
		done <- classify(ctx, cmd.Wait())
	}()
	return done
}

func classify(ctx context.Context, err error) outcome {
	if err == nil {
		return outcome{kind: outcomeSuccess}
	}
	if ctx.Err() != nil {
		return outcome{kind: outcomeCancelled, err: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return outcome{kind: outcomeExit, exitCode: exitErr.ExitCode(), err: err}
	}
	return outcome{kind: outcomeSpawn, err: err}
}
