package services

import (
	"context"
	"time"

	"github.com/conneroisu/ocpack/internal/discovery"
	"github.com/conneroisu/ocpack/internal/npm"
	"github.com/conneroisu/ocpack/internal/watcher"
)

// WatchService repackages components when their sources change.
type WatchService struct {
	container *Container
}

// NewWatchService creates a new watch service
func NewWatchService(c *Container) *WatchService {
	return &WatchService{container: c}
}

// WatchOptions contains options for watching
type WatchOptions struct {
	Root     string
	Debounce time.Duration
	// Ready, when set, is called once the watcher is running.
	Ready func()
}

// Watch packages everything once, then repackages changed components until
// ctx is cancelled. Packaging failures are logged and never end the watch.
func (s *WatchService) Watch(ctx context.Context, opts WatchOptions) error {
	c := s.container
	root := opts.Root
	if root == "" {
		root = c.Config.Components.Root
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = watcher.DefaultDebounce
	}

	fw, err := watcher.NewFileWatcher(debounce,
		watcher.WithLogger(c.Logger),
		watcher.WithSkipDirs(c.Config.Package.OutputDir, discovery.PackageDir, npm.ModulesDir),
	)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddHandler(watcher.Repackage(root, c.Packager, c.Logger))

	if err := fw.AddRecursive(root); err != nil {
		return err
	}

	if _, err := NewPackageService(c).Package(ctx, PackageOptions{Root: root}); err != nil {
		c.Logger.Warn(ctx, err, "Initial packaging had failures")
	}

	if err := fw.Start(ctx); err != nil {
		return err
	}
	c.Logger.Info(ctx, "Watching components", "root", root, "debounce", debounce)
	if opts.Ready != nil {
		opts.Ready()
	}

	<-ctx.Done()
	return nil
}
