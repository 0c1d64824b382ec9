package watcher

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/conneroisu/ocpack/internal/discovery"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/packager"
)

// BatchPackager packages a set of component directories.
type BatchPackager interface {
	PackageMany(ctx context.Context, paths []string) *packager.BatchResult
}

// ComponentNames maps changed paths to the names of the root's children
// that contain them. Paths outside root and changes to root itself are
// ignored. Names are sorted and unique.
func ComponentNames(root string, events []ChangeEvent) []string {
	var names []string
	for _, event := range events {
		rel, err := filepath.Rel(root, event.Path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		name, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Repackage returns a handler that repackages every component touched by a
// batch. Components are re-discovered so deleted or non-component
// directories drop out. A batch with failures is logged, not returned, so
// the watch keeps running.
func Repackage(root string, p BatchPackager, logger logging.Logger) ChangeHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, events []ChangeEvent) error {
		names := ComponentNames(root, events)
		if len(names) == 0 {
			return nil
		}

		paths, err := discovery.New(root, discovery.WithOnly(names...)).List()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			logger.Debug(ctx, "Changes outside any component", "names", names)
			return nil
		}

		logger.Info(ctx, "Repackaging", "components", len(paths), "events", len(events))
		result := p.PackageMany(ctx, paths)
		for _, failed := range result.Failed() {
			logger.Warn(ctx, failed.Err, "Repackage failed", "path", failed.Path)
		}
		return nil
	}
}
