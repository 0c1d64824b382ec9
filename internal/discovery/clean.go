package discovery

import (
	"os"
	"path/filepath"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/npm"
)

// NodeModules returns the existing node_modules directories of the
// discovered components.
func (d *Discoverer) NodeModules() ([]string, error) {
	var dirs []string
	for component, err := range d.All() {
		if err != nil {
			return nil, err
		}
		dir := filepath.Join(component, npm.ModulesDir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// Remove deletes dirs, stopping at the first failure.
func Remove(dirs []string) error {
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return errors.FileOperation("remove", dir, err)
		}
	}
	return nil
}
