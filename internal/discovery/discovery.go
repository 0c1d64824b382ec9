// Package discovery finds component directories under a components root.
//
// A components root's immediate children are candidate components. A child
// is a component when it holds a package.json with an "oc" block, or a
// package.json that does not parse at all so the packager can report it.
package discovery

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/npm"
)

// PackageDir is the directory packaging writes inside a component.
const PackageDir = "_package"

// Discoverer walks one components root.
type Discoverer struct {
	root string
	only map[string]struct{}
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithOnly restricts discovery to the named components.
func WithOnly(names ...string) Option {
	return func(d *Discoverer) {
		if len(names) == 0 {
			return
		}
		d.only = make(map[string]struct{}, len(names))
		for _, name := range names {
			d.only[name] = struct{}{}
		}
	}
}

// New creates a discoverer for root.
func New(root string, opts ...Option) *Discoverer {
	d := &Discoverer{root: root}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// All yields component directories in lexical order. Each range re-reads
// the root. An unreadable root yields one IOError and stops.
func (d *Discoverer) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		entries, err := os.ReadDir(d.root)
		if err != nil {
			yield("", errors.FileOperation("read components root", d.root, err))
			return
		}

		rootReal, err := filepath.EvalSymlinks(d.root)
		if err != nil {
			yield("", errors.FileOperation("resolve components root", d.root, err))
			return
		}

		for _, entry := range entries {
			name := entry.Name()
			if d.skipName(name) {
				continue
			}

			path := filepath.Join(d.root, name)
			if !d.isDirectory(entry, path, rootReal) {
				continue
			}
			if !isComponent(path) {
				continue
			}

			if !yield(path, nil) {
				return
			}
		}
	}
}

// List collects All into a slice.
func (d *Discoverer) List() ([]string, error) {
	var paths []string
	for path, err := range d.All() {
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (d *Discoverer) skipName(name string) bool {
	if strings.HasPrefix(name, ".") || name == npm.ModulesDir || name == PackageDir {
		return true
	}
	if d.only != nil {
		_, keep := d.only[name]
		return !keep
	}
	return false
}

// isDirectory follows symlinks unless they point at the root or one of its
// ancestors.
func (d *Discoverer) isDirectory(entry os.DirEntry, path, rootReal string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	if isAncestor(target, rootReal) {
		return false
	}

	info, err := os.Stat(target)
	return err == nil && info.IsDir()
}

// isAncestor reports whether dir is path or one of path's parents.
func isAncestor(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || !slices.Contains(strings.Split(filepath.ToSlash(rel), "/"), "..")
}

func isComponent(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, descriptor.FileName))
	if err != nil {
		return false
	}

	var manifest struct {
		OC json.RawMessage `json:"oc"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return true
	}
	return len(manifest.OC) > 0 && string(manifest.OC) != "null"
}
