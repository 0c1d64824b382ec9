package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/templates"
)

// Kind is a template family the built-in compilers understand.
type Kind struct {
	Name     string
	ViewFile string
}

var builtinKinds = []struct {
	name string
	ext  string
}{
	{"handlebars", ".hbs"},
	{"jade", ".jade"},
	{"es6", ".js"},
}

// KindOf returns the built-in kind for a canonical template type.
func KindOf(canonicalType string) (Kind, bool) {
	for _, k := range builtinKinds {
		if canonicalType == templates.CanonicalPrefix+k.name {
			return Kind{Name: k.name, ViewFile: "template" + k.ext}, true
		}
	}
	return Kind{}, false
}

// ServerFile is the packaged name of the data provider.
const ServerFile = "server.js"

// StaticCompiler packages sources without transforming them: the view is
// copied to template<ext>, the data provider to server.js and static
// directories under their own names. Hash keys are SHA-256 of the copied
// bytes.
type StaticCompiler struct {
	ext string
}

// NewStaticCompiler returns a compiler whose packaged view keeps ext.
func NewStaticCompiler(ext string) *StaticCompiler {
	return &StaticCompiler{ext: ext}
}

// Compile implements Compiler.
func (c *StaticCompiler) Compile(ctx context.Context, req Request) (*Output, error) {
	files := req.Descriptor.OC.Files

	viewSrc, err := sourcePath(req.ComponentPath, files.Template.Src)
	if err != nil {
		return nil, err
	}

	ext := c.ext
	if ext == "" {
		ext = filepath.Ext(viewSrc)
	}
	viewName := "template" + ext

	hash, err := copyHashed(viewSrc, filepath.Join(req.OutputPath, viewName))
	if err != nil {
		return nil, err
	}

	out := &Output{
		View: Artifact{Src: viewName, Type: req.Template.CanonicalType, HashKey: hash},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if files.DataProvider != nil && files.DataProvider.Src != "" {
		serverSrc, err := sourcePath(req.ComponentPath, files.DataProvider.Src)
		if err != nil {
			return nil, err
		}
		hash, err := copyHashed(serverSrc, filepath.Join(req.OutputPath, ServerFile))
		if err != nil {
			return nil, err
		}
		out.DataProvider = &Artifact{Src: ServerFile, Type: descriptor.DataProviderType, HashKey: hash}
	}

	for _, dir := range files.Static {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := sourcePath(req.ComponentPath, dir)
		if err != nil {
			return nil, err
		}
		if err := os.CopyFS(filepath.Join(req.OutputPath, filepath.Clean(dir)), os.DirFS(src)); err != nil {
			return nil, errors.FileOperation("copy static", src, err)
		}
		out.Static = append(out.Static, filepath.ToSlash(filepath.Clean(dir)))
	}

	return out, nil
}

// sourcePath joins rel onto root, refusing paths that escape it.
func sourcePath(root, rel string) (string, error) {
	if rel == "" || !filepath.IsLocal(rel) {
		return "", errors.InvalidArgument("source path", fmt.Sprintf("%q must be relative to the component", rel), rel)
	}
	return filepath.Join(root, rel), nil
}

func copyHashed(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", errors.FileOperation("open source", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", errors.FileOperation("create artifact", dst, err)
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return "", errors.FileOperation("copy artifact", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", errors.FileOperation("close artifact", dst, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
