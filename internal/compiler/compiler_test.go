package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/ocpack/internal/descriptor"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/templates"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{
		"oc-template-es6-compiler",
		"oc-template-handlebars-compiler",
		"oc-template-jade-compiler",
	}, r.IDs())

	_, err := r.Lookup("oc-template-jade-compiler")
	assert.NoError(t, err)
}

func TestLookupUnknown(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Lookup("oc-template-react-compiler")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTemplateInvalid))
	assert.False(t, stderrors.Is(err, errors.ErrNameInvalid))

	_, err = r.Resolve(templates.NewResolver().Resolve("vue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"vue"`)
}

func TestRegisterFunc(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("custom-compiler", Func(func(ctx context.Context, req Request) (*Output, error) {
		called = true
		return &Output{View: Artifact{Src: "template.js"}}, nil
	}))

	c, err := r.Lookup("custom-compiler")
	require.NoError(t, err)
	out, err := c.Compile(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "template.js", out.View.Src)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf("oc-template-handlebars")
	require.True(t, ok)
	assert.Equal(t, "template.hbs", kind.ViewFile)

	_, ok = KindOf("handlebars")
	assert.False(t, ok)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestStaticCompilerCompile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	writeFile(t, filepath.Join(src, "view.hbs"), "<h1>{{title}}</h1>")
	writeFile(t, filepath.Join(src, "data.js"), "module.exports.data = () => {}")
	writeFile(t, filepath.Join(src, "img", "logo.svg"), "<svg/>")
	writeFile(t, filepath.Join(src, "img", ".hidden"), "x")

	d := &descriptor.Descriptor{
		Name: "header",
		OC: descriptor.OC{Files: descriptor.Files{
			Template:     descriptor.TemplateFile{Src: "view.hbs", Type: "handlebars"},
			DataProvider: &descriptor.DataProviderFile{Src: "data.js"},
			Static:       []string{"img"},
		}},
	}

	res, err := NewStaticCompiler(".hbs").Compile(context.Background(), Request{
		ComponentPath: src,
		OutputPath:    out,
		Descriptor:    d,
		Template:      templates.NewResolver().Resolve("handlebars"),
	})
	require.NoError(t, err)

	assert.Equal(t, Artifact{Src: "template.hbs", Type: "oc-template-handlebars", HashKey: sum("<h1>{{title}}</h1>")}, res.View)
	require.NotNil(t, res.DataProvider)
	assert.Equal(t, "server.js", res.DataProvider.Src)
	assert.Equal(t, descriptor.DataProviderType, res.DataProvider.Type)
	assert.Equal(t, sum("module.exports.data = () => {}"), res.DataProvider.HashKey)
	assert.Equal(t, []string{"img"}, res.Static)

	assert.FileExists(t, filepath.Join(out, "template.hbs"))
	assert.FileExists(t, filepath.Join(out, "server.js"))
	assert.FileExists(t, filepath.Join(out, "img", "logo.svg"))
	assert.FileExists(t, filepath.Join(out, "img", ".hidden"))
}

func TestStaticCompilerRejectsEscapingSource(t *testing.T) {
	d := &descriptor.Descriptor{
		OC: descriptor.OC{Files: descriptor.Files{
			Template: descriptor.TemplateFile{Src: "../secret.hbs", Type: "handlebars"},
		}},
	}

	_, err := NewStaticCompiler("").Compile(context.Background(), Request{
		ComponentPath: t.TempDir(),
		OutputPath:    t.TempDir(),
		Descriptor:    d,
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
}

func TestStaticCompilerMissingView(t *testing.T) {
	d := &descriptor.Descriptor{
		OC: descriptor.OC{Files: descriptor.Files{
			Template: descriptor.TemplateFile{Src: "missing.jade", Type: "jade"},
		}},
	}

	_, err := NewStaticCompiler("").Compile(context.Background(), Request{
		ComponentPath: t.TempDir(),
		OutputPath:    t.TempDir(),
		Descriptor:    d,
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIO))
}
