// Package archive turns a package directory into a gzip-compressed tar and
// removes it once it has been consumed.
//
// Every entry of an archive is rooted under a single prefix ("_package" by
// default) whatever the location of the source directory, so extraction
// always yields one predictable top-level directory.
package archive

import (
	"archive/tar"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/attribute"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/logging"
	"github.com/conneroisu/ocpack/internal/metrics"
	"github.com/conneroisu/ocpack/internal/tracing"
)

// DefaultPrefix is the top-level directory of every archive.
const DefaultPrefix = "_package"

// Compressor writes archives. It holds no per-archive state; concurrent
// compressions of the same source directory must be serialised by the caller.
type Compressor struct {
	prefix  string
	exclude []string
	level   int
	logger  logging.Logger
	metrics *metrics.Metrics
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithPrefix sets the top-level directory name.
func WithPrefix(prefix string) Option {
	return func(c *Compressor) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithExclude skips entries whose slash-separated relative path or base name
// matches one of the globs. Nothing is skipped by default.
func WithExclude(globs ...string) Option {
	return func(c *Compressor) {
		c.exclude = append(c.exclude, globs...)
	}
}

// WithLevel sets the gzip level.
func WithLevel(level int) Option {
	return func(c *Compressor) {
		c.level = level
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Compressor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records archive sizes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Compressor) {
		c.metrics = m
	}
}

// NewCompressor creates a compressor.
func NewCompressor(opts ...Option) *Compressor {
	c := &Compressor{
		prefix: DefaultPrefix,
		level:  gzip.DefaultCompression,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("archive")
	return c
}

// Prefix returns the top-level directory name.
func (c *Compressor) Prefix() string {
	return c.prefix
}

// Compress streams sourceDir into dest. dest is removed if anything fails,
// and skipped when it lies inside sourceDir.
func (c *Compressor) Compress(ctx context.Context, sourceDir, dest string) (err error) {
	ctx, span := tracing.Start(ctx, "archive", "archive.Compress",
		attribute.String("ocpack.source", sourceDir),
		attribute.String("ocpack.archive", dest),
	)
	defer func() { tracing.End(span, err) }()

	info, err := os.Stat(sourceDir)
	if err != nil {
		return errors.FileOperation("stat source", sourceDir, err)
	}
	if !info.IsDir() {
		return errors.InvalidArgument("source", "must be a directory", sourceDir)
	}

	// WalkDir does not descend into a symlinked root, so walk its target.
	root, err := realPath(sourceDir)
	if err != nil {
		return errors.FileOperation("resolve source", sourceDir, err)
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return errors.FileOperation("resolve archive path", dest, err)
	}
	if dir, err := realPath(filepath.Dir(destAbs)); err == nil {
		destAbs = filepath.Join(dir, filepath.Base(destAbs))
	}

	f, err := os.Create(dest)
	if err != nil {
		return errors.FileOperation("create archive", dest, err)
	}

	if err := c.write(ctx, f, root, destAbs); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return errors.FileOperation("close archive", dest, err)
	}

	if st, err := os.Stat(dest); err == nil {
		c.metrics.ObserveArchive(st.Size())
		c.logger.Debug(ctx, "archive written", "path", dest, "bytes", st.Size())
	}
	return nil
}

// realPath returns the absolute path of p with every symlink resolved.
func realPath(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}

func (c *Compressor) write(ctx context.Context, w io.Writer, sourceDir, destAbs string) error {
	gz, err := gzip.NewWriterLevel(w, c.level)
	if err != nil {
		return errors.InvalidArgument("gzip level", err.Error(), c.level)
	}
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.FileOperation("walk", p, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return errors.FileOperation("relativize", p, err)
		}
		rel = filepath.ToSlash(rel)

		if rel != "." {
			if abs, err := filepath.Abs(p); err == nil && abs == destAbs {
				return nil
			}
			if c.excluded(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		return c.addEntry(tw, p, rel, d)
	})
	if walkErr != nil {
		return walkErr
	}

	if err := tw.Close(); err != nil {
		return errors.FileOperation("finish tar", sourceDir, err)
	}
	if err := gz.Close(); err != nil {
		return errors.FileOperation("finish gzip", sourceDir, err)
	}
	return nil
}

func (c *Compressor) addEntry(tw *tar.Writer, p, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return errors.FileOperation("stat", p, err)
	}

	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return errors.FileOperation("read link", p, err)
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return errors.FileOperation("tar header", p, err)
	}
	hdr.Name = EntryName(c.prefix, rel, info.IsDir())
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return errors.FileOperation("write header", p, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return errors.FileOperation("open", p, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return errors.FileOperation("write entry", p, err)
	}
	return nil
}

func (c *Compressor) excluded(rel string) bool {
	base := path.Base(rel)
	for _, glob := range c.exclude {
		if ok, _ := path.Match(glob, rel); ok {
			return true
		}
		if ok, _ := path.Match(glob, base); ok {
			return true
		}
	}
	return false
}

// EntryName maps a slash-separated relative path to its archive name.
// The source root itself is "<prefix>/".
func EntryName(prefix, rel string, dir bool) string {
	if rel == "." || rel == "" {
		return prefix + "/"
	}
	name := path.Join(prefix, rel)
	if dir {
		name += "/"
	}
	return name
}

// Cleanup removes a consumed archive. A missing archive yields a
// non-fatal ArchiveMissing error.
func Cleanup(archivePath string) error {
	err := os.Remove(archivePath)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, fs.ErrNotExist):
		return errors.ArchiveMissing(archivePath, err)
	default:
		return errors.FileOperation("cleanup", archivePath, err)
	}
}

// IsNonFatal reports whether a cleanup error can be ignored.
func IsNonFatal(err error) bool {
	return stderrors.Is(err, errors.ErrArchiveMissing)
}

// List returns the entry headers of an archive in stream order.
func List(archivePath string) ([]*tar.Header, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.FileOperation("open archive", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.FileOperation("read gzip", archivePath, err)
	}
	defer gz.Close()

	var headers []*tar.Header
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return headers, nil
		}
		if err != nil {
			return nil, errors.FileOperation("read tar", archivePath, err)
		}
		headers = append(headers, hdr)
	}
}
