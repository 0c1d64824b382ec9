package descriptor

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/conneroisu/ocpack/internal/errors"
)

//go:embed schema.cue
var schemaBytes []byte

// DefaultMaxSize bounds the manifest size accepted for validation.
const DefaultMaxSize int64 = 1 << 20

// Validator checks raw manifest bytes. filename is used in messages only.
type Validator interface {
	Validate(data []byte, filename string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(data []byte, filename string) error

// Validate calls f.
func (f ValidatorFunc) Validate(data []byte, filename string) error {
	return f(data, filename)
}

// CUEValidator validates manifests against the embedded #Descriptor schema.
// Compiled CUE values are not safe for concurrent use, so validation is
// serialised.
type CUEValidator struct {
	mu      sync.Mutex
	ctx     *cue.Context
	schema  cue.Value
	maxSize int64
}

// NewCUEValidator compiles the embedded schema.
func NewCUEValidator() (*CUEValidator, error) {
	ctx := cuecontext.New()

	compiled := ctx.CompileBytes(schemaBytes, cue.Filename("schema.cue"))
	if compiled.Err() != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "compile descriptor schema", compiled.Err())
	}

	root := compiled.LookupPath(cue.ParsePath("#Descriptor"))
	if root.Err() != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "schema definition #Descriptor not found", root.Err())
	}

	return &CUEValidator{ctx: ctx, schema: root, maxSize: DefaultMaxSize}, nil
}

// Validate returns a DescriptorInvalid error whose details name each failing
// field.
func (v *CUEValidator) Validate(data []byte, filename string) error {
	if int64(len(data)) > v.maxSize {
		return errors.DescriptorInvalid(filename, []string{
			fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", len(data), v.maxSize),
		}, nil)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	value := v.ctx.CompileBytes(data, cue.Filename(filename))
	if value.Err() != nil {
		return errors.DescriptorInvalid(filename, reasons(value.Err()), value.Err())
	}

	unified := v.schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return errors.DescriptorInvalid(filename, reasons(err), err)
	}

	return nil
}

// reasons flattens a CUE error into "path: message" lines.
func reasons(err error) []string {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return []string{err.Error()}
	}

	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, e := range list {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
			msg = path + ": " + msg
		}
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	return out
}

// formatPath renders ["oc", "files", "static", "0"] as oc.files.static[0].
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
