package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackErrorError(t *testing.T) {
	err := CompileFailed("header", "oc-template-jade-compiler", stderrors.New("unexpected token"))

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_COMPILE]")
	assert.Contains(t, msg, "component:header")
	assert.Contains(t, msg, "op:compile")
	assert.Contains(t, msg, "oc-template-jade-compiler")
	assert.Contains(t, msg, "unexpected token")
}

func TestPackErrorDetails(t *testing.T) {
	err := DescriptorInvalid("/tmp/c/package.json", []string{"version: missing", "oc.files: missing"}, nil)

	assert.Contains(t, err.Error(), "/tmp/c/package.json")
	assert.Contains(t, err.Error(), "version: missing; oc.files: missing")
	assert.Equal(t, []string{"version: missing", "oc.files: missing"}, err.Details)
}

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"name invalid", NameInvalid("a/b", "contains a path separator"), ErrNameInvalid},
		{"template invalid", TemplateInvalid("nope", "nope-compiler", nil), ErrTemplateInvalid},
		{"descriptor invalid", DescriptorInvalid("p", nil, nil), ErrDescriptorInvalid},
		{"spawn", ProcessSpawn("npm", []string{"init"}, fs.ErrNotExist), ErrProcessSpawn},
		{"exit", ProcessExit("npm", []string{"install"}, 1), ErrProcessExit},
		{"cancelled", ProcessCancelled("npm", []string{"install"}, nil), ErrProcessCancelled},
		{"compile", CompileFailed("c", "x-compiler", nil), ErrCompile},
		{"io", FileOperation("write", "/x", fs.ErrPermission), ErrIO},
		{"archive missing", ArchiveMissing("/x.tar.gz", fs.ErrNotExist), ErrArchiveMissing},
		{"argument", InvalidArgument("dependency", "empty", ""), ErrInvalidArgument},
		{"config", ConfigurationError("package.workers", "must be positive", 0), ErrConfigInvalid},
		{"upload", UploadFailed("s3", "c", nil), ErrUploadFailed},
		{"registry", RegistryUnavailable("https://registry.npmjs.org", nil), ErrRegistryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, stderrors.Is(wrapped, tt.sentinel))
		})
	}
}

func TestSentinelsDoNotCrossMatch(t *testing.T) {
	err := TemplateInvalid("jade", "oc-template-jade-compiler", nil)

	assert.False(t, stderrors.Is(err, ErrNameInvalid))
	assert.False(t, stderrors.Is(err, ErrDescriptorInvalid))
	assert.False(t, stderrors.Is(ProcessExit("npm", nil, 2), ErrProcessSpawn))
}

func TestUnwrapKeepsCause(t *testing.T) {
	err := FileOperation("remove", "/tmp/x", fs.ErrNotExist)

	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.Equal(t, fs.ErrNotExist, err.Unwrap())
}

func TestRecoverability(t *testing.T) {
	assert.True(t, IsRecoverable(NameInvalid("", "is empty")))
	assert.True(t, IsRecoverable(ArchiveMissing("/x", nil)))
	assert.True(t, IsRecoverable(ProcessCancelled("npm", nil, nil)))
	assert.False(t, IsRecoverable(ProcessSpawn("npm", nil, nil)))
	assert.False(t, IsRecoverable(ProcessExit("npm", nil, 1)))
	assert.False(t, IsRecoverable(stderrors.New("plain")))
}

func TestExitCode(t *testing.T) {
	code, ok := ExitCode(fmt.Errorf("wrapped: %w", ProcessExit("npm", []string{"install"}, 127)))
	require.True(t, ok)
	assert.Equal(t, 127, code)

	_, ok = ExitCode(ProcessSpawn("npm", nil, nil))
	assert.False(t, ok)
}

func TestProcessErrorOperation(t *testing.T) {
	err := ProcessExit("npm", []string{"install", "--prefix", "x", "lodash"}, 1)

	assert.Equal(t, "install", err.Operation)
	assert.Equal(t, "install --prefix x lodash", err.Context["args"])
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeIO, "x"))

	original := NameInvalid("x y", "contains whitespace")
	assert.Same(t, original, Wrap(original, ErrorTypeIO, ErrCodeIO, "ignored"))

	wrapped := Wrap(stderrors.New("disk full"), ErrorTypeIO, ErrCodeIO, "write failed")
	assert.True(t, stderrors.Is(wrapped, ErrIO))
	assert.Equal(t, ErrorTypeIO, TypeOf(wrapped))
}

func TestTypeOfForeignError(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("foreign")))
}

func TestWithHelpers(t *testing.T) {
	err := NewIOError(ErrCodeIO, "copy failed", nil).
		WithComponent("footer").
		WithOperation("copy").
		WithPath("/src/footer").
		WithContext("bytes", 42).
		WithDetails("disk full")

	assert.Equal(t, "footer", err.Component)
	assert.Equal(t, "copy", err.Operation)
	assert.Equal(t, "/src/footer", err.Path)
	assert.Equal(t, 42, err.Context["bytes"])
	assert.Equal(t, []string{"disk full"}, err.Details)
}
