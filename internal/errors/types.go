// Package errors provides the structured error type shared by every stage of
// the packaging pipeline.
//
// A PackError carries a category (ErrorType), a stable machine-readable code
// and enough context (component, operation, path, exit code) for a failure
// to be actionable without inspecting internals. PackError.Is compares type
// and code, so the package-level sentinels work with the standard errors.Is.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeTemplate   ErrorType = "template"
	ErrorTypeDescriptor ErrorType = "descriptor"
	ErrorTypeProcess    ErrorType = "process"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes.
const (
	ErrCodeNameInvalid         = "ERR_NAME_INVALID"
	ErrCodeTemplateInvalid     = "ERR_TEMPLATE_INVALID"
	ErrCodeDescriptorInvalid   = "ERR_DESCRIPTOR_INVALID"
	ErrCodeProcessSpawn        = "ERR_PROCESS_SPAWN"
	ErrCodeProcessExit         = "ERR_PROCESS_EXIT"
	ErrCodeProcessCancelled    = "ERR_PROCESS_CANCELLED"
	ErrCodeCompile             = "ERR_COMPILE"
	ErrCodeIO                  = "ERR_IO"
	ErrCodeArchiveMissing      = "ERR_ARCHIVE_MISSING"
	ErrCodeInvalidArgument     = "ERR_INVALID_ARGUMENT"
	ErrCodeConfigInvalid       = "ERR_CONFIG_INVALID"
	ErrCodeUploadFailed        = "ERR_UPLOAD_FAILED"
	ErrCodeRegistryUnavailable = "ERR_REGISTRY_UNAVAILABLE"
	ErrCodeInternal            = "ERR_INTERNAL"
)

// Sentinels for errors.Is. They match any PackError with the same type and code.
var (
	ErrNameInvalid         = &PackError{Type: ErrorTypeValidation, Code: ErrCodeNameInvalid}
	ErrTemplateInvalid     = &PackError{Type: ErrorTypeTemplate, Code: ErrCodeTemplateInvalid}
	ErrDescriptorInvalid   = &PackError{Type: ErrorTypeDescriptor, Code: ErrCodeDescriptorInvalid}
	ErrProcessSpawn        = &PackError{Type: ErrorTypeProcess, Code: ErrCodeProcessSpawn}
	ErrProcessExit         = &PackError{Type: ErrorTypeProcess, Code: ErrCodeProcessExit}
	ErrProcessCancelled    = &PackError{Type: ErrorTypeProcess, Code: ErrCodeProcessCancelled}
	ErrCompile             = &PackError{Type: ErrorTypeBuild, Code: ErrCodeCompile}
	ErrIO                  = &PackError{Type: ErrorTypeIO, Code: ErrCodeIO}
	ErrArchiveMissing      = &PackError{Type: ErrorTypeIO, Code: ErrCodeArchiveMissing}
	ErrInvalidArgument     = &PackError{Type: ErrorTypeValidation, Code: ErrCodeInvalidArgument}
	ErrConfigInvalid       = &PackError{Type: ErrorTypeConfig, Code: ErrCodeConfigInvalid}
	ErrUploadFailed        = &PackError{Type: ErrorTypeNetwork, Code: ErrCodeUploadFailed}
	ErrRegistryUnavailable = &PackError{Type: ErrorTypeNetwork, Code: ErrCodeRegistryUnavailable}
)

// PackError is a structured error type with context.
type PackError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Operation   string
	Path        string
	ExitCode    int
	Details     []string
	Recoverable bool
}

// Error implements the error interface.
func (e *PackError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	if e.Operation != "" {
		parts = append(parts, "op:"+e.Operation)
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")

	if len(e.Details) > 0 {
		result += " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PackError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code.
func (e *PackError) Is(target error) bool {
	var t *PackError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PackError) WithContext(key string, value interface{}) *PackError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent sets the component the error belongs to.
func (e *PackError) WithComponent(component string) *PackError {
	e.Component = component

	return e
}

// WithOperation sets the pipeline operation that failed.
func (e *PackError) WithOperation(operation string) *PackError {
	e.Operation = operation

	return e
}

// WithPath sets the filesystem path involved.
func (e *PackError) WithPath(path string) *PackError {
	e.Path = path

	return e
}

// WithDetails appends human readable reasons.
func (e *PackError) WithDetails(details ...string) *PackError {
	e.Details = append(e.Details, details...)

	return e
}

// New creates an error of the given type.
func New(errType ErrorType, code, message string, cause error) *PackError {
	return &PackError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a recoverable validation error.
func NewValidationError(code, message string) *PackError {
	return &PackError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *PackError {
	return &PackError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *PackError {
	return &PackError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *PackError {
	return &PackError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrap wraps err into a PackError unless it already is one.
func Wrap(err error, errType ErrorType, code, message string) error {
	if err == nil {
		return nil
	}

	var pe *PackError
	if errors.As(err, &pe) {
		return err
	}

	return New(errType, code, message, err)
}

// As returns the first PackError in err's chain.
func As(err error) (*PackError, bool) {
	var pe *PackError
	if errors.As(err, &pe) {
		return pe, true
	}

	return nil, false
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Recoverable
	}

	return false
}

// TypeOf returns the error category, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	if pe, ok := As(err); ok {
		return pe.Type
	}

	return ErrorTypeInternal
}

// ExitCode returns the child process exit code carried by err.
func ExitCode(err error) (int, bool) {
	pe, ok := As(err)
	if !ok || pe.Code != ErrCodeProcessExit {
		return 0, false
	}

	return pe.ExitCode, true
}
