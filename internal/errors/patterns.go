package errors

import (
	"fmt"
	"strings"
)

// Constructors for the pipeline's failure taxonomy. Each one fixes the type,
// code and recoverability so callers only supply the facts.

// NameInvalid reports a component name that fails validation.
func NameInvalid(name, reason string) *PackError {
	return &PackError{
		Type:        ErrorTypeValidation,
		Code:        ErrCodeNameInvalid,
		Message:     fmt.Sprintf("name not valid: %q %s", name, reason),
		Component:   name,
		Operation:   "validate",
		Recoverable: true,
	}
}

// TemplateInvalid reports a template type whose compiler cannot be resolved.
func TemplateInvalid(requested, compilerID string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeTemplate,
		Code:        ErrCodeTemplateInvalid,
		Message:     fmt.Sprintf("template type not valid: %q (compiler %q)", requested, compilerID),
		Cause:       cause,
		Context:     map[string]interface{}{"template": requested, "compiler": compilerID},
		Operation:   "resolve",
		Recoverable: true,
	}
}

// DescriptorInvalid reports a malformed component manifest.
func DescriptorInvalid(path string, reasons []string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeDescriptor,
		Code:        ErrCodeDescriptorInvalid,
		Message:     "component descriptor not valid",
		Cause:       cause,
		Path:        path,
		Details:     reasons,
		Operation:   "validate",
		Recoverable: true,
	}
}

// ProcessSpawn reports a package manager that could not be started.
func ProcessSpawn(binary string, args []string, cause error) *PackError {
	return &PackError{
		Type:      ErrorTypeProcess,
		Code:      ErrCodeProcessSpawn,
		Message:   fmt.Sprintf("could not start %s", binary),
		Cause:     cause,
		Context:   map[string]interface{}{"args": strings.Join(args, " ")},
		Operation: operationOf(args),
	}
}

// ProcessExit reports a package manager that exited with a non-zero code.
func ProcessExit(binary string, args []string, exitCode int) *PackError {
	return &PackError{
		Type:      ErrorTypeProcess,
		Code:      ErrCodeProcessExit,
		Message:   fmt.Sprintf("%s exited with code %d", binary, exitCode),
		Context:   map[string]interface{}{"args": strings.Join(args, " ")},
		Operation: operationOf(args),
		ExitCode:  exitCode,
	}
}

// ProcessCancelled reports a package manager killed because its context ended.
func ProcessCancelled(binary string, args []string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeProcess,
		Code:        ErrCodeProcessCancelled,
		Message:     fmt.Sprintf("%s cancelled", binary),
		Cause:       cause,
		Context:     map[string]interface{}{"args": strings.Join(args, " ")},
		Operation:   operationOf(args),
		Recoverable: true,
	}
}

// CompileFailed annotates a compiler failure with the component identity.
func CompileFailed(component, compilerID string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeBuild,
		Code:        ErrCodeCompile,
		Message:     fmt.Sprintf("compilation with %s failed", compilerID),
		Cause:       cause,
		Component:   component,
		Operation:   "compile",
		Context:     map[string]interface{}{"compiler": compilerID},
		Recoverable: true,
	}
}

// FileOperation reports a filesystem failure with the failing path.
func FileOperation(operation, path string, cause error) *PackError {
	return &PackError{
		Type:      ErrorTypeIO,
		Code:      ErrCodeIO,
		Message:   fmt.Sprintf("%s failed", operation),
		Cause:     cause,
		Path:      path,
		Operation: operation,
	}
}

// ArchiveMissing reports cleanup of an archive that no longer exists.
func ArchiveMissing(path string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeIO,
		Code:        ErrCodeArchiveMissing,
		Message:     "archive already removed",
		Cause:       cause,
		Path:        path,
		Operation:   "cleanup",
		Recoverable: true,
	}
}

// InvalidArgument reports an argument rejected before any side effect.
func InvalidArgument(name, message string, value interface{}) *PackError {
	return NewValidationError(
		ErrCodeInvalidArgument,
		fmt.Sprintf("invalid %s: %s", name, message),
	).WithContext("argument", name).WithContext("value", value)
}

// ConfigurationError reports an invalid configuration setting.
func ConfigurationError(setting, message string, value interface{}) *PackError {
	return NewConfigError(
		ErrCodeConfigInvalid,
		fmt.Sprintf("invalid configuration for %s: %s", setting, message),
	).WithContext("setting", setting).WithContext("value", value)
}

// UploadFailed reports an archive consumer failure.
func UploadFailed(target, component string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeNetwork,
		Code:        ErrCodeUploadFailed,
		Message:     fmt.Sprintf("upload to %s failed", target),
		Cause:       cause,
		Component:   component,
		Operation:   "publish",
		Recoverable: true,
	}
}

// RegistryUnavailable reports a package registry that could not be queried.
func RegistryUnavailable(endpoint string, cause error) *PackError {
	return &PackError{
		Type:        ErrorTypeNetwork,
		Code:        ErrCodeRegistryUnavailable,
		Message:     "package registry unavailable",
		Cause:       cause,
		Context:     map[string]interface{}{"endpoint": endpoint},
		Operation:   "registry",
		Recoverable: true,
	}
}

func operationOf(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
