// Package validation holds the pure input checks that gate side effects:
// component names, package-manager arguments and configured paths.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	if filepath.IsAbs(arg) {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateCommand validates a command name against an allowlist
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[command] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateDependency checks a dependency spec such as "lodash",
// "oc-client@~1.2.3" or "@scope/pkg@^2" before it is handed to the package
// manager. Specs are passed verbatim, so only values that would change the
// meaning of the argument vector are rejected.
func ValidateDependency(spec string) error {
	if spec == "" {
		return fmt.Errorf("dependency cannot be empty")
	}
	if strings.HasPrefix(spec, "-") {
		return fmt.Errorf("dependency %q looks like a flag", spec)
	}
	for _, r := range spec {
		if r == 0 || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("dependency %q contains whitespace or control characters", spec)
		}
	}
	return nil
}

// ValidatePath validates a configured path to prevent traversal and shell
// metacharacters.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
