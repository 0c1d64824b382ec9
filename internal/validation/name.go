package validation

import (
	"fmt"
	"regexp"

	"github.com/conneroisu/ocpack/internal/errors"
)

// MaxComponentNameLength mirrors npm's package name limit.
const MaxComponentNameLength = 214

var componentNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reservedNames collide with directories the pipeline itself creates.
var reservedNames = map[string]struct{}{
	"_package":     {},
	"node_modules": {},
}

// ValidateComponentName reports whether name can be used as a component
// directory and registry URL segment. It performs no I/O.
func ValidateComponentName(name string) bool {
	return componentNameViolation(name) == ""
}

// CheckComponentName is ValidateComponentName returning a NameInvalid error
// that says which rule was broken.
func CheckComponentName(name string) error {
	if reason := componentNameViolation(name); reason != "" {
		return errors.NameInvalid(name, reason)
	}
	return nil
}

func componentNameViolation(name string) string {
	switch {
	case name == "":
		return "is empty"
	case len(name) > MaxComponentNameLength:
		return fmt.Sprintf("is longer than %d characters", MaxComponentNameLength)
	case !componentNamePattern.MatchString(name):
		return "may only contain letters, digits, '-' and '_'"
	}
	if _, reserved := reservedNames[name]; reserved {
		return "is a reserved name"
	}
	return ""
}
