// Package templates maps requested template types to canonical template
// names and compiler identifiers.
//
// Short template names that predate the "oc-template-" naming convention are
// legacy aliases. Resolving one rewrites it to the canonical long form and
// delivers a single deprecation notice; resolution never fails. Whether the
// resulting compiler id maps to something loadable is decided by the
// compiler registry.
package templates

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/conneroisu/ocpack/internal/logging"
)

const (
	// CanonicalPrefix is prepended to a legacy alias to form its canonical type.
	CanonicalPrefix = "oc-template-"
	// CompilerSuffix is appended to a canonical type to form its compiler id.
	CompilerSuffix = "-compiler"
)

// DefaultLegacyAliases are the historical short template names.
var DefaultLegacyAliases = []string{"jade", "handlebars"}

// ResolvedTemplate is the outcome of resolving one requested template type.
type ResolvedTemplate struct {
	RequestedType string `json:"requested_type"`
	CanonicalType string `json:"canonical_type"`
	CompilerID    string `json:"compiler_id"`
	IsLegacyAlias bool   `json:"is_legacy_alias"`
}

// DeprecationNotice describes a legacy alias that was rewritten.
type DeprecationNotice struct {
	Legacy    string
	Canonical string
}

func (n DeprecationNotice) String() string {
	return fmt.Sprintf("Template-type %q has been deprecated and is now replaced by %q", n.Legacy, n.Canonical)
}

// DeprecationHandler receives one notice per legacy resolution.
type DeprecationHandler func(DeprecationNotice)

// Resolver resolves template types. It is safe for concurrent use once built.
type Resolver struct {
	aliases  map[string]struct{}
	onNotice DeprecationHandler
	logger   logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLegacyAliases replaces the default alias set.
func WithLegacyAliases(aliases ...string) Option {
	return func(r *Resolver) {
		r.aliases = make(map[string]struct{}, len(aliases))
		for _, alias := range aliases {
			alias = strings.TrimSpace(alias)
			if alias != "" {
				r.aliases[alias] = struct{}{}
			}
		}
	}
}

// WithDeprecationHandler routes notices to fn instead of the logger.
func WithDeprecationHandler(fn DeprecationHandler) Option {
	return func(r *Resolver) {
		r.onNotice = fn
	}
}

// WithLogger sets the logger used by the default deprecation handler.
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver with the default legacy aliases.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: logging.NewNop()}
	WithLegacyAliases(DefaultLegacyAliases...)(r)

	for _, opt := range opts {
		opt(r)
	}

	if r.onNotice == nil {
		logger := r.logger.WithComponent("templates")
		r.onNotice = func(n DeprecationNotice) {
			logger.Warn(context.Background(), nil, n.String(),
				"legacy", n.Legacy, "canonical", n.Canonical)
		}
	}

	return r
}

// Resolve maps requested to its canonical type and compiler id.
func (r *Resolver) Resolve(requested string) ResolvedTemplate {
	resolved := ResolvedTemplate{
		RequestedType: requested,
		CanonicalType: requested,
	}

	if r.IsLegacy(requested) {
		resolved.CanonicalType = CanonicalPrefix + requested
		resolved.IsLegacyAlias = true
		r.onNotice(DeprecationNotice{Legacy: requested, Canonical: resolved.CanonicalType})
	}

	resolved.CompilerID = resolved.CanonicalType + CompilerSuffix
	return resolved
}

// IsLegacy reports whether name is a configured legacy alias.
func (r *Resolver) IsLegacy(name string) bool {
	_, ok := r.aliases[name]
	return ok
}

// LegacyAliases returns the configured aliases in sorted order.
func (r *Resolver) LegacyAliases() []string {
	aliases := make([]string, 0, len(r.aliases))
	for alias := range r.aliases {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	return aliases
}
