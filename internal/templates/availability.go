package templates

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/git-pkgs/registries"
	_ "github.com/git-pkgs/registries/all"

	"github.com/conneroisu/ocpack/internal/errors"
)

// CompilerRelease is the newest published version of a compiler package.
type CompilerRelease struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	URLs    map[string]string `json:"urls,omitempty"`
}

// RegistryChecker confirms that a compiler package is published on the npm
// registry before a component is scaffolded against it.
type RegistryChecker struct {
	registry registries.Registry
	endpoint string
}

// NewRegistryClient returns a registry HTTP client with the given timeout and
// retry budget.
func NewRegistryClient(timeout time.Duration, retries int) *registries.Client {
	return registries.NewClient(
		registries.WithTimeout(timeout),
		registries.WithMaxRetries(retries),
	)
}

// NewRegistryChecker creates a checker against baseURL. An empty baseURL
// targets the public npm registry and a nil client uses the library default.
func NewRegistryChecker(baseURL string, client *registries.Client) (*RegistryChecker, error) {
	if client == nil {
		client = registries.DefaultClient()
	}

	reg, err := registries.New("npm", baseURL, client)
	if err != nil {
		return nil, errors.ConfigurationError("templates.registry_url", err.Error(), baseURL)
	}

	endpoint := baseURL
	if endpoint == "" {
		endpoint = registries.DefaultURL("npm")
	}

	return &RegistryChecker{registry: reg, endpoint: endpoint}, nil
}

// Latest returns the newest usable release of compilerID. A package that does
// not exist or has no usable version is TemplateInvalid; any other failure
// is RegistryUnavailable.
func (c *RegistryChecker) Latest(ctx context.Context, compilerID string) (*CompilerRelease, error) {
	version, err := registries.FetchLatestVersion(ctx, c.registry, compilerID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.TemplateInvalid(compilerID, compilerID, err)
		}
		return nil, errors.RegistryUnavailable(c.endpoint, err)
	}
	if version == nil {
		return nil, errors.TemplateInvalid(compilerID, compilerID, nil).
			WithDetails("no published version is usable")
	}

	return &CompilerRelease{
		Name:    compilerID,
		Version: version.Number,
		URLs:    registries.BuildURLs(c.registry.URLs(), compilerID, version.Number),
	}, nil
}

// Verify is Latest for callers that only need the yes/no answer for a
// resolved template.
func (c *RegistryChecker) Verify(ctx context.Context, resolved ResolvedTemplate) error {
	_, err := c.Latest(ctx, resolved.CompilerID)
	if pe, ok := errors.As(err); ok && pe.Code == errors.ErrCodeTemplateInvalid {
		pe.Context["template"] = resolved.RequestedType
	}
	return err
}

func isNotFound(err error) bool {
	if stderrors.Is(err, registries.ErrNotFound) {
		return true
	}

	var notFound *registries.NotFoundError
	if stderrors.As(err, &notFound) {
		return true
	}

	var httpErr *registries.HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}

	// Ecosystem clients may wrap their own not-found types.
	return strings.HasSuffix(err.Error(), "not found")
}
