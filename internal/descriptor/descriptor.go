// Package descriptor reads, validates and writes component manifests.
//
// A component's manifest is its package.json: the npm fields plus an "oc"
// block naming the template type and source files. The source manifest is
// written once by the scaffolder; packaging writes a derived manifest into
// the package directory and never touches the source.
package descriptor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/ocpack/internal/errors"
)

// FileName is the manifest file inside a component directory.
const FileName = "package.json"

// DataProviderType is the runtime recorded for compiled data providers.
const DataProviderType = "node.js"

// Descriptor is the typed view of a component manifest.
type Descriptor struct {
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Version         string            `json:"version"`
	Author          *Author           `json:"author,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
	OC              OC                `json:"oc"`
}

// OC is the component-specific block of the manifest.
type OC struct {
	Files      Files                `json:"files"`
	Parameters map[string]Parameter `json:"parameters,omitempty"`
	Packaged   bool                 `json:"packaged,omitempty"`
	Date       int64                `json:"date,omitempty"`
	Version    string               `json:"version,omitempty"`
}

// Files lists the component's source files, or its compiled files once packaged.
type Files struct {
	Template     TemplateFile      `json:"template"`
	DataProvider *DataProviderFile `json:"dataProvider,omitempty"`
	Static       []string          `json:"static,omitempty"`
}

// TemplateFile is the view source and the template type that compiles it.
type TemplateFile struct {
	Src     string `json:"src"`
	Type    string `json:"type"`
	HashKey string `json:"hashKey,omitempty"`
}

// DataProviderFile is the server-side logic of a component.
type DataProviderFile struct {
	Src     string `json:"src"`
	Type    string `json:"type,omitempty"`
	HashKey string `json:"hashKey,omitempty"`
}

// Parameter describes one request parameter the component accepts.
type Parameter struct {
	Type        string      `json:"type"`
	Mandatory   bool        `json:"mandatory,omitempty"`
	Description string      `json:"description,omitempty"`
	Example     interface{} `json:"example,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// TemplateType returns the requested template type.
func (d *Descriptor) TemplateType() string {
	return d.OC.Files.Template.Type
}

// Author is npm's person field. It decodes from either the object form or
// the "Name <email> (url)" shorthand.
type Author struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

var personPattern = regexp.MustCompile(`^([^<(]*?)\s*(?:<([^>]*)>)?\s*(?:\(([^)]*)\))?$`)

// ParseAuthor parses the npm person shorthand.
func ParseAuthor(s string) Author {
	m := personPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Author{Name: strings.TrimSpace(s)}
	}
	return Author{
		Name:  strings.TrimSpace(m[1]),
		Email: strings.TrimSpace(m[2]),
		URL:   strings.TrimSpace(m[3]),
	}
}

// String renders the npm person shorthand.
func (a Author) String() string {
	var b strings.Builder
	b.WriteString(a.Name)
	if a.Email != "" {
		b.WriteString(" <" + a.Email + ">")
	}
	if a.URL != "" {
		b.WriteString(" (" + a.URL + ")")
	}
	return strings.TrimSpace(b.String())
}

// UnmarshalJSON accepts a string or an object.
func (a *Author) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = ParseAuthor(s)
		return nil
	}

	type plain Author
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Author(p)
	return nil
}

// Component is a manifest as read from disk: the typed view, the raw bytes
// and a generic map that preserves fields the typed view does not model.
type Component struct {
	Dir        string
	Path       string
	Descriptor *Descriptor
	Raw        []byte
	fields     map[string]interface{}
}

// Load reads and validates the manifest of the component in dir. A nil
// validator skips schema validation.
func Load(dir string, validator Validator) (*Component, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileOperation("read descriptor", path, err)
	}

	if validator != nil {
		if err := validator.Validate(data, path); err != nil {
			return nil, err
		}
	}

	return Parse(dir, data)
}

// Parse decodes manifest bytes belonging to the component in dir.
func Parse(dir string, data []byte) (*Component, error) {
	path := filepath.Join(dir, FileName)

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.DescriptorInvalid(path, []string{err.Error()}, err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.DescriptorInvalid(path, []string{err.Error()}, err)
	}

	return &Component{
		Dir:        dir,
		Path:       path,
		Descriptor: &d,
		Raw:        data,
		fields:     fields,
	}, nil
}

// Derive returns manifest bytes that keep every top-level field of the
// source and replace the "oc" block with oc.
func (c *Component) Derive(oc OC) ([]byte, error) {
	merged := make(map[string]interface{}, len(c.fields)+1)
	for k, v := range c.fields {
		merged[k] = v
	}
	merged["oc"] = oc

	return json.MarshalIndent(merged, "", "  ")
}

// Merge writes d's fields over the manifest at path, keeping fields that d
// does not model. A missing file is treated as empty.
func Merge(path string, d *Descriptor) error {
	fields := map[string]interface{}{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &fields); err != nil {
			return errors.DescriptorInvalid(path, []string{err.Error()}, err)
		}
	case !os.IsNotExist(err):
		return errors.FileOperation("read descriptor", path, err)
	}

	typed, err := json.Marshal(d)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternal, "encode descriptor", err)
	}
	var overlay map[string]interface{}
	if err := json.Unmarshal(typed, &overlay); err != nil {
		return errors.NewInternalError(errors.ErrCodeInternal, "encode descriptor", err)
	}
	for k, v := range overlay {
		fields[k] = v
	}

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternal, "encode descriptor", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return errors.FileOperation("write descriptor", path, err)
	}
	return nil
}
