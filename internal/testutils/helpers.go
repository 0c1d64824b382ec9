// Package testutils builds component trees for tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ComponentSpec describes a component fixture. Zero fields take defaults.
type ComponentSpec struct {
	Name         string
	Version      string
	TemplateType string
	View         string
	DataProvider string
	Static       map[string]string
	Extra        map[string]interface{}
}

// DefaultView is the view written when ComponentSpec.View is empty.
const DefaultView = "<div>{{title}}</div>"

// CreateTempProject creates a components root with no components.
func CreateTempProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	return root
}

// CreateTestComponent writes a component directory under root and returns its path.
func CreateTestComponent(t *testing.T, root string, spec ComponentSpec) string {
	t.Helper()

	if spec.Version == "" {
		spec.Version = "1.0.0"
	}
	if spec.TemplateType == "" {
		spec.TemplateType = "oc-template-handlebars"
	}
	if spec.View == "" {
		spec.View = DefaultView
	}

	dir := filepath.Join(root, spec.Name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	files := map[string]interface{}{
		"template": map[string]string{"src": "template.hbs", "type": spec.TemplateType},
	}
	WriteFile(t, dir, "template.hbs", spec.View)

	if spec.DataProvider != "" {
		files["dataProvider"] = map[string]string{"src": "server.js"}
		WriteFile(t, dir, "server.js", spec.DataProvider)
	}

	var static []string
	seen := map[string]bool{}
	for rel, content := range spec.Static {
		WriteFile(t, dir, rel, content)
		top := filepath.ToSlash(rel)
		if i := strings.IndexByte(top, '/'); i > 0 {
			top = top[:i]
		}
		if !seen[top] {
			seen[top] = true
			static = append(static, top)
		}
	}
	if len(static) > 0 {
		slices.Sort(static)
		files["static"] = static
	}

	manifest := map[string]interface{}{
		"name":    spec.Name,
		"version": spec.Version,
		"oc":      map[string]interface{}{"files": files},
	}
	for k, v := range spec.Extra {
		manifest[k] = v
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	require.NoError(t, err)
	WriteFile(t, dir, "package.json", string(data))
	return dir
}

// CreateBrokenComponent writes a component whose package.json does not parse.
func CreateBrokenComponent(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	WriteFile(t, dir, "package.json", fmt.Sprintf(`{"name": %q, "oc": {`, name))
	return dir
}

// WriteFile writes content to dir/rel, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// ReadJSON decodes the JSON file at path into a generic map.
func ReadJSON(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// SecurityTestCases provides common hostile inputs.
var SecurityTestCases = struct {
	PathTraversal    []string
	CommandInjection []string
}{
	PathTraversal: []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config\\sam",
		"....//....//....//etc/passwd",
		"/./../../etc/passwd",
		"../../../../../etc/passwd",
	},
	CommandInjection: []string{
		"component; rm -rf /",
		"component && rm -rf /",
		"component | rm -rf /",
		"component`rm -rf /`",
		"component$(rm -rf /)",
		"component\nrm -rf /",
	},
}

// AssertFilePermissions checks the permission bits of a file.
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0o777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0o777), expectedMode)
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
