package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestComponent(t *testing.T) {
	root := CreateTempProject(t)
	dir := CreateTestComponent(t, root, ComponentSpec{
		Name:         "header",
		DataProvider: "module.exports.data = () => {}",
		Static:       map[string]string{"img/logo.svg": "<svg/>", "css/a.css": "a{}"},
		Extra:        map[string]interface{}{"license": "MIT"},
	})

	assert.Equal(t, filepath.Join(root, "header"), dir)
	assert.FileExists(t, filepath.Join(dir, "template.hbs"))
	assert.FileExists(t, filepath.Join(dir, "server.js"))
	assert.FileExists(t, filepath.Join(dir, "img", "logo.svg"))

	manifest := ReadJSON(t, filepath.Join(dir, "package.json"))
	assert.Equal(t, "header", manifest["name"])
	assert.Equal(t, "1.0.0", manifest["version"])
	assert.Equal(t, "MIT", manifest["license"])

	files := manifest["oc"].(map[string]interface{})["files"].(map[string]interface{})
	assert.Equal(t, []interface{}{"css", "img"}, files["static"])
	assert.Equal(t, "oc-template-handlebars", files["template"].(map[string]interface{})["type"])
	assert.Contains(t, files, "dataProvider")
}

func TestCreateBrokenComponent(t *testing.T) {
	dir := CreateBrokenComponent(t, t.TempDir(), "broken")
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"broken"`)
}

func TestAssertFilePermissions(t *testing.T) {
	p := WriteFile(t, t.TempDir(), "a/b.txt", "x")
	require.NoError(t, os.Chmod(p, 0o600))
	AssertFilePermissions(t, p, 0o600)
}
