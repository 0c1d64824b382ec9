package cmd

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/publish"
	"github.com/conneroisu/ocpack/internal/services"
	"github.com/conneroisu/ocpack/internal/testutils"
)

// resetFlags restores every flag of c and its children to its default so
// executions do not leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		switch v := f.Value.(type) {
		case *validatingValue:
			_ = v.originalSet(f.DefValue)
		case pflag.SliceValue:
			_ = v.Replace(nil)
		default:
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	resetFlags(rootCmd)
	cfgFile = ""
	t.Setenv("OCPACK_CONFIG_FILE", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func project(t *testing.T) (root, header string) {
	t.Helper()
	root = testutils.CreateTempProject(t)
	header = testutils.CreateTestComponent(t, root, testutils.ComponentSpec{Name: "header", Version: "1.2.0"})
	return root, header
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ocpack ")
	assert.Contains(t, out, "Manifest version:")

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "manifest_version")
	assert.Contains(t, info, "go_version")

	_, err = execute(t, "version", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestPackageCommand(t *testing.T) {
	root, header := project(t)
	testutils.CreateBrokenComponent(t, root, "broken")

	out, err := execute(t, "package", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 components failed")
	assert.Contains(t, out, "✓ header 1.2.0")
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "1 packaged, 1 failed")
	assert.FileExists(t, filepath.Join(header, "_package", "package.json"))
}

func TestPackageCommandOnlyAndArchives(t *testing.T) {
	root, _ := project(t)
	testutils.CreateBrokenComponent(t, root, "broken")
	archives := filepath.Join(t.TempDir(), "dist")
	metricsFile := filepath.Join(t.TempDir(), "ocpack.prom")

	out, err := execute(t, "--metrics-file", metricsFile, "package", root, "--only", "header", "--archive-dir", archives, "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 packaged, 0 failed")
	assert.FileExists(t, filepath.Join(archives, "header-1.2.0.tar.gz"))

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ocpack_package_total")
}

func TestPackageCommandRejectsZeroWorkers(t *testing.T) {
	root, _ := project(t)
	_, err := execute(t, "package", root, "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestListCommand(t *testing.T) {
	root, _ := project(t)
	testutils.CreateTestComponent(t, root, testutils.ComponentSpec{Name: "legacy", TemplateType: "jade"})

	out, err := execute(t, "list", root)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "header")
	assert.Contains(t, out, "oc-template-jade (legacy)")

	out, err = execute(t, "list", root, "-o", "json")
	require.NoError(t, err)
	var infos []services.ComponentInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "header", infos[0].Name)
	assert.Equal(t, "1.2.0", infos[0].Version)

	out, err = execute(t, "list", root, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: header")

	_, err = execute(t, "list", root, "-o", "js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "json"`)
}

func TestListCommandEmpty(t *testing.T) {
	out, err := execute(t, "list", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No components found.")
}

func TestCleanCommand(t *testing.T) {
	root, header := project(t)
	modules := filepath.Join(header, "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(modules, "lodash"), 0o755))

	out, err := execute(t, "clean", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Would remove:")
	assert.Contains(t, out, modules)
	assert.DirExists(t, modules)

	out, err = execute(t, "clean", root, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "removed "+modules)
	assert.NoDirExists(t, modules)

	out, err = execute(t, "clean", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to clean.")
}

func TestPublishCommand(t *testing.T) {
	_, header := project(t)
	registry := t.TempDir()
	t.Setenv("OCPACK_PUBLISH_DIRECTORY", registry)

	out, err := execute(t, "publish", header)
	require.NoError(t, err)
	want := filepath.Join(registry, "header", "1.2.0", publish.ArchiveName)
	assert.Contains(t, out, "published to "+want)
	assert.FileExists(t, want)

	out, err = execute(t, "publish", header, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would contain")
	assert.Contains(t, out, "_package/package.json")

	_, err = execute(t, "publish", header, "--target", "ftp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target")
}

func TestInitCommandRejectsBadName(t *testing.T) {
	parent := t.TempDir()
	_, err := execute(t, "init", "Bad Name", "oc-template-es6", "--dir", parent)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNameInvalid))

	entries, readErr := os.ReadDir(parent)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	_, err = execute(t, "init", "only-name")
	assert.Error(t, err)
}

func TestInstallCommandRequiresManifest(t *testing.T) {
	_, err := execute(t, "install", t.TempDir(), "lodash")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIO))
}

func TestConfigFile(t *testing.T) {
	root, _ := project(t)
	cfg := filepath.Join(t.TempDir(), "ocpack.yml")
	require.NoError(t, os.WriteFile(cfg, []byte("components:\n  root: "+root+"\n"), 0o644))

	out, err := execute(t, "--config", cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "header")

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("package:\n  workers: -1\n"), 0o644))
	_, err = execute(t, "--config", bad, "list", root)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yml"), "list", root)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(stderrors.New("boom")))
	assert.Equal(t, 1, ExitCode(errors.InvalidArgument("x", "bad", nil)))
	assert.Equal(t, 7, ExitCode(errors.ProcessExit("npm", []string{"install"}, 7)))
}

func TestValidateChoice(t *testing.T) {
	assert.NoError(t, ValidateFormat("JSON", []string{FormatJSON}))
	assert.EqualError(t, ValidateChoice("target", "s", []string{"directory", "s3"}), `unsupported target "s", did you mean "s3"?`)
	assert.EqualError(t, ValidateFormat("xml", []string{"json", "yaml"}), `unsupported format "xml" (supported: json, yaml)`)
	assert.NoError(t, ValidatePositive("3"))
	assert.Error(t, ValidatePositive("0"))
	assert.Error(t, ValidatePositive("many"))
}
