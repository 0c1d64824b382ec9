package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/ocpack/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Components.Root)
	assert.Empty(t, cfg.Components.Only)
	assert.Equal(t, []string{"jade", "handlebars"}, cfg.Templates.LegacyAliases)
	assert.False(t, cfg.Templates.VerifyRegistry)
	assert.Equal(t, "npm", cfg.NPM.Binary)
	assert.Equal(t, 10*time.Minute, cfg.NPM.Timeout)
	assert.GreaterOrEqual(t, cfg.Package.Workers, 1)
	assert.Equal(t, "_package", cfg.Package.OutputDir)
	assert.Equal(t, "_package", cfg.Archive.Prefix)
	assert.Equal(t, -1, cfg.Archive.Level)
	assert.Equal(t, TargetDirectory, cfg.Publish.Target)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "ocpack", cfg.Metrics.Namespace)

	assert.Equal(t, cfg, Default())
}

func TestLoadGlobalViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("package.workers", 3)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Package.Workers)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
components:
  root: components
  only: [header, footer]
templates:
  legacy_aliases: [jade]
  verify_registry: true
  registry_url: http://localhost:4873
npm:
  timeout: 2m
package:
  workers: 2
  fail_fast: true
archive:
  exclude: ["*.map"]
  level: 9
publish:
  target: s3
  s3:
    bucket: components
    region: eu-west-1
    path_style: true
    profile: publisher
logging:
  level: debug
  format: json
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "components", cfg.Components.Root)
	assert.Equal(t, []string{"header", "footer"}, cfg.Components.Only)
	assert.Equal(t, []string{"jade"}, cfg.Templates.LegacyAliases)
	assert.True(t, cfg.Templates.VerifyRegistry)
	assert.Equal(t, "http://localhost:4873", cfg.Templates.RegistryURL)
	assert.Equal(t, 2*time.Minute, cfg.NPM.Timeout)
	assert.Equal(t, 2, cfg.Package.Workers)
	assert.True(t, cfg.Package.FailFast)
	assert.Equal(t, []string{"*.map"}, cfg.Archive.Exclude)
	assert.Equal(t, 9, cfg.Archive.Level)
	assert.Equal(t, TargetS3, cfg.Publish.Target)
	assert.Equal(t, "components", cfg.Publish.S3.Bucket)
	assert.True(t, cfg.Publish.S3.PathStyle)
	assert.Equal(t, "publisher", cfg.Publish.S3.Profile)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OCPACK_PACKAGE_WORKERS", "5")
	t.Setenv("OCPACK_COMPONENTS_ONLY", "header, footer")
	t.Setenv("OCPACK_NPM_BINARY", "npm.cmd")

	v := viper.New()
	ConfigureEnv(v)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Package.Workers)
	assert.Equal(t, []string{"header", "footer"}, cfg.Components.Only)
	assert.Equal(t, "npm.cmd", cfg.NPM.Binary)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		field string
	}{
		{"negative workers", "package.workers", -1, "package.workers"},
		{"binary not allowed", "npm.binary", "yarn", "npm.binary"},
		{"shell metacharacter in root", "components.root", "components; rm -rf /", "components.root"},
		{"traversal in publish dir", "publish.directory", "../../etc", "publish.directory"},
		{"unknown target", "publish.target", "ftp", "publish.target"},
		{"bad component filter", "components.only", []string{"a/b"}, "components.only"},
		{"prefix with separator", "archive.prefix", "a/b", "archive.prefix"},
		{"level out of range", "archive.level", 12, "archive.level"},
		{"log level", "logging.level", "loud", "logging.level"},
		{"log format", "logging.format", "xml", "logging.format"},
		{"registry url", "templates.registry_url", "ftp://example.com", "templates.registry_url"},
		{"negative timeout", "npm.timeout", "-1s", "npm.timeout"},
		{"metrics namespace", "metrics.namespace", "oc-pack", "metrics.namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestS3TargetRequiresBucket(t *testing.T) {
	v := viper.New()
	v.Set("publish.target", "s3")

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.s3.bucket")
}

func TestLoadUnmarshalError(t *testing.T) {
	v := viper.New()
	v.Set("package.workers", "many")

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
}

func TestValidateConfigWithDetailsWarnings(t *testing.T) {
	cfg := Default()
	cfg.Templates.LegacyAliases = []string{"oc-template-jade"}
	cfg.Publish.Target = TargetS3
	cfg.Publish.S3.Bucket = "components"

	result := ValidateConfigWithDetails(cfg)
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	require.True(t, result.HasWarnings())

	var fields []string
	for _, w := range result.Warnings {
		fields = append(fields, w.Field)
	}
	assert.Contains(t, fields, "templates.legacy_aliases")
	assert.Contains(t, fields, "publish.s3.region")
	assert.Contains(t, result.String(), "Validation Warnings")
}

func TestValidationResultString(t *testing.T) {
	cfg := Default()
	cfg.Package.Workers = 0

	result := ValidateConfigWithDetails(cfg)
	assert.False(t, result.Valid)
	out := result.String()
	assert.Contains(t, out, "Validation Errors")
	assert.Contains(t, out, "package.workers")
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{".", false},
		{"components", false},
		{"/abs/components", false},
		{"a/../b", false},
		{"", true},
		{"../up", true},
		{"a;b", true},
		{"$(x)", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
