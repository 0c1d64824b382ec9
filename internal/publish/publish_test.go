package publish

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/ocpack/internal/archive"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/packager"
	"github.com/conneroisu/ocpack/internal/templates"
	"github.com/conneroisu/ocpack/internal/testutils"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func component(t *testing.T) string {
	t.Helper()
	return testutils.CreateTestComponent(t, testutils.CreateTempProject(t), testutils.ComponentSpec{
		Name:         "header",
		Version:      "2.0.1",
		DataProvider: "module.exports.data = () => {}",
	})
}

func stagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged archive must be cleaned up")
}

func TestPublishToDirectory(t *testing.T) {
	registry := t.TempDir()
	staging := t.TempDir()

	p := NewPublisher(packager.New(), archive.NewCompressor(), NewDirectoryConsumer(registry), WithTempDir(staging))
	res, err := p.Publish(context.Background(), component(t))
	require.NoError(t, err)

	want := filepath.Join(registry, "header", "2.0.1", ArchiveName)
	assert.Equal(t, want, res.Location)
	assert.Equal(t, "header", res.Component.Name)
	assert.NoError(t, res.CleanupErr)
	assert.NoFileExists(t, res.ArchivePath)
	assert.Equal(t, "header-2.0.1.tar.gz", filepath.Base(res.ArchivePath))
	stagingEmpty(t, staging)

	headers, err := archive.List(want)
	require.NoError(t, err)
	var names []string
	for _, h := range headers {
		names = append(names, h.Name)
		assert.True(t, strings.HasPrefix(h.Name, "_package/"), h.Name)
	}
	assert.Contains(t, names, "_package/package.json")
	assert.Contains(t, names, "_package/template.hbs")
	assert.Contains(t, names, "_package/server.js")
}

func TestPublishDryRun(t *testing.T) {
	staging := t.TempDir()
	consumer := ConsumerFunc(func(context.Context, string, *packager.PackagedComponent) (string, error) {
		t.Fatal("dry run must not consume")
		return "", nil
	})

	res, err := NewPublisher(packager.New(), archive.NewCompressor(), consumer,
		WithTempDir(staging), WithDryRun(true)).Publish(context.Background(), component(t))
	require.NoError(t, err)
	assert.Empty(t, res.Location)
	assert.Contains(t, res.Entries, "_package/")
	assert.Contains(t, res.Entries, "_package/template.hbs")
	stagingEmpty(t, staging)
}

func TestPublishConsumerFailureStillCleansUp(t *testing.T) {
	staging := t.TempDir()
	var seen string
	consumer := ConsumerFunc(func(_ context.Context, archivePath string, _ *packager.PackagedComponent) (string, error) {
		seen = archivePath
		assert.FileExists(t, archivePath)
		return "", errors.UploadFailed("registry", "", stderrors.New("503"))
	})

	_, err := NewPublisher(packager.New(), archive.NewCompressor(), consumer, WithTempDir(staging)).
		Publish(context.Background(), component(t))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUploadFailed))

	pe, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "header", pe.Component)

	assert.NoFileExists(t, seen)
	stagingEmpty(t, staging)
}

func TestPublishCleanupMissingArchiveIsNonFatal(t *testing.T) {
	consumer := ConsumerFunc(func(_ context.Context, archivePath string, _ *packager.PackagedComponent) (string, error) {
		return "moved", os.Remove(archivePath)
	})

	res, err := NewPublisher(packager.New(), archive.NewCompressor(), consumer, WithTempDir(t.TempDir())).
		Publish(context.Background(), component(t))
	require.NoError(t, err)
	assert.Equal(t, "moved", res.Location)
	require.Error(t, res.CleanupErr)
	assert.True(t, archive.IsNonFatal(res.CleanupErr))
}

func TestPublishPackagingFailure(t *testing.T) {
	dir := testutils.CreateBrokenComponent(t, t.TempDir(), "broken")
	_, err := NewPublisher(packager.New(), archive.NewCompressor(), NewDirectoryConsumer(t.TempDir())).
		Publish(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDescriptorInvalid))
}

func TestS3Consumer(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "a.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, []byte("archive-bytes"), 0o644))
	pc := &packager.PackagedComponent{
		Name:     "header",
		Version:  "2.0.1",
		Template: templates.ResolvedTemplate{CanonicalType: "oc-template-es6"},
	}

	client := &fakeS3{}
	c := NewS3Consumer(client, "components", "prod/")
	loc, err := c.Consume(context.Background(), archivePath, pc)
	require.NoError(t, err)

	assert.Equal(t, "s3://components/prod/header/2.0.1/package.tar.gz", loc)
	assert.Equal(t, "components", aws.ToString(client.input.Bucket))
	assert.Equal(t, "prod/header/2.0.1/package.tar.gz", aws.ToString(client.input.Key))
	assert.Equal(t, ContentType, aws.ToString(client.input.ContentType))
	assert.EqualValues(t, len("archive-bytes"), aws.ToInt64(client.input.ContentLength))
	assert.Equal(t, "archive-bytes", string(client.body))
	assert.Equal(t, map[string]string{
		"component": "header",
		"version":   "2.0.1",
		"template":  "oc-template-es6",
	}, client.input.Metadata)
}

func TestS3ConsumerFailure(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "a.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, []byte("x"), 0o644))

	c := NewS3Consumer(&fakeS3{err: stderrors.New("AccessDenied")}, "components", "")
	_, err := c.Consume(context.Background(), archivePath, &packager.PackagedComponent{Name: "header", Version: "1.0.0"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUploadFailed))
	assert.True(t, errors.IsRecoverable(err))
	assert.Contains(t, err.Error(), "AccessDenied")
}

// isolateAWS points the SDK at empty shared config files and clears the
// credential environment.
func isolateAWS(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	for _, key := range []string{"AWS_PROFILE", "AWS_REGION", "AWS_DEFAULT_REGION",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestNewS3Client(t *testing.T) {
	isolateAWS(t)

	client, err := NewS3Client(context.Background(), S3Options{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "AKID",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
}

func TestNewS3ClientDefaultChain(t *testing.T) {
	isolateAWS(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "ENVKEY")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")
	t.Setenv("AWS_REGION", "us-east-2")

	client, err := NewS3Client(context.Background(), S3Options{})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "us-east-2", opts.Region)
	assert.False(t, opts.UsePathStyle)
	assert.Nil(t, opts.BaseEndpoint)

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ENVKEY", creds.AccessKeyID)
}

func TestNewS3ClientSharedProfile(t *testing.T) {
	isolateAWS(t)
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(configFile, []byte("[profile publisher]\nregion = ap-south-1\n"), 0o600))
	credsFile := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(credsFile, []byte("[publisher]\naws_access_key_id = PROFILEKEY\naws_secret_access_key = profilesecret\n"), 0o600))
	t.Setenv("AWS_CONFIG_FILE", configFile)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsFile)

	client, err := NewS3Client(context.Background(), S3Options{Profile: "publisher"})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "ap-south-1", opts.Region)
	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PROFILEKEY", creds.AccessKeyID)
}

func TestNewS3ClientUnknownProfile(t *testing.T) {
	isolateAWS(t)

	_, err := NewS3Client(context.Background(), S3Options{Profile: "missing"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
}
