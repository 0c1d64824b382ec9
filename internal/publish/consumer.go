package publish

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/packager"
)

// ArchiveName is the object name of every published archive.
const ArchiveName = "package.tar.gz"

// ContentType is sent with uploaded archives.
const ContentType = "application/gzip"

// Consumer takes a finished archive and returns where it ended up.
type Consumer interface {
	Consume(ctx context.Context, archivePath string, component *packager.PackagedComponent) (string, error)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, archivePath string, component *packager.PackagedComponent) (string, error)

// Consume implements Consumer.
func (f ConsumerFunc) Consume(ctx context.Context, archivePath string, component *packager.PackagedComponent) (string, error) {
	return f(ctx, archivePath, component)
}

// DirectoryConsumer copies archives into a local registry layout:
// <dir>/<name>/<version>/package.tar.gz.
type DirectoryConsumer struct {
	Dir string
}

// NewDirectoryConsumer creates a consumer rooted at dir.
func NewDirectoryConsumer(dir string) *DirectoryConsumer {
	return &DirectoryConsumer{Dir: dir}
}

// Consume implements Consumer.
func (c *DirectoryConsumer) Consume(ctx context.Context, archivePath string, component *packager.PackagedComponent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destDir := filepath.Join(c.Dir, component.Name, component.Version)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", errors.FileOperation("create registry directory", destDir, err)
	}
	dest := filepath.Join(destDir, ArchiveName)

	in, err := os.Open(archivePath)
	if err != nil {
		return "", errors.FileOperation("open archive", archivePath, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", errors.FileOperation("create registry archive", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return "", errors.FileOperation("copy archive", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", errors.FileOperation("close registry archive", dest, err)
	}
	return dest, nil
}

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Consumer uploads archives to <prefix><name>/<version>/package.tar.gz.
type S3Consumer struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Consumer creates an uploader for bucket.
func NewS3Consumer(client PutObjectAPI, bucket, prefix string) *S3Consumer {
	return &S3Consumer{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a component.
func (c *S3Consumer) Key(component *packager.PackagedComponent) string {
	return c.prefix + path.Join(component.Name, component.Version, ArchiveName)
}

// Consume implements Consumer.
func (c *S3Consumer) Consume(ctx context.Context, archivePath string, component *packager.PackagedComponent) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", errors.FileOperation("open archive", archivePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.FileOperation("stat archive", archivePath, err)
	}

	key := c.Key(component)
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType),
		Metadata: map[string]string{
			"component": component.Name,
			"version":   component.Version,
			"template":  component.Template.CanonicalType,
		},
	})
	if err != nil {
		return "", errors.UploadFailed("s3://"+c.bucket, component.Name, err).WithPath(key)
	}
	return "s3://" + c.bucket + "/" + key, nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
	// Profile selects a shared config profile. Empty uses AWS_PROFILE or
	// the default profile.
	Profile string
	// Static credentials replace the default chain when AccessKeyID is set.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewS3Client builds an S3 client from the SDK's default configuration
// chain (environment, shared config and credentials files, SSO, web
// identity and instance roles). Endpoint and PathStyle override the loaded
// configuration.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.ConfigurationError("publish.s3", "loading AWS configuration failed", opts.Profile).
			WithDetails(err.Error())
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}
