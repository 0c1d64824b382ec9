package services

import (
	"context"
	stderrors "errors"

	"github.com/conneroisu/ocpack/internal/config"
	"github.com/conneroisu/ocpack/internal/errors"
	"github.com/conneroisu/ocpack/internal/publish"
)

// PublishService packages, compresses and hands components to a consumer.
type PublishService struct {
	container *Container
	consumer  publish.Consumer
}

// PublishServiceOption configures a PublishService.
type PublishServiceOption func(*PublishService)

// WithConsumer replaces the consumer chosen from publish.target.
func WithConsumer(consumer publish.Consumer) PublishServiceOption {
	return func(s *PublishService) { s.consumer = consumer }
}

// NewPublishService creates a new publish service
func NewPublishService(c *Container, opts ...PublishServiceOption) *PublishService {
	s := &PublishService{container: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishOptions contains options for publishing
type PublishOptions struct {
	Target  string
	DryRun  bool
	TempDir string
}

// Publish publishes each component in turn. A failure does not stop the
// remaining components; results hold the successes.
func (s *PublishService) Publish(ctx context.Context, paths []string, opts PublishOptions) ([]*publish.Result, error) {
	if len(paths) == 0 {
		return nil, errors.InvalidArgument("paths", "at least one component path is required", nil)
	}

	consumer, err := s.consumerFor(ctx, opts.Target)
	if err != nil {
		return nil, err
	}

	c := s.container
	publisher := publish.NewPublisher(c.Packager, c.Compressor, consumer,
		publish.WithTempDir(opts.TempDir),
		publish.WithDryRun(opts.DryRun),
		publish.WithLogger(c.Logger),
	)

	results := make([]*publish.Result, 0, len(paths))
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := publisher.Publish(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, stderrors.Join(errs...)
}

func (s *PublishService) consumerFor(ctx context.Context, target string) (publish.Consumer, error) {
	if s.consumer != nil {
		return s.consumer, nil
	}

	cfg := s.container.Config.Publish
	if target == "" {
		target = cfg.Target
	}

	switch target {
	case config.TargetDirectory:
		return publish.NewDirectoryConsumer(cfg.Directory), nil
	case config.TargetS3:
		if cfg.S3.Bucket == "" {
			return nil, errors.ConfigurationError("publish.s3.bucket", "required when publishing to s3", nil)
		}
		client, err := publish.NewS3Client(ctx, publish.S3Options{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
			Profile:   cfg.S3.Profile,
		})
		if err != nil {
			return nil, err
		}
		return publish.NewS3Consumer(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	default:
		return nil, errors.InvalidArgument("target", "must be directory or s3", target)
	}
}
