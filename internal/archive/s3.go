package archive

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dirsnap/internal/config"
)

// S3Archive stores snapshot artifacts in an S3 bucket using multipart
// uploads for large snapshot databases.
type S3Archive struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Archive creates an archive backed by the configured bucket. With no
// explicit access keys the default AWS credential chain is used (env,
// shared config, instance role).
func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig) (*S3Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Archive{
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

// Put uploads the artifact to <prefix>/<name> in the bucket. The uploader
// decides the part split itself, so size is not forwarded.
func (a *S3Archive) Put(ctx context.Context, name string, r io.Reader, _ int64) error {
	key := name
	if a.prefix != "" {
		key = path.Join(a.prefix, name)
	}

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading %s to s3://%s/%s: %w", name, a.bucket, key, err)
	}
	return nil
}

// Compile-time check that S3Archive implements Archive.
var _ Archive = (*S3Archive)(nil)
