package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// uploadAPI is the part of the s3 transfer manager used by S3Store.
type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// headBucketAPI is used by the health check.
type headBucketAPI interface {
	HeadBucket(ctx context.Context, input *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store uploads exports to a bucket with the s3 transfer manager.
type S3Store struct {
	uploader uploadAPI
	head     headBucketAPI
	bucket   string
	prefix   string
}

// NewS3Store loads AWS configuration and builds an uploader. Static credentials, a custom
// endpoint and path-style addressing are applied when configured, for MinIO and similar.
func NewS3Store(ctx context.Context, cfg datamimic.S3Config) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, datamimic.NewExportError("load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		uploader: manager.NewUploader(client),
		head:     client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

// Put uploads body to bucket/prefix/key.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (*datamimic.ExportResult, error) {
	objectKey := path.Join(s.prefix, key)
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, classifyS3Error(err).
			WithDetail("bucket", s.bucket).
			WithDetail("key", objectKey)
	}

	location := out.Location
	if location == "" {
		location = "s3://" + s.bucket + "/" + objectKey
	}
	zap.S().Infow("exported dataset", "backend", "s3", "bucket", s.bucket, "key", objectKey, "bytes", len(body))
	return &datamimic.ExportResult{Location: location, Size: int64(len(body))}, nil
}

// classifyS3Error keeps the service error code when the SDK reports one.
func classifyS3Error(err error) *datamimic.DatamimicError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return datamimic.NewExportError("s3 upload failed: "+apiErr.ErrorCode(), err).
			WithDetail("awsCode", apiErr.ErrorCode()).
			WithDetail("awsMessage", apiErr.ErrorMessage())
	}
	return datamimic.NewExportError("s3 upload failed", err)
}

// Ping checks that the bucket exists and the credentials can reach it.
func (s *S3Store) Ping(ctx context.Context) error {
	if s.head == nil {
		return nil
	}
	if _, err := s.head.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("s3 bucket %s: %s", s.bucket, apiErr.ErrorCode())
		}
		return fmt.Errorf("s3 bucket %s: %w", s.bucket, err)
	}
	return nil
}
