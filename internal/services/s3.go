package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pageguard/internal/config"
	"pageguard/internal/utils/logger"
)

// Ensure S3Service can receive archives
var _ ObjectUploader = (*S3Service)(nil)

type S3Service struct {
	client     *s3.Client
	bucketName string
	logger     *logger.Logger
}

func NewS3Service(ctx context.Context, cfg config.S3Config) (*S3Service, error) {
	log := logger.New("S3")

	// Validate required credentials
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, log.Error("S3 credentials are empty ❌", fmt.Errorf("accessKey or secretKey is empty"))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, log.Error("Unable to load SDK config ❌", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// MinIO and other S3 compatible stores
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// Verify credentials and bucket before the first archive depends on them
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, log.Error("Failed to verify S3 bucket %s ❌", err, cfg.BucketName)
	}

	log.Success("S3 service initialized for bucket %s ✅", cfg.BucketName)

	return &S3Service{
		client:     client,
		bucketName: cfg.BucketName,
		logger:     log,
	}, nil
}

// PutObject stores body under key as a private object.
func (s *S3Service) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	s.logger.Info("📤 Uploading %s (%d bytes)", key, len(body))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ACL:         types.ObjectCannedACLPrivate,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return s.logger.Error("Failed to upload %s ❌", err, key)
	}
	return nil
}
