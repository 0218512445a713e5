package storage

import (
	"alcyxob/exercise-tracker/internal/config"
	"alcyxob/exercise-tracker/internal/domain"
	"bytes"
	"context"
	"encoding/json"

	"cdr.dev/slog/v3"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3ReportStore implements ReportStore using an S3-compatible backend.
type s3ReportStore struct {
	client     *s3.Client
	bucketName string
	prefix     string // Key prefix for every report, e.g. "cutover/"
	logger     slog.Logger
}

// NewS3ReportStore creates a report store for the configured bucket.
func NewS3ReportStore(ctx context.Context, cfg config.S3Config, logger slog.Logger) (ReportStore, error) {
	// Custom resolver for S3-compatible endpoints (like MinIO, DigitalOcean Spaces)
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		// Use the custom endpoint URL from config when set
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws", // Usually "aws" even for compatible storage
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// Fall back to default AWS endpoint resolution
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	// Load AWS configuration with static credentials from config
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsCfg.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, err
	}

	// Force path-style addressing required by most S3-compatible services (like MinIO)
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		o.UsePathStyle = true // Needed for MinIO without a domain setting
	})

	logger = logger.Named("reports")
	logger.Info(ctx, "s3 report store initialized",
		slog.F("endpoint", cfg.Endpoint),
		slog.F("bucket", cfg.BucketName),
		slog.F("prefix", cfg.ReportPrefix),
	)

	return &s3ReportStore{
		client:     s3Client,
		bucketName: cfg.BucketName,
		prefix:     cfg.ReportPrefix,
		logger:     logger,
	}, nil
}

// PutReport uploads the report as indented JSON.
func (s *s3ReportStore) PutReport(ctx context.Context, report *domain.CutoverReport) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	key := ReportKey(s.prefix, report)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		// Each run has its own key under the closed day, so reruns keep earlier reports
	})
	if err != nil {
		s.logger.Error(ctx, "upload cutover report", slog.F("key", key), slog.Error(err))
		return "", err
	}

	s.logger.Debug(ctx, "uploaded cutover report", slog.F("key", key), slog.F("bytes", len(body)))
	return key, nil
}
