package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config configures an S3LogSink.
// Endpoint is only needed for S3 compatible stores (e.g. MinIO); an empty AccessKey uses the default AWS credential chain.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// s3PutObjectAPI is the part of the S3 client used by the sink
type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3LogSink stores each batch as a JSON object at {prefix}/YYYY/MM/DD/{uuid}.json
type S3LogSink struct {
	client s3PutObjectAPI
	bucket string
	prefix string
}

// NewS3LogSink creates the S3 client and the sink
func NewS3LogSink(ctx context.Context, cfg S3Config) (*S3LogSink, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3LogSink(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3LogSink(client s3PutObjectAPI, bucket, prefix string) *S3LogSink {
	return &S3LogSink{client: client, bucket: bucket, prefix: prefix}
}

// objectKey returns the key for a batch received at t
func (s *S3LogSink) objectKey(t time.Time) string {
	t = t.UTC()
	return path.Join(s.prefix,
		fmt.Sprintf("%04d/%02d/%02d", t.Year(), t.Month(), t.Day()),
		uuid.NewString()+".json",
	)
}

func (s *S3LogSink) Write(ctx context.Context, batch DeviceLogBatch) error {
	if len(batch.Logs) == 0 {
		return nil
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal device log batch: %w", err)
	}

	key := s.objectKey(batch.ReceivedAt)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload device logs to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
