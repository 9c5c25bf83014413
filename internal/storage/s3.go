package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Client wraps the AWS S3 client with upload and presign helpers
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	presigner  *s3.PresignClient
	bucketName string
}

// FileMetadata describes an object written by Upload
type FileMetadata struct {
	OriginalName string            `json:"original_name"`
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	Metadata     map[string]string `json:"metadata"`
}

// NewS3Client creates a new S3 client
func NewS3Client(ctx context.Context, bucketName string) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3ClientFromConfig(cfg, bucketName), nil
}

// NewS3ClientFromConfig builds a client from an existing AWS config.
func NewS3ClientFromConfig(cfg aws.Config, bucketName string) *S3Client {
	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		presigner:  s3.NewPresignClient(cli),
		bucketName: bucketName,
	}
}

// Bucket returns the configured bucket name.
func (s *S3Client) Bucket() string { return s.bucketName }

// UploadFile uploads data under key. Large bodies are sent as multipart
// uploads by the transfer manager.
func (s *S3Client) UploadFile(ctx context.Context, key string, data []byte, metadata *FileMetadata) error {
	s3Metadata := make(map[string]string)
	contentType := "application/octet-stream"
	if metadata != nil {
		if metadata.OriginalName != "" {
			s3Metadata["name"] = metadata.OriginalName
		}
		if metadata.ContentType != "" {
			contentType = metadata.ContentType
		}
		for k, v := range metadata.Metadata {
			s3Metadata[k] = v
		}
	}

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      s3Metadata,
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("UploadFile: upload failed")
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("key", key).Str("location", out.Location).Int("size", len(data)).Msg("uploaded file to S3")
	return nil
}

// PresignGet returns a time-limited GET URL for key.
func (s *S3Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}
	return req.URL, nil
}

// Ping checks that the bucket exists and is reachable.
func (s *S3Client) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucketName, err)
	}
	return nil
}
