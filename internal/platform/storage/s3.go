package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"gifable/internal/platform/config"
)

// S3Store stores media objects in an S3-compatible bucket (AWS, minio, etc).
type S3Store struct {
	client     *s3.Client
	bucket     string
	pathPrefix string
	publicURL  string
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Custom endpoints (minio) typically need path-style addressing.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		pathPrefix: strings.Trim(cfg.PathPrefix, "/"),
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (s *S3Store) GetObject(ctx context.Context, filename string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.MakeFilePath(filename)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", filename, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *S3Store) PutObject(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.MakeFilePath(filename)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", filename, err)
	}
	return s.ObjectURL(filename), nil
}

func (s *S3Store) DeleteObject(ctx context.Context, filename string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.MakeFilePath(filename)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", filename, err)
	}
	return nil
}

func (s *S3Store) FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	base, err := url.Parse(s.publicURL)
	if err != nil || base.Host == "" {
		return ""
	}
	if u.Host != base.Host {
		return ""
	}

	rel := strings.TrimPrefix(u.Path, base.Path)
	rel = strings.Trim(rel, "/")
	if s.pathPrefix != "" {
		rel = strings.TrimPrefix(rel, s.pathPrefix+"/")
	}
	if rel == "" || strings.Contains(rel, "/") {
		return ""
	}
	return rel
}

func (s *S3Store) MakeFilePath(filename string) string {
	if s.pathPrefix == "" {
		return filename
	}
	return path.Join(s.pathPrefix, filename)
}

func (s *S3Store) ObjectURL(filename string) string {
	return s.publicURL + "/" + s.MakeFilePath(filename)
}

var _ ObjectStore = (*S3Store)(nil)
