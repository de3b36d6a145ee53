package proofstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config carries connection settings for an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Store keeps proofs in an S3 bucket. Works against AWS or any
// path-style compatible endpoint such as MinIO.
type S3Store struct {
	client *s3.S3
	bucket string
}

var _ Store = (*S3Store)(nil)

// NewS3 builds a store from static credentials.
func NewS3(cfg S3Config) (*S3Store, error) {
	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")).
		WithS3ForcePathStyle(true)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &S3Store{client: s3.New(sess), bucket: cfg.Bucket}, nil
}

// Upload stores the object. The body is buffered because the S3 API
// needs a seekable reader; proofs are capped at a few megabytes upstream.
func (s *S3Store) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read proof body: %w", err)
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// SignedURL returns a presigned GET URL valid for ttl.
func (s *S3Store) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return url, nil
}

// List returns every object under prefix. LastModified stands in for
// creation time; proofs are written once and never rewritten.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			out = append(out, Object{
				Path:      aws.StringValue(obj.Key),
				CreatedAt: aws.TimeValue(obj.LastModified),
				Size:      aws.Int64Value(obj.Size),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return out, nil
}

// Remove deletes the given paths in one batch call.
func (s *S3Store) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make([]*s3.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(p)})
	}
	out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete %s: %s", aws.StringValue(first.Key), aws.StringValue(first.Message))
	}
	return nil
}
