// Package objstore talks to the bucket holding interview media, diarization output and run logs
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	perr "emolens/internal/platform/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// api is the subset of *s3.Client we call
type api interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// Store reads and writes objects in one bucket
type Store struct {
	client api
	bucket string
}

var _ api = (*awss3.Client)(nil)

// Open builds an S3 client from cfg. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "objstore: load aws config")
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket), nil
}

// New wraps an existing client; tests pass a fake
func New(client api, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Bucket returns the bucket name
func (s *Store) Bucket() string { return s.bucket }

// Ping checks the bucket is reachable with the configured credentials
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: bucket %q", s.bucket)
	}
	return nil
}

// Get returns a reader for key; the caller closes it. Missing keys map to ErrorCodeNotFound.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(err, "get", key)
	}
	return out.Body, nil
}

// Put uploads body under key. size < 0 means unknown.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	in := &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return classify(err, "put", key)
	}
	return nil
}

// Exists reports whether key is present
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if err = classify(err, "head", key); perr.IsCode(err, perr.ErrorCodeNotFound) {
		return false, nil
	}
	return false, err
}

// Fetch downloads key into a new temp file in dir (os.TempDir when empty).
// The returned cleanup removes the file and is safe to call more than once.
func (s *Store) Fetch(ctx context.Context, key, dir, pattern string) (path string, cleanup func(), err error) {
	body, err := s.Get(ctx, key)
	if err != nil {
		return "", func() {}, err
	}
	defer body.Close()

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("objstore: temp file: %w", err)
	}
	name := f.Name()
	cleanup = func() { _ = os.Remove(name) }

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: download %s", key)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("objstore: close temp file: %w", err)
	}
	return name, cleanup, nil
}

// classify maps S3 API errors onto project codes
func classify(err error, op, key string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return perr.Wrapf(err, perr.ErrorCodeNotFound, "objstore: %s %s", op, key)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "objstore: %s %s", op, key)
		}
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "objstore: %s %s", op, key)
}
