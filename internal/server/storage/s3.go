package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/crateport/crateport/internal/common"
)

// Seams for testing the AWS wiring without network access.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Options configure an S3Storage.
type S3Options struct {
	Region    string
	Bucket    string
	KeyPrefix string

	// Endpoint substitutes a custom S3-compatible endpoint for the default
	// region endpoint (e.g. local testing with minio).
	Endpoint string

	// AccessKeyID / SecretAccessKey are static credentials. When empty, the
	// default chain applies: environment variables, then the shared profile
	// config file, then instance identity.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage stores blobs in an object store under keys
// {key_prefix}/{name}/{version} and {key_prefix}/{name}/{version}.readme.
// Put atomicity is provided by the backend.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{client: client, bucket: opts.Bucket, keyPrefix: opts.KeyPrefix}, nil
}

func (s *S3Storage) crateKey(name, version string) string {
	return fmt.Sprintf("%s/%s/%s", s.keyPrefix, name, version)
}

func (s *S3Storage) readmeKey(name, version string) string {
	return fmt.Sprintf("%s/%s/%s.readme", s.keyPrefix, name, version)
}

func (s *S3Storage) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("%w: putting %q: %s", common.ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *S3Storage) getObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("blob %q: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: getting %q: %s", common.ErrStorageUnavailable, key, err)
	}
	return out.Body, nil
}

func (s *S3Storage) getObjectData(ctx context.Context, key string) ([]byte, error) {
	body, err := s.getObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (s *S3Storage) deleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %q: %s", common.ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *S3Storage) PutCrate(ctx context.Context, name, version string, data []byte) error {
	return s.putObject(ctx, s.crateKey(name, version), data)
}

func (s *S3Storage) GetCrate(ctx context.Context, name, version string) ([]byte, error) {
	return s.getObjectData(ctx, s.crateKey(name, version))
}

func (s *S3Storage) ReadCrate(ctx context.Context, name, version string) (io.ReadCloser, error) {
	return s.getObject(ctx, s.crateKey(name, version))
}

func (s *S3Storage) DeleteCrate(ctx context.Context, name, version string) error {
	return s.deleteObject(ctx, s.crateKey(name, version))
}

func (s *S3Storage) PutReadme(ctx context.Context, name, version string, data []byte) error {
	return s.putObject(ctx, s.readmeKey(name, version), data)
}

func (s *S3Storage) GetReadme(ctx context.Context, name, version string) ([]byte, error) {
	return s.getObjectData(ctx, s.readmeKey(name, version))
}

func (s *S3Storage) DeleteReadme(ctx context.Context, name, version string) error {
	return s.deleteObject(ctx, s.readmeKey(name, version))
}
