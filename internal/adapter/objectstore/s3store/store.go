// Package s3store reads and writes objects with the AWS SDK, for AWS S3 or any
// S3-compatible endpoint.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
)

const driver = "s3"

// api is the subset of *s3.Client the store uses.
type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements objectstore.Store on aws-sdk-go-v2.
type Store struct {
	client api
	bucket string
}

var _ objectstore.Store = (*Store)(nil)

// New loads an AWS config with the static credentials from cfg and points the
// client at cfg.Endpoint.
func New(ctx context.Context, cfg objectstore.Config) (objectstore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Credentials.AccessKey,
			cfg.Credentials.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle()
		o.BaseEndpoint = aws.String(endpointURL(cfg))
		// S3-compatible stores do not all accept the SDK's default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func endpointURL(cfg objectstore.Config) string {
	if cfg.UseSSL {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}

// Put implements objectstore.Store.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (objectstore.ObjectInfo, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		return objectstore.ObjectInfo{}, s.wrapError("put", key, err)
	}
	return objectstore.ObjectInfo{
		Bucket: s.bucket,
		Key:    key,
		ETag:   aws.ToString(out.ETag),
		Size:   size,
	}, nil
}

// Get implements objectstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.wrapError("get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, s.wrapError("get", key, err)
	}
	return data, nil
}

func (s *Store) wrapError(op, key string, err error) error {
	var code string
	var noSuchBucket *types.NoSuchBucket
	var noSuchKey *types.NoSuchKey
	var apiErr smithy.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &noSuchBucket):
		code = "NoSuchBucket"
	case errors.As(err, &noSuchKey):
		code = "NoSuchKey"
	case errors.As(err, &apiErr):
		code = apiErr.ErrorCode()
	case errors.As(err, &netErr):
		code = "ServiceUnavailable"
	}
	return objectstore.Wrap(driver, op, s.bucket, key, code, err)
}
