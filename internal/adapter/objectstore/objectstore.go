// Package objectstore defines the write side of an S3-compatible object store
// and the errors its drivers map provider failures to.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrUnavailable        = errors.New("object store unavailable")
)

// Config is everything a driver needs to reach one bucket.
type Config struct {
	Endpoint    string // host:port, no scheme
	Region      string
	URLStyle    string // "path" or "vhost"
	UseSSL      bool
	Bucket      string
	Credentials domain.Credentials
}

// Validate checks the fields every driver requires.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("object store endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("object store endpoint must not include a scheme: %q", c.Endpoint)
	}
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.Credentials.AccessKey == "" || c.Credentials.SecretKey == "" {
		return errors.New("access key and secret key are required")
	}
	return nil
}

// PathStyle reports whether requests address the bucket in the URL path.
func (c Config) PathStyle() bool {
	return c.URLStyle != "vhost"
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// Store reads and writes whole objects. A successful Put atomically replaces
// any existing object at key.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Factory opens a Store for a config.
type Factory func(ctx context.Context, cfg Config) (Store, error)

// Error records the failed operation and the object it targeted.
type Error struct {
	Op     string
	Driver string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s s3://%s/%s: %v", e.Driver, e.Op, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyCode maps an S3 error code to a sentinel, or returns nil for codes
// that have none.
func ClassifyCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied", "Forbidden":
		return ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return ErrInvalidCredentials
	case "ServiceUnavailable", "InternalError", "SlowDown", "RequestTimeout":
		return ErrUnavailable
	}
	return nil
}

// Wrap builds an *Error, joining the classified sentinel with the cause so
// both stay matchable.
func Wrap(driver, op, bucket, key, code string, err error) error {
	if sentinel := ClassifyCode(code); sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &Error{Op: op, Driver: driver, Bucket: bucket, Key: key, Err: err}
}
