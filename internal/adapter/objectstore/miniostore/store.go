// Package miniostore reads and writes objects with the MinIO client.
package miniostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
)

const driver = "minio"

// api is the subset of the MinIO client the store uses.
type api interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	getObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// client adapts *minio.Client, whose GetObject returns a concrete *minio.Object.
type client struct {
	*minio.Client
}

func (c client) getObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

// Store implements objectstore.Store on minio-go.
type Store struct {
	client api
	bucket string
}

var _ objectstore.Store = (*Store)(nil)

// New builds a client for cfg. No request is made until Put.
func New(_ context.Context, cfg objectstore.Config) (objectstore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupPath
	if !cfg.PathStyle() {
		lookup = minio.BucketLookupDNS
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.Credentials.AccessKey, cfg.Credentials.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
		Transport:    newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client{mc}, bucket: cfg.Bucket}, nil
}

// Put implements objectstore.Store.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (objectstore.ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return objectstore.ObjectInfo{}, s.wrapError("put", key, err)
	}
	return objectstore.ObjectInfo{Bucket: s.bucket, Key: key, ETag: info.ETag, Size: info.Size}, nil
}

// Get implements objectstore.Store. MinIO reports a missing key on the first
// read, not on GetObject.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.getObject(ctx, s.bucket, key)
	if err != nil {
		return nil, s.wrapError("get", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrapError("get", key, err)
	}
	return data, nil
}

func (s *Store) wrapError(op, key string, err error) error {
	code := minio.ToErrorResponse(err).Code
	var netErr net.Error
	if code == "" && errors.As(err, &netErr) {
		code = "ServiceUnavailable"
	}
	return objectstore.Wrap(driver, op, s.bucket, key, code, err)
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
