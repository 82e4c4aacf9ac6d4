package native

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/usgs"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/engine"
	"github.com/couchcryptid/quake-data-etl/internal/tabular"
)

const sampleCSV = `time,latitude,longitude,depth,mag,id
2025-06-01T23:52:11.440Z,38.8235,-122.8085,2.1,0.9,nc75183146
2025-06-01T22:10:03.120Z,61.2,-150.1,35,2.4,ak025
`

type fakeFetcher struct {
	body []byte
	err  error
	got  domain.SourceRequest
}

func (f *fakeFetcher) Fetch(_ context.Context, req domain.SourceRequest) ([]byte, error) {
	f.got = req
	return f.body, f.err
}

// memStore keeps objects in a map and counts Put calls.
type memStore struct {
	objects map[string][]byte
	puts    int
	cfg     objectstore.Config
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) factory(_ context.Context, cfg objectstore.Config) (objectstore.Store, error) {
	m.cfg = cfg
	return m, nil
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, size int64, _ string) (objectstore.ObjectInfo, error) {
	m.puts++
	if m.err != nil {
		return objectstore.ObjectInfo{}, m.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return objectstore.ObjectInfo{}, err
	}
	m.objects[key] = b
	return objectstore.ObjectInfo{Key: key, Size: size}, nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return b, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testPartition() domain.Partition {
	return domain.Partition{
		Bucket:      "prod",
		Layer:       "raw",
		Source:      "earthquake",
		RunDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		FileName:    "part-000",
		Format:      "parquet",
		Compression: "zstd",
	}
}

func testSource() domain.SourceRequest {
	return domain.SourceRequest{
		BaseURL: domain.DefaultSourceURL,
		Format:  "csv",
		Window:  domain.RunWindow{Start: "2025-06-01", End: "2025-06-02"},
	}
}

func openSession(t *testing.T, f Fetcher, store *memStore) engine.Session {
	t.Helper()
	e := New(f, store.factory, discard())
	s, err := e.Open(context.Background(), engine.SessionConfig{
		Credentials: domain.Credentials{AccessKey: "ak", SecretKey: "sk"},
		Endpoint:    "minio:9000",
		URLStyle:    "path",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCopy_WritesParquet(t *testing.T) {
	store := newMemStore()
	f := &fakeFetcher{body: []byte(sampleCSV)}
	s := openSession(t, f, store)

	res, err := s.Copy(context.Background(), testSource(), testPartition())
	require.NoError(t, err)

	assert.Equal(t, testSource(), f.got)
	assert.Equal(t, int64(2), res.Rows)
	assert.Equal(t, "prod", store.cfg.Bucket)
	assert.Equal(t, "minio:9000", store.cfg.Endpoint)

	obj, ok := store.objects["raw/earthquake/2025-06-01/part-000.parquet"]
	require.True(t, ok)
	assert.Equal(t, int64(len(obj)), res.Bytes)

	pf, err := parquet.OpenFile(bytes.NewReader(obj), int64(len(obj)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pf.NumRows())
}

func TestCopy_OverwritesExisting(t *testing.T) {
	store := newMemStore()
	key := testPartition().Key()
	store.objects[key] = []byte("old")

	s := openSession(t, &fakeFetcher{body: []byte(sampleCSV)}, store)
	_, err := s.Copy(context.Background(), testSource(), testPartition())
	require.NoError(t, err)
	assert.NotEqual(t, []byte("old"), store.objects[key])
	assert.Len(t, store.objects, 1)
}

func TestCopy_HeaderOnlyWritesZeroRows(t *testing.T) {
	store := newMemStore()
	s := openSession(t, &fakeFetcher{body: []byte("time,latitude,mag\n")}, store)

	res, err := s.Copy(context.Background(), testSource(), testPartition())
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.Equal(t, 1, store.puts)
}

func TestCopy_FailuresLeaveStoreUntouched(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		want    error
	}{
		{"upstream 500", &fakeFetcher{err: &usgs.StatusError{StatusCode: 500}}, usgs.ErrUpstreamStatus},
		{"empty body", &fakeFetcher{body: nil}, tabular.ErrEmptyInput},
		{"malformed", &fakeFetcher{body: []byte("a,b\n1\n")}, tabular.ErrMalformedRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			key := testPartition().Key()
			store.objects[key] = []byte("previous")

			s := openSession(t, tt.fetcher, store)
			_, err := s.Copy(context.Background(), testSource(), testPartition())
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.puts)
			assert.Equal(t, []byte("previous"), store.objects[key])
		})
	}
}

func TestCopy_StoreErrorIsRedacted(t *testing.T) {
	store := newMemStore()
	store.err = objectstore.Wrap("minio", "put", "prod", "k", "AccessDenied", errors.New("denied for sk"))

	s := openSession(t, &fakeFetcher{body: []byte(sampleCSV)}, store)
	_, err := s.Copy(context.Background(), testSource(), testPartition())
	require.ErrorIs(t, err, objectstore.ErrAccessDenied)
	assert.NotContains(t, err.Error(), "denied for sk")
}
