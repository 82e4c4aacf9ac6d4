// Package secrets resolves named secrets, such as the object-storage access
// key pair, from the backend the deployment keeps them in.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// ErrNotFound is returned when a named secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Store looks up a secret value by name.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvStore reads secrets from environment variables named Prefix plus the
// upper-cased secret name, e.g. access_key -> ETL_VAR_ACCESS_KEY.
type EnvStore struct {
	Prefix string
}

// Get implements Store.
func (s EnvStore) Get(_ context.Context, name string) (string, error) {
	key := s.Prefix + strings.ToUpper(name)
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, key)
	}
	return v, nil
}

// FileStore reads secrets from one file per name under Dir, the layout used by
// Docker and Kubernetes secret mounts. A single trailing newline is dropped.
type FileStore struct {
	Dir string
}

// Get implements Store.
func (s FileStore) Get(_ context.Context, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid secret name %q", ErrNotFound, name)
	}
	path := filepath.Join(s.Dir, name)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	v := strings.TrimSuffix(strings.TrimSuffix(string(b), "\n"), "\r")
	if v == "" {
		return "", fmt.Errorf("%w: file %s is empty", ErrNotFound, path)
	}
	return v, nil
}

// LoadCredentials resolves the access key pair. Error messages name the
// missing secret but never carry a value.
func LoadCredentials(ctx context.Context, store Store, accessName, secretName string) (domain.Credentials, error) {
	access, err := store.Get(ctx, accessName)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load %s: %w", accessName, err)
	}
	secret, err := store.Get(ctx, secretName)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load %s: %w", secretName, err)
	}
	return domain.Credentials{AccessKey: access, SecretKey: secret}, nil
}
