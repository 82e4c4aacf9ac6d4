package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrEncrypted is returned for variables stored with Fernet encryption, which
// this job cannot decrypt.
var ErrEncrypted = errors.New("secret is stored encrypted")

const selectVariable = `SELECT val, is_encrypted FROM variable WHERE key = $1`

// rowQuerier is the subset of *pgxpool.Pool the store needs.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads secrets from an orchestrator metadata database's
// "variable" table (key, val, is_encrypted).
type PostgresStore struct {
	db rowQuerier
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(db rowQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, name string) (string, error) {
	var (
		val       *string
		encrypted *bool
	)
	err := s.db.QueryRow(ctx, selectVariable, name).Scan(&val, &encrypted)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: variable %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("query variable %s: %w", name, err)
	}
	if encrypted != nil && *encrypted {
		return "", fmt.Errorf("variable %s: %w", name, ErrEncrypted)
	}
	if val == nil || *val == "" {
		return "", fmt.Errorf("%w: variable %s is empty", ErrNotFound, name)
	}
	return *val, nil
}
