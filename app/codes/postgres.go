package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps codes in the deletion_codes table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store over db. The schema comes from migrations/.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	insertCodeSQL = `INSERT INTO deletion_codes (code, message_id) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`
	selectCodeSQL = `SELECT message_id::text FROM deletion_codes WHERE code = $1`
	deleteCodeSQL = `DELETE FROM deletion_codes WHERE code = $1`
)

// SetNX implements Store. value must be a decimal message id.
func (s *PostgresStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("postgres setnx: message id %q: %w", value, err)
	}
	res, err := s.db.ExecContext(ctx, insertCodeSQL, key, id)
	if err != nil {
		return false, fmt.Errorf("postgres setnx: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres setnx: %w", err)
	}
	return n == 1, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.GetContext(ctx, &val, selectCodeSQL, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMissing
	}
	if err != nil {
		return "", fmt.Errorf("postgres get: %w", err)
	}
	return val, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteCodeSQL, key); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}
