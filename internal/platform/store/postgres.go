package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type queryable interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const upsertSQL = `
	INSERT INTO record_store (key, value, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

// PostgresKV stores records in the record_store table created by
// migrations/001_record_store.sql.
type PostgresKV struct {
	db queryable
}

func NewPostgresKV(db queryable) *PostgresKV {
	return &PostgresKV{db: db}
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM record_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx, upsertSQL, key, string(value))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Update runs in one transaction. A transaction-scoped advisory lock on the key
// serializes updaters even before the row exists; FOR UPDATE covers plain Sets.
func (p *PostgresKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}

		var current []byte
		found := true
		err := tx.QueryRow(ctx, `SELECT value FROM record_store WHERE key = $1 FOR UPDATE`, key).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
		} else if err != nil {
			return fmt.Errorf("select %s: %w", key, err)
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertSQL, key, string(next)); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
		return nil
	})
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM record_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.db.Query(ctx, `SELECT key FROM record_store WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}
