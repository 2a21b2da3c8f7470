package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// scalarField is the field value used for plain (non-hash) keys in the
// kv_entries table, which has PRIMARY KEY (k, field).
const scalarField = ""

// PostgresStore backs KV with a kv_entries table. Selected when the
// deployment wants the session state in the same Postgres the rest of the
// platform runs on instead of a Redis instance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates and validates a PostgreSQL connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string, maxConns int32, log zerolog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Int32("max_conns", maxConns).
		Msg("PostgreSQL store connected")

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.pool.QueryRow(ctx,
		`SELECT v FROM kv_entries WHERE k = $1 AND field = $2`,
		key, scalarField,
	).Scan(&val)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	return s.upsert(ctx, key, scalarField, value)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE k = $1`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) HSet(ctx context.Context, key, field, value string) error {
	return s.upsert(ctx, key, field, value)
}

func (s *PostgresStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT field, v FROM kv_entries WHERE k = $1 AND field <> $2`,
		key, scalarField,
	)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, val string
		if err := rows.Scan(&field, &val); err != nil {
			return nil, fmt.Errorf("scan %s: %w", key, err)
		}
		out[field] = val
	}
	return out, rows.Err()
}

func (s *PostgresStore) upsert(ctx context.Context, key, field, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (k, field, v) VALUES ($1, $2, $3)
		 ON CONFLICT (k, field) DO UPDATE SET v = EXCLUDED.v, updated_at = NOW()`,
		key, field, value,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
