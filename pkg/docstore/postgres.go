package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents as JSONB rows in the documents table (see pkg/database migrations).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	const q = `SELECT body FROM documents WHERE collection = $1 AND id = $2`
	var body []byte
	err := p.pool.QueryRow(ctx, q, collection, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return body, nil
}

// Save upserts a document; created_at is kept from the first insert so ordering is stable.
func (p *Postgres) Save(ctx context.Context, collection, id string, body json.RawMessage) error {
	const q = `INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
	if _, err := p.pool.Exec(ctx, q, collection, id, string(body)); err != nil {
		return fmt.Errorf("save %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	tag, err := p.pool.Exec(ctx, q, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FindByField(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	const q = `SELECT body FROM documents WHERE collection = $1 AND body->>$2 = $3 ORDER BY created_at, id`
	return p.query(ctx, q, collection, field, value)
}

func (p *Postgres) FindAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	const q = `SELECT body FROM documents WHERE collection = $1 ORDER BY created_at, id`
	return p.query(ctx, q, collection)
}

// Close is a no-op: the pool is owned by the caller.
func (p *Postgres) Close(context.Context) error { return nil }

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		list = append(list, body)
	}
	return list, rows.Err()
}
