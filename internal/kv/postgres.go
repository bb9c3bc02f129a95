package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

// Postgres implements Store on top of PostgreSQL. Expiry is lazy: reads
// treat expired rows as absent and purge them on the way.
type Postgres struct {
	DB *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_items (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    expires_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS kv_list_items (
    key   TEXT NOT NULL,
    seq   BIGSERIAL PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS kv_list_items_key_idx ON kv_list_items (key);

CREATE TABLE IF NOT EXISTS kv_list_meta (
    key        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ
);
`

// Connect opens the database, verifies the connection and makes sure the
// key-value tables exist.
func Connect(connString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &Postgres{DB: db}, nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.DB.QueryRowContext(ctx, `
		SELECT value FROM kv_items
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO kv_items (key, value, expires_at)
		VALUES ($1, $2, CASE WHEN $3 > 0 THEN now() + ($3 * interval '1 second') ELSE NULL END)
		ON CONFLICT (key) DO UPDATE SET
			value      = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at
	`, key, value, int64(ttl.Seconds()))
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.DB.ExecContext(ctx, `DELETE FROM kv_items WHERE key = $1`, key)
	return err
}

// Incr is a single atomic upsert. An expired counter is reset to 1 instead
// of being incremented, which mirrors lazy key expiry: concurrent
// increments from the same tenant always observe distinct values.
func (p *Postgres) Incr(ctx context.Context, key string) (int64, error) {
	var value int64
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO kv_items (key, value, expires_at)
		VALUES ($1, '1', NULL)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE
				WHEN kv_items.expires_at IS NOT NULL AND kv_items.expires_at <= now()
				THEN '1'
				ELSE (kv_items.value::bigint + 1)::text
			END,
			expires_at = CASE
				WHEN kv_items.expires_at IS NOT NULL AND kv_items.expires_at <= now()
				THEN NULL
				ELSE kv_items.expires_at
			END
		RETURNING value::bigint
	`, key).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (p *Postgres) Expire(ctx context.Context, key string, ttl time.Duration) error {
	secs := int64(ttl.Seconds())
	if _, err := p.DB.ExecContext(ctx, `
		UPDATE kv_items SET expires_at = now() + ($2 * interval '1 second') WHERE key = $1
	`, key, secs); err != nil {
		return err
	}
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO kv_list_meta (key, expires_at)
		SELECT $1, now() + ($2 * interval '1 second')
		WHERE EXISTS (SELECT 1 FROM kv_list_items WHERE key = $1)
		ON CONFLICT (key) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`, key, secs)
	return err
}

func (p *Postgres) LPush(ctx context.Context, key, value string) error {
	if err := p.purgeExpiredList(ctx, key); err != nil {
		return err
	}
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO kv_list_items (key, value) VALUES ($1, $2)
	`, key, value)
	return err
}

func (p *Postgres) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := p.purgeExpiredList(ctx, key); err != nil {
		return nil, err
	}

	// stop == -1 means "to the end", as in the Redis convention.
	limit := int64(-1)
	if stop >= 0 {
		limit = stop - start + 1
	}

	rows, err := p.DB.QueryContext(ctx, `
		SELECT value FROM kv_list_items
		WHERE key = $1
		ORDER BY seq DESC
		OFFSET $2
		LIMIT CASE WHEN $3 >= 0 THEN $3 ELSE NULL END
	`, key, start, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (p *Postgres) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	if err := p.purgeExpiredList(ctx, key); err != nil {
		return 0, err
	}
	res, err := p.DB.ExecContext(ctx, `
		DELETE FROM kv_list_items
		WHERE seq IN (
			SELECT seq FROM kv_list_items
			WHERE key = $1 AND value = $2
			ORDER BY seq DESC
			LIMIT $3
		)
	`, key, value, count)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Postgres) LLen(ctx context.Context, key string) (int64, error) {
	if err := p.purgeExpiredList(ctx, key); err != nil {
		return 0, err
	}
	var n int64
	if err := p.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM kv_list_items WHERE key = $1
	`, key).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *Postgres) purgeExpiredList(ctx context.Context, key string) error {
	res, err := p.DB.ExecContext(ctx, `
		DELETE FROM kv_list_meta WHERE key = $1 AND expires_at <= now()
	`, key)
	if err != nil {
		return err
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if purged > 0 {
		_, err = p.DB.ExecContext(ctx, `DELETE FROM kv_list_items WHERE key = $1`, key)
	}
	return err
}
