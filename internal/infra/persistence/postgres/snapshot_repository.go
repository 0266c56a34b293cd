package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	domcart "example.com/shoecart/internal/domain/cart"
)

const snapshotSchema = `
    CREATE TABLE IF NOT EXISTS cart_snapshots (
        snapshot_key TEXT PRIMARY KEY,
        payload      JSONB       NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    )
`

type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// Open connects a pool and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "pg connect")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pg ping")
	}
	return pool, nil
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, snapshotSchema)
	return errors.Wrap(err, "create cart_snapshots")
}

func (r *SnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `
        SELECT payload::text FROM cart_snapshots WHERE snapshot_key = $1
    `, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domcart.ErrSnapshotNotFound
		}
		return nil, errors.Wrapf(err, "load snapshot %q", key)
	}
	return payload, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO cart_snapshots (snapshot_key, payload, updated_at)
        VALUES ($1, $2::jsonb, now())
        ON CONFLICT (snapshot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
    `, key, string(data))
	return errors.Wrapf(err, "save snapshot %q", key)
}
