package mysql

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	domcart "example.com/shoecart/internal/domain/cart"
)

const snapshotSchema = `
    CREATE TABLE IF NOT EXISTS cart_snapshots (
        snapshot_key VARCHAR(191) NOT NULL PRIMARY KEY,
        payload      LONGTEXT     NOT NULL,
        updated_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )
`

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, snapshotSchema)
	return errors.Wrap(err, "create cart_snapshots")
}

func (r *SnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
        SELECT payload FROM cart_snapshots WHERE snapshot_key = ?
    `, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domcart.ErrSnapshotNotFound
		}
		return nil, errors.Wrapf(err, "load snapshot %q", key)
	}
	return payload, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO cart_snapshots (snapshot_key, payload)
        VALUES (?, ?)
        ON DUPLICATE KEY UPDATE payload = VALUES(payload)
    `, key, data)
	return errors.Wrapf(err, "save snapshot %q", key)
}
