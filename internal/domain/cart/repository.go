package cart

import "context"

// SnapshotStore is the durable key/value mirror of a cart.
type SnapshotStore interface {
	// Load returns ErrSnapshotNotFound when nothing was saved under key.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

type Notifier interface {
	Error(ctx context.Context, message string)
}
