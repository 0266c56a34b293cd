package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	domcart "example.com/shoecart/internal/domain/cart"
)

type SnapshotRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewClient accepts either a redis:// URL or a bare host:port address.
func NewClient(addr string) *goredis.Client {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}
	}
	return goredis.NewClient(opts)
}

// NewSnapshotRepository stores snapshots as plain string values. A zero ttl keeps them forever.
func NewSnapshotRepository(client *goredis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{client: client, ttl: ttl}
}

func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return errors.Wrap(r.client.Ping(ctx).Err(), "redis ping")
}

func (r *SnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domcart.ErrSnapshotNotFound
		}
		return nil, errors.Wrapf(err, "redis get %q", key)
	}
	return data, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte) error {
	return errors.Wrapf(r.client.Set(ctx, key, data, r.ttl).Err(), "redis set %q", key)
}
