package cart

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// Store persists cart snapshots in redis under a fixed per-session key.
// Persistence is advisory: a snapshot that cannot be decoded is discarded
// and the session starts with an empty cart.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Load(ctx context.Context, sessionID string) (*Cart, error) {
	c := New()
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return c, nil
		}
		return nil, err
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		// stale or corrupt snapshot: start clean
		return c, nil
	}
	c.Restore(snap)
	return c, nil
}

func (s *Store) Save(ctx context.Context, sessionID string, c *Cart) error {
	data, err := EncodeSnapshot(c.Snapshot())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}
