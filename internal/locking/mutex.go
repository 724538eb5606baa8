package locking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// compare-and-delete so an expired holder cannot release a lock taken over by
// another instance.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// mutex is a single-node Redis lock keyed per resource.
type mutex struct {
	client *redis.Client
}

func newMutex(client *redis.Client) *mutex {
	return &mutex{client: client}
}

// acquire takes key for ttl. It returns ErrBusy when the key is already held and
// an unlock func otherwise.
func (m *mutex) acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if key == "" || ttl <= 0 {
		return nil, errors.New("locking: key and ttl are required")
	}

	holder := uuid.NewString()
	err := m.client.SetArgs(ctx, key, holder, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrBusy
	case err != nil:
		return nil, err
	}

	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, m.client, []string{key}, holder).Err()
	}, nil
}
