package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements Store using Redis
type RedisStore struct {
	client    *redis.Client
	config    *StoreConfig
	reads     int64
	commits   int64
	conflicts int64
}

// NewRedisStore creates a new Redis store instance
func NewRedisStore(config *StoreConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}

	// Single node only: a toggle touches two keys in unrelated hash slots,
	// which a cluster cannot run in one MULTI/EXEC.
	client := redis.NewClient(&redis.Options{
		Addr:         config.Redis.Address,
		Password:     config.Redis.Password,
		DB:           config.Redis.Database,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
		MaxConnAge:   config.Redis.MaxConnAge,
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return NewRedisStoreFromClient(client, config), nil
}

// NewRedisStoreFromClient wraps an existing client. Used by integration tests.
func NewRedisStoreFromClient(client *redis.Client, config *StoreConfig) *RedisStore {
	if config == nil {
		config = DefaultStoreConfig()
	}
	return &RedisStore{
		client: client,
		config: config,
	}
}

// SetCard returns the size of the set at key
func (r *RedisStore) SetCard(ctx context.Context, key string) (int64, error) {
	atomic.AddInt64(&r.reads, 1)
	n, err := r.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable("scard", err)
	}
	return n, nil
}

// SetIsMember checks if a member exists in the set at key
func (r *RedisStore) SetIsMember(ctx context.Context, key string, member string) (bool, error) {
	atomic.AddInt64(&r.reads, 1)
	isMember, err := r.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, unavailable("sismember", err)
	}
	return isMember, nil
}

// GetInt returns the integer at key, 0 when the key does not exist
func (r *RedisStore) GetInt(ctx context.Context, key string) (int64, error) {
	atomic.AddInt64(&r.reads, 1)
	n, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, unavailable("get", err)
	}
	return n, nil
}

// SetStats pipelines SCARD (and SISMEMBER when member is set) for every key
func (r *RedisStore) SetStats(ctx context.Context, keys []string, member string) ([]SetStat, error) {
	if len(keys) == 0 {
		return []SetStat{}, nil
	}
	atomic.AddInt64(&r.reads, int64(len(keys)))

	cards := make([]*redis.IntCmd, len(keys))
	members := make([]*redis.BoolCmd, len(keys))

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cards[i] = pipe.SCard(ctx, key)
			if member != "" {
				members[i] = pipe.SIsMember(ctx, key, member)
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("pipeline", err)
	}

	stats := make([]SetStat, len(keys))
	for i := range keys {
		stats[i].Card = cards[i].Val()
		if members[i] != nil {
			stats[i].HasMember = members[i].Val()
		}
	}
	return stats, nil
}

// Watch runs fn inside a Redis WATCH on keys
func (r *RedisStore) Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error {
	var fnErr error
	err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
		fnErr = fn(&redisTx{store: r, tx: rtx})
		return fnErr
	}, keys...)

	switch {
	case err == nil:
		return nil
	case fnErr != nil && err == fnErr:
		// Errors from fn are already classified
		return err
	case errors.Is(err, redis.TxFailedErr):
		atomic.AddInt64(&r.conflicts, 1)
		return ErrTxConflict
	default:
		return unavailable("watch", err)
	}
}

// Ping tests the Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Stats returns store statistics
func (r *RedisStore) Stats() StoreStats {
	return StoreStats{
		Reads:     atomic.LoadInt64(&r.reads),
		Commits:   atomic.LoadInt64(&r.commits),
		Conflicts: atomic.LoadInt64(&r.conflicts),
	}
}

// GetClient returns the underlying Redis client for advanced operations
func (r *RedisStore) GetClient() *redis.Client {
	return r.client
}

type redisTx struct {
	store *RedisStore
	tx    *redis.Tx
	done  bool
}

func (t *redisTx) SetIsMember(ctx context.Context, key string, member string) (bool, error) {
	atomic.AddInt64(&t.store.reads, 1)
	isMember, err := t.tx.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, unavailable("sismember", err)
	}
	return isMember, nil
}

func (t *redisTx) GetInt(ctx context.Context, key string) (int64, error) {
	atomic.AddInt64(&t.store.reads, 1)
	n, err := t.tx.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, unavailable("get", err)
	}
	return n, nil
}

func (t *redisTx) Exec(ctx context.Context, ops ...Op) error {
	if t.done {
		return ErrTxFinished
	}
	t.done = true

	_, err := t.tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case OpSetAdd:
				pipe.SAdd(ctx, op.Key, op.Member)
			case OpSetRemove:
				pipe.SRem(ctx, op.Key, op.Member)
			case OpIncrBy:
				pipe.IncrBy(ctx, op.Key, op.Delta)
			default:
				return fmt.Errorf("unknown op kind %d", op.Kind)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			atomic.AddInt64(&t.store.conflicts, 1)
			return ErrTxConflict
		}
		return unavailable("exec", err)
	}

	atomic.AddInt64(&t.store.commits, 1)
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", ErrStoreUnavailable, op, err)
}
