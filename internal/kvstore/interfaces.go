package kvstore

import (
	"context"
	"errors"
	"time"
)

// Store is the key-value contract the engagement ledger needs: set values,
// integer counters and optimistic multi-key transactions.
type Store interface {
	// SetCard returns the cardinality of the set at key (0 if missing)
	SetCard(ctx context.Context, key string) (int64, error)

	// SetIsMember reports whether member belongs to the set at key
	SetIsMember(ctx context.Context, key string, member string) (bool, error)

	// GetInt returns the integer stored at key (0 if missing)
	GetInt(ctx context.Context, key string) (int64, error)

	// SetStats returns the cardinality of each set in keys and, when member
	// is not empty, whether member belongs to it. One round trip.
	SetStats(ctx context.Context, keys []string, member string) ([]SetStat, error)

	// Watch runs fn with optimistic concurrency on keys. Mutations queued by
	// fn through Tx.Exec are applied only if none of the watched keys changed
	// since Watch started; otherwise Exec returns ErrTxConflict.
	Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend connection
	Close() error

	// Stats returns store statistics
	Stats() StoreStats
}

// Tx is the view of the store inside Watch.
type Tx interface {
	// SetIsMember reads set membership as part of the watched transaction
	SetIsMember(ctx context.Context, key string, member string) (bool, error)

	// GetInt reads an integer as part of the watched transaction
	GetInt(ctx context.Context, key string) (int64, error)

	// Exec applies ops atomically (MULTI/EXEC). Returns ErrTxConflict when a
	// watched key was modified by someone else.
	Exec(ctx context.Context, ops ...Op) error
}

// OpKind identifies a queued mutation
type OpKind int

const (
	OpSetAdd OpKind = iota + 1
	OpSetRemove
	OpIncrBy
)

// Op is a single mutation queued for Tx.Exec
type Op struct {
	Kind   OpKind
	Key    string
	Member string
	Delta  int64
}

// SetAdd queues adding member to the set at key
func SetAdd(key, member string) Op {
	return Op{Kind: OpSetAdd, Key: key, Member: member}
}

// SetRemove queues removing member from the set at key
func SetRemove(key, member string) Op {
	return Op{Kind: OpSetRemove, Key: key, Member: member}
}

// IncrBy queues adding delta to the integer at key
func IncrBy(key string, delta int64) Op {
	return Op{Kind: OpIncrBy, Key: key, Delta: delta}
}

// SetStat is one entry of a SetStats result
type SetStat struct {
	Card      int64
	HasMember bool
}

// StoreConfig holds configuration for store instances
type StoreConfig struct {
	// Backend specifies the store backend (memory, redis)
	Backend StoreType `json:"backend" yaml:"backend"`

	// Redis configuration
	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string `json:"address" yaml:"address"`

	// Password for Redis authentication
	Password string `json:"password" yaml:"password"`

	// Database number
	Database int `json:"database" yaml:"database"`

	// PoolSize is the maximum number of connections
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// MinIdleConns is the minimum number of idle connections
	MinIdleConns int `json:"min_idle_conns" yaml:"min_idle_conns"`

	// MaxConnAge is the maximum connection age
	MaxConnAge time.Duration `json:"max_conn_age" yaml:"max_conn_age"`

	// DialTimeout bounds connection establishment
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// ReadTimeout bounds a single socket read
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds a single socket write
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// StoreStats provides store statistics
type StoreStats struct {
	// Reads is the number of read commands served
	Reads int64 `json:"reads"`

	// Commits is the number of transactions applied
	Commits int64 `json:"commits"`

	// Conflicts is the number of transactions aborted by a watched key change
	Conflicts int64 `json:"conflicts"`
}

// Common store errors
var (
	// ErrTxConflict is returned by Tx.Exec when a watched key changed
	ErrTxConflict = errors.New("transaction conflict")

	// ErrStoreUnavailable is returned when the backend cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreClosed is returned after Close
	ErrStoreClosed = errors.New("store closed")

	// ErrInvalidStoreType is returned when the backend type is invalid
	ErrInvalidStoreType = errors.New("invalid store type")

	// ErrTxFinished is returned when Exec is called twice on the same Tx
	ErrTxFinished = errors.New("transaction already executed")
)

// DefaultStoreConfig returns default store configuration
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend: StoreTypeMemory,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			Password:     "",
			Database:     0,
			PoolSize:     10,
			MinIdleConns: 5,
			MaxConnAge:   30 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
		},
	}
}

// StoreType represents different store backend types
type StoreType string

const (
	// StoreTypeMemory represents the in-process store
	StoreTypeMemory StoreType = "memory"

	// StoreTypeRedis represents Redis
	StoreTypeRedis StoreType = "redis"
)

// IsValid checks if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case StoreTypeMemory, StoreTypeRedis:
		return true
	default:
		return false
	}
}
