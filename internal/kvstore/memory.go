package kvstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// MemoryStore implements Store in process memory. Every key carries a
// version that is bumped on each write, which is how Watch detects
// conflicting writers the same way Redis WATCH does.
type MemoryStore struct {
	sets      map[string]map[string]struct{}
	ints      map[string]int64
	versions  map[string]uint64
	mutex     sync.RWMutex
	closed    bool
	reads     int64
	commits   int64
	conflicts int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:     make(map[string]map[string]struct{}),
		ints:     make(map[string]int64),
		versions: make(map[string]uint64),
	}
}

// SetCard returns the size of the set at key
func (m *MemoryStore) SetCard(ctx context.Context, key string) (int64, error) {
	if err := m.checkUsable(ctx); err != nil {
		return 0, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	atomic.AddInt64(&m.reads, 1)
	return int64(len(m.sets[key])), nil
}

// SetIsMember checks if member belongs to the set at key
func (m *MemoryStore) SetIsMember(ctx context.Context, key string, member string) (bool, error) {
	if err := m.checkUsable(ctx); err != nil {
		return false, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	atomic.AddInt64(&m.reads, 1)
	_, ok := m.sets[key][member]
	return ok, nil
}

// GetInt returns the integer at key
func (m *MemoryStore) GetInt(ctx context.Context, key string) (int64, error) {
	if err := m.checkUsable(ctx); err != nil {
		return 0, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	atomic.AddInt64(&m.reads, 1)
	return m.ints[key], nil
}

// SetStats returns cardinality and membership for each key under one lock
func (m *MemoryStore) SetStats(ctx context.Context, keys []string, member string) ([]SetStat, error) {
	if err := m.checkUsable(ctx); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	atomic.AddInt64(&m.reads, int64(len(keys)))
	stats := make([]SetStat, len(keys))
	for i, key := range keys {
		set := m.sets[key]
		stats[i].Card = int64(len(set))
		if member != "" {
			_, stats[i].HasMember = set[member]
		}
	}
	return stats, nil
}

// Watch snapshots the versions of keys and runs fn
func (m *MemoryStore) Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error {
	if err := m.checkUsable(ctx); err != nil {
		return err
	}

	m.mutex.RLock()
	watched := make(map[string]uint64, len(keys))
	for _, key := range keys {
		watched[key] = m.versions[key]
	}
	m.mutex.RUnlock()

	return fn(&memoryTx{store: m, watched: watched})
}

// Ping reports whether the store is open
func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.checkUsable(ctx)
}

// Close marks the store closed; later calls fail with ErrStoreClosed
func (m *MemoryStore) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

// Stats returns store statistics
func (m *MemoryStore) Stats() StoreStats {
	return StoreStats{
		Reads:     atomic.LoadInt64(&m.reads),
		Commits:   atomic.LoadInt64(&m.commits),
		Conflicts: atomic.LoadInt64(&m.conflicts),
	}
}

func (m *MemoryStore) checkUsable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	m.mutex.RLock()
	closed := m.closed
	m.mutex.RUnlock()
	if closed {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, ErrStoreClosed)
	}
	return nil
}

// apply must be called with the write lock held
func (m *MemoryStore) apply(op Op) {
	switch op.Kind {
	case OpSetAdd:
		set, ok := m.sets[op.Key]
		if !ok {
			set = make(map[string]struct{})
			m.sets[op.Key] = set
		}
		set[op.Member] = struct{}{}
	case OpSetRemove:
		if set, ok := m.sets[op.Key]; ok {
			delete(set, op.Member)
			if len(set) == 0 {
				delete(m.sets, op.Key)
			}
		}
	case OpIncrBy:
		m.ints[op.Key] += op.Delta
	}
	m.versions[op.Key]++
}

type memoryTx struct {
	store   *MemoryStore
	watched map[string]uint64
	done    bool
}

func (t *memoryTx) SetIsMember(ctx context.Context, key string, member string) (bool, error) {
	return t.store.SetIsMember(ctx, key, member)
}

func (t *memoryTx) GetInt(ctx context.Context, key string) (int64, error) {
	return t.store.GetInt(ctx, key)
}

func (t *memoryTx) Exec(ctx context.Context, ops ...Op) error {
	if t.done {
		return ErrTxFinished
	}
	t.done = true

	if err := t.store.checkUsable(ctx); err != nil {
		return err
	}

	m := t.store
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, version := range t.watched {
		if m.versions[key] != version {
			atomic.AddInt64(&m.conflicts, 1)
			return ErrTxConflict
		}
	}

	for _, op := range ops {
		if op.Kind < OpSetAdd || op.Kind > OpIncrBy {
			return fmt.Errorf("unknown op kind %d", op.Kind)
		}
	}
	for _, op := range ops {
		m.apply(op)
	}

	atomic.AddInt64(&m.commits, 1)
	return nil
}
